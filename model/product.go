package model

import "github.com/shopspring/decimal"

type Product struct {
	ID       int             `json:"productId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}
