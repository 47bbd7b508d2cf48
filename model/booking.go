package model

import "github.com/shopspring/decimal"

type ErrorCode string

const (
	ErrSessionExpired    ErrorCode = "SESSION_EXPIRED"
	ErrSeatAlreadyBooked ErrorCode = "SEAT_ALREADY_BOOKED"
	ErrSeatLimitExceeded ErrorCode = "SEAT_LIMIT_EXCEEDED"
	ErrSeatGapViolation  ErrorCode = "SEAT_GAP_VIOLATION"
	ErrShowtimeNotFound  ErrorCode = "SHOWTIME_NOT_FOUND"
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"
)

type ProductLine struct {
	ProductID int `json:"productId" validate:"gt=0"`
	Quantity  int `json:"quantity" validate:"gt=0"`
}

type SelectSeatsRequest struct {
	SessionID       string        `json:"sessionId,omitempty"`
	ScheduleID      int           `json:"scheduleId" validate:"gt=0"`
	ScheduleSeatIDs []int         `json:"scheduleSeatIds" validate:"max=8,dive,gt=0"`
	Products        []ProductLine `json:"products" validate:"dive"`
}

type SelectSeatsResponse struct {
	SessionID        string          `json:"sessionId"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
	ProductsTotal    decimal.Decimal `json:"productsTotal"`
	GrandTotal       decimal.Decimal `json:"grandTotal"`
	MovieName        string          `json:"movieName"`
	ScheduleShowDate string          `json:"scheduleShowDate"`
	ScheduleShowTime string          `json:"scheduleShowTime"`
	CinemaRoomName   string          `json:"cinemaRoomName"`
}

// ErrorBody is the JSON body the API sends with non-2xx responses.
type ErrorBody struct {
	ErrorCode ErrorCode `json:"errorCode"`
	Message   string    `json:"message"`
}
