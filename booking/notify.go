package booking

import (
	"context"

	"cinebook-cli/model"
)

// Level is the severity of a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

type Notice struct {
	Level Level
	Text  string
}

type Notifier interface {
	Notify(Notice)
}

const (
	RouteHome        = "/"
	RouteLogin       = "/login"
	RouteConcessions = "/concessions"
	RouteCheckout    = "/checkout"
)

// Navigator moves the user between screens. The snapshot is nil for routes that carry no state.
type Navigator interface {
	Navigate(route string, snapshot *SeatData)
	Back()
}

// Storage persists small string values such as the token and the selection mirror.
type Storage interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
	Delete(key string) error
}

// API is the part of the booking REST API the seat screens call.
type API interface {
	GetSeats(ctx context.Context, scheduleID int) ([]model.SeatRecord, error)
	SelectSeats(ctx context.Context, req model.SelectSeatsRequest) (model.SelectSeatsResponse, error)
}

// Catalog lists the products offered on the concessions screen.
type Catalog interface {
	Products(ctx context.Context) ([]model.Product, error)
}

const (
	msgNotLoggedIn     = "Please log in to choose seats."
	msgAuthExpired     = "Your login has expired. Please log in again."
	msgSessionExpired  = "Your booking session has expired. Please start again."
	msgShowtimeMissing = "This showtime is no longer available."
	msgNoSeats         = "Please select at least one seat."
	msgStaleSeatMap    = "The seat map is out of date. Refreshing seats."
	msgSeatTaken       = "One of your seats was just taken. The seat map has been refreshed."
	msgSeatLimit       = "You can select up to 8 seats."
	msgSeatGap         = "Please don't leave a single empty seat between selected or occupied seats."
)
