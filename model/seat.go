package model

import "strconv"

type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHold      SeatStatus = "HOLD"
	SeatBooked    SeatStatus = "BOOKED"
)

type SeatType string

const (
	SeatRegular SeatType = "REGULAR"
	SeatVIP     SeatType = "VIP"
)

// SeatRecord is one seat of a schedule as reported by GET /public/seats.
type SeatRecord struct {
	Column         string     `json:"column"`
	Row            int        `json:"row"`
	Status         SeatStatus `json:"status"`
	Type           SeatType   `json:"type"`
	ScheduleSeatID int        `json:"scheduleSeatId"`
}

// SeatID is the seat label unique within a schedule, e.g. "A1".
func (s SeatRecord) SeatID() string {
	return s.Column + strconv.Itoa(s.Row)
}
