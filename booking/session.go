package booking

import (
	"slices"
	"sync"

	"cinebook-cli/model"
	"github.com/shopspring/decimal"
)

// SeatData is the snapshot of a server-confirmed selection carried between screens.
type SeatData struct {
	ScheduleID      int
	SelectedSeats   []string
	ScheduleSeatIDs []int
	Products        []model.ProductLine
	MovieName       string
	ShowDate        string
	ShowTime        string
	CinemaRoomName  string
	TotalPrice      decimal.Decimal
	ProductsTotal   decimal.Decimal
	GrandTotal      decimal.Decimal
}

func (d SeatData) clone() SeatData {
	d.SelectedSeats = slices.Clone(d.SelectedSeats)
	d.ScheduleSeatIDs = slices.Clone(d.ScheduleSeatIDs)
	d.Products = slices.Clone(d.Products)
	return d
}

// applyTotals copies the server-computed session fields from res.
func (d *SeatData) applyTotals(res model.SelectSeatsResponse) {
	d.TotalPrice = res.TotalPrice
	d.ProductsTotal = res.ProductsTotal
	d.GrandTotal = res.GrandTotal
	if res.MovieName != "" {
		d.MovieName = res.MovieName
	}
	if res.ScheduleShowDate != "" {
		d.ShowDate = res.ScheduleShowDate
	}
	if res.ScheduleShowTime != "" {
		d.ShowTime = res.ScheduleShowTime
	}
	if res.CinemaRoomName != "" {
		d.CinemaRoomName = res.CinemaRoomName
	}
}

// SessionStore holds the booking session shared by the seat and concessions
// screens. It lives in memory only.
type SessionStore struct {
	mu        sync.Mutex
	sessionID string
	data      *SeatData
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func (s *SessionStore) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *SessionStore) SeatData() (SeatData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return SeatData{}, false
	}
	return s.data.clone(), true
}

func (s *SessionStore) Save(sessionID string, data SeatData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	clone := data.clone()
	s.data = &clone
}

func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = ""
	s.data = nil
}
