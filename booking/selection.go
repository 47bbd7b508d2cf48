package booking

import (
	"errors"

	"cinebook-cli/model"
)

// MaxSeats is the most seats one booking may hold.
const MaxSeats = 8

var ErrSelectionFull = errors.New("you can select up to 8 seats")

// ToggleSeat returns selected with seatID removed when present, or appended
// otherwise. Adding to a full selection fails and returns selected unchanged.
func ToggleSeat(selected []string, seatID string) ([]string, error) {
	for i, id := range selected {
		if id == seatID {
			next := make([]string, 0, len(selected)-1)
			next = append(next, selected[:i]...)
			return append(next, selected[i+1:]...), nil
		}
	}
	if len(selected) >= MaxSeats {
		return selected, ErrSelectionFull
	}
	next := make([]string, len(selected), len(selected)+1)
	copy(next, selected)
	return append(next, seatID), nil
}

// Selectable reports whether a seat may be (or stay) selected: it is free, or
// it is held by the session whose confirmed seats are given.
func Selectable(seat model.SeatRecord, confirmed map[string]bool) bool {
	switch seat.Status {
	case model.SeatAvailable:
		return true
	case model.SeatHold:
		return confirmed[seat.SeatID()]
	default:
		return false
	}
}

// KeepSelectable filters selected down to the seats that are still selectable
// in the fresh seat map, preserving order. Seats missing from the map are dropped.
func KeepSelectable(selected []string, seats []model.SeatRecord, confirmed []string) []string {
	byID := indexSeats(seats)
	mine := seatSet(confirmed)
	kept := make([]string, 0, len(selected))
	for _, id := range selected {
		seat, ok := byID[id]
		if ok && Selectable(seat, mine) {
			kept = append(kept, id)
		}
	}
	return kept
}

// normalizeSelection drops blanks and duplicates and applies the MaxSeats cap.
func normalizeSelection(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == MaxSeats {
			break
		}
	}
	return out
}

func indexSeats(seats []model.SeatRecord) map[string]model.SeatRecord {
	byID := make(map[string]model.SeatRecord, len(seats))
	for _, seat := range seats {
		byID[seat.SeatID()] = seat
	}
	return byID
}

func seatSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
