package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"cinebook-cli/auth"
	"cinebook-cli/model"
	"cinebook-cli/service"
	"cinebook-cli/store"
)

// SeatState is how a seat is drawn from the current user's point of view.
type SeatState int

const (
	StateAvailable SeatState = iota
	StateSelected
	StateMine
	StateHeld
	StateBooked
	StateUnknown
)

// Deps are the collaborators shared by the booking screens.
type Deps struct {
	API       API
	Storage   Storage
	Session   *SessionStore
	Notifier  Notifier
	Navigator Navigator
	Logger    *slog.Logger
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Session == nil {
		d.Session = NewSessionStore()
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// SeatView is the seat selection screen of one schedule. Network calls run
// without holding the lock, so Snapshot stays responsive while a request is in
// flight; callers must not run two operations of the same view concurrently.
type SeatView struct {
	deps       Deps
	scheduleID int

	mu       sync.Mutex
	seats    []model.SeatRecord
	byID     map[string]model.SeatRecord
	selected []string
	loaded   bool
}

// Snapshot is a copy of the view state for rendering.
type Snapshot struct {
	ScheduleID int
	SessionID  string
	Seats      []model.SeatRecord
	Selected   []string
	Loaded     bool
}

// NewSeatView creates the seat screen of a schedule. Call Mount before the first Refresh.
func NewSeatView(scheduleID int, deps Deps) *SeatView {
	return &SeatView{
		deps:       deps.withDefaults(),
		scheduleID: scheduleID,
		byID:       map[string]model.SeatRecord{},
	}
}

func (v *SeatView) ScheduleID() int {
	return v.scheduleID
}

// Mount resets the local selection. When a confirmed session exists for this
// schedule the selection is restored from the persisted mirror, falling back
// to the session snapshot.
func (v *SeatView) Mount() {
	var restored []string
	if v.deps.Session.SessionID() != "" {
		if data, ok := v.confirmedData(); ok {
			restored = v.readMirror()
			if restored == nil {
				restored = data.SelectedSeats
			}
		}
	}

	v.mu.Lock()
	v.selected = normalizeSelection(restored)
	v.mu.Unlock()
}

// Refresh reloads the seat map and reconciles the local selection with it.
func (v *SeatView) Refresh(ctx context.Context) {
	if !v.requireLogin() {
		return
	}

	if v.deps.Session.SessionID() != "" {
		if data, ok := v.deps.Session.SeatData(); ok && len(data.ScheduleSeatIDs) > 0 {
			if !v.release(ctx, data) {
				return
			}
		}
	}

	seats, err := v.deps.API.GetSeats(ctx, v.scheduleID)
	if err != nil {
		v.handleRefreshError(err)
		return
	}

	hasSession := v.deps.Session.SessionID() != ""
	var confirmed []string
	if data, ok := v.confirmedData(); ok {
		confirmed = data.SelectedSeats
	}

	v.mu.Lock()
	v.seats = seats
	v.byID = indexSeats(seats)
	v.loaded = true
	before := v.selected
	if hasSession {
		v.selected = KeepSelectable(before, seats, confirmed)
	} else {
		v.selected = nil
	}
	after := slices.Clone(v.selected)
	v.mu.Unlock()

	if len(after) < len(before) {
		v.deps.Logger.Info("selection reconciled", "schedule_id", v.scheduleID, "before", before, "after", after)
		v.writeMirror(after)
	}
}

// release frees the seats held by the current session so the fetched map shows
// them as available. It reports whether the refresh may continue.
func (v *SeatView) release(ctx context.Context, data SeatData) bool {
	scheduleID := data.ScheduleID
	if scheduleID == 0 {
		scheduleID = v.scheduleID
	}
	res, err := v.deps.API.SelectSeats(ctx, model.SelectSeatsRequest{
		SessionID:       v.deps.Session.SessionID(),
		ScheduleID:      scheduleID,
		ScheduleSeatIDs: []int{},
		Products:        data.Products,
	})
	if err != nil {
		v.handleRefreshError(err)
		return false
	}
	// The session holds nothing now, so none of its seats count as ours.
	data.SelectedSeats = nil
	data.ScheduleSeatIDs = nil
	data.applyTotals(res)
	v.deps.Session.Save(res.SessionID, data)
	v.deps.Logger.Debug("released held seats", "session_id", res.SessionID, "schedule_id", scheduleID)
	return true
}

func (v *SeatView) handleRefreshError(err error) {
	switch {
	case service.IsUnauthorized(err):
		v.redirectToLogin(msgAuthExpired)
	case service.ErrorCode(err) == model.ErrSessionExpired:
		v.expireSession()
	case service.ErrorCode(err) == model.ErrShowtimeNotFound:
		v.notify(LevelError, messageOr(err, msgShowtimeMissing))
		v.deps.Navigator.Back()
	default:
		v.deps.Logger.Error("refresh seat map", "schedule_id", v.scheduleID, "err", err)
		v.notify(LevelError, "Could not load seats: "+service.ErrorMessage(err))
	}
}

// Toggle selects or deselects a seat and reports whether the selection changed.
func (v *SeatView) Toggle(seatID string) bool {
	confirmed := v.confirmedSet()

	v.mu.Lock()
	seat, ok := v.byID[seatID]
	if !ok || !Selectable(seat, confirmed) {
		v.mu.Unlock()
		return false
	}
	next, err := ToggleSeat(v.selected, seatID)
	if err != nil {
		v.mu.Unlock()
		v.notify(LevelWarning, msgSeatLimit)
		return false
	}
	v.selected = next
	snapshot := slices.Clone(next)
	v.mu.Unlock()

	v.writeMirror(snapshot)
	return true
}

// Submit asks the API to hold the selected seats and moves on to concessions.
func (v *SeatView) Submit(ctx context.Context) {
	if !v.requireLogin() {
		return
	}

	v.mu.Lock()
	selected := slices.Clone(v.selected)
	scheduleSeatIDs := make([]int, 0, len(selected))
	stale := false
	for _, id := range selected {
		seat, ok := v.byID[id]
		if !ok {
			stale = true
			break
		}
		scheduleSeatIDs = append(scheduleSeatIDs, seat.ScheduleSeatID)
	}
	v.mu.Unlock()

	if len(selected) == 0 {
		v.notify(LevelWarning, msgNoSeats)
		return
	}
	if stale {
		v.notify(LevelWarning, msgStaleSeatMap)
		v.Refresh(ctx)
		return
	}

	sessionID := v.deps.Session.SessionID()
	var products []model.ProductLine
	if data, ok := v.confirmedData(); ok {
		products = data.Products
	}

	res, err := v.deps.API.SelectSeats(ctx, model.SelectSeatsRequest{
		SessionID:       sessionID,
		ScheduleID:      v.scheduleID,
		ScheduleSeatIDs: scheduleSeatIDs,
		Products:        products,
	})
	if err != nil {
		v.handleSubmitError(ctx, err)
		return
	}

	data := SeatData{
		ScheduleID:      v.scheduleID,
		SelectedSeats:   selected,
		ScheduleSeatIDs: scheduleSeatIDs,
		Products:        products,
	}
	data.applyTotals(res)
	v.deps.Session.Save(res.SessionID, data)
	v.writeMirror(selected)
	v.deps.Logger.Info("seats held", "session_id", res.SessionID, "schedule_id", v.scheduleID, "seats", selected)

	handoff := data.clone()
	v.deps.Navigator.Navigate(RouteConcessions, &handoff)
}

func (v *SeatView) handleSubmitError(ctx context.Context, err error) {
	if service.IsUnauthorized(err) {
		v.redirectToLogin(msgAuthExpired)
		return
	}
	switch service.ErrorCode(err) {
	case model.ErrSeatAlreadyBooked:
		v.notify(LevelError, messageOr(err, msgSeatTaken))
		v.Refresh(ctx)
	case model.ErrSeatLimitExceeded:
		v.notify(LevelWarning, messageOr(err, msgSeatLimit))
	case model.ErrSeatGapViolation:
		v.notify(LevelWarning, messageOr(err, msgSeatGap))
	case model.ErrSessionExpired:
		v.expireSession()
	default:
		v.deps.Logger.Error("submit selection", "schedule_id", v.scheduleID, "err", err)
		v.notify(LevelError, "Could not reserve seats: "+service.ErrorMessage(err))
	}
}

// SeatState classifies a seat for rendering.
func (v *SeatView) SeatState(seatID string) SeatState {
	confirmed := v.confirmedSet()

	v.mu.Lock()
	defer v.mu.Unlock()
	seat, ok := v.byID[seatID]
	if !ok {
		return StateUnknown
	}
	if slices.Contains(v.selected, seatID) {
		return StateSelected
	}
	switch seat.Status {
	case model.SeatAvailable:
		return StateAvailable
	case model.SeatHold:
		if confirmed[seatID] {
			return StateMine
		}
		return StateHeld
	case model.SeatBooked:
		return StateBooked
	default:
		return StateUnknown
	}
}

// Selected returns the local selection in the order seats were picked.
func (v *SeatView) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.selected)
}

func (v *SeatView) Snapshot() Snapshot {
	sessionID := v.deps.Session.SessionID()
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		ScheduleID: v.scheduleID,
		SessionID:  sessionID,
		Seats:      slices.Clone(v.seats),
		Selected:   slices.Clone(v.selected),
		Loaded:     v.loaded,
	}
}

// confirmedData returns the session snapshot when it belongs to this schedule.
func (v *SeatView) confirmedData() (SeatData, bool) {
	data, ok := v.deps.Session.SeatData()
	if !ok {
		return SeatData{}, false
	}
	if data.ScheduleID != 0 && data.ScheduleID != v.scheduleID {
		return SeatData{}, false
	}
	return data, true
}

func (v *SeatView) confirmedSet() map[string]bool {
	if v.deps.Session.SessionID() == "" {
		return map[string]bool{}
	}
	data, ok := v.confirmedData()
	if !ok {
		return map[string]bool{}
	}
	return seatSet(data.SelectedSeats)
}

func (v *SeatView) requireLogin() bool {
	return requireLogin(v.deps)
}

func (v *SeatView) redirectToLogin(text string) {
	redirectToLogin(v.deps, text)
}

func (v *SeatView) expireSession() {
	expireSession(v.deps)
	v.mu.Lock()
	v.selected = nil
	v.mu.Unlock()
}

func (v *SeatView) notify(level Level, text string) {
	v.deps.Notifier.Notify(Notice{Level: level, Text: text})
}

func (v *SeatView) readMirror() []string {
	raw, ok := v.deps.Storage.Get(store.KeySelectedSeats)
	if !ok || raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		v.deps.Logger.Warn("ignoring malformed selection mirror", "err", err)
		return nil
	}
	return ids
}

func (v *SeatView) writeMirror(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	payload, err := json.Marshal(ids)
	if err == nil {
		err = v.deps.Storage.Set(store.KeySelectedSeats, string(payload))
	}
	if err != nil {
		v.deps.Logger.Warn("persist selection", "err", err)
	}
}

func requireLogin(deps Deps) bool {
	token, ok := deps.Storage.Get(store.KeyToken)
	if ok && auth.Usable(token, deps.Now()) {
		return true
	}
	redirectToLogin(deps, msgNotLoggedIn)
	return false
}

func redirectToLogin(deps Deps, text string) {
	deps.Notifier.Notify(Notice{Level: LevelWarning, Text: text})
	deps.Navigator.Navigate(RouteLogin, nil)
}

// expireSession drops every piece of client-held booking state and returns home.
func expireSession(deps Deps) {
	deps.Session.Clear()
	if err := deps.Storage.Delete(store.KeySelectedSeats); err != nil {
		deps.Logger.Warn("clear selection mirror", "err", err)
	}
	deps.Notifier.Notify(Notice{Level: LevelWarning, Text: msgSessionExpired})
	deps.Navigator.Navigate(RouteHome, nil)
}

func messageOr(err error, fallback string) string {
	var apiErr *service.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
