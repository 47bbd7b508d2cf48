package booking

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"cinebook-cli/model"
	"cinebook-cli/service"
	"cinebook-cli/store"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const testSchedule = 7

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetSeats(ctx context.Context, scheduleID int) ([]model.SeatRecord, error) {
	args := m.Called(ctx, scheduleID)
	seats, _ := args.Get(0).([]model.SeatRecord)
	return seats, args.Error(1)
}

func (m *mockAPI) SelectSeats(ctx context.Context, req model.SelectSeatsRequest) (model.SelectSeatsResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(model.SelectSeatsResponse)
	return res, args.Error(1)
}

type recordingNotifier struct {
	notices []Notice
}

func (n *recordingNotifier) Notify(notice Notice) {
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) levels() []Level {
	out := make([]Level, 0, len(n.notices))
	for _, notice := range n.notices {
		out = append(out, notice.Level)
	}
	return out
}

type navigation struct {
	route    string
	snapshot *SeatData
}

type recordingNavigator struct {
	navigations []navigation
	backs       int
}

func (n *recordingNavigator) Navigate(route string, snapshot *SeatData) {
	n.navigations = append(n.navigations, navigation{route: route, snapshot: snapshot})
}

func (n *recordingNavigator) Back() {
	n.backs++
}

func apiError(status int, code model.ErrorCode, message string) error {
	return &service.APIError{StatusCode: status, Status: http.StatusText(status), Code: code, Message: message}
}

type SeatViewTestSuite struct {
	suite.Suite
	api      *mockAPI
	storage  *store.MemoryKV
	session  *SessionStore
	notifier *recordingNotifier
	nav      *recordingNavigator
	view     *SeatView
}

func TestSeatViewSuite(t *testing.T) {
	suite.Run(t, new(SeatViewTestSuite))
}

func (s *SeatViewTestSuite) SetupTest() {
	s.api = new(mockAPI)
	s.storage = store.NewMemoryKV()
	s.session = NewSessionStore()
	s.notifier = &recordingNotifier{}
	s.nav = &recordingNavigator{}
	_ = s.storage.Set(store.KeyToken, "member-token")
	s.view = s.newView()
}

func (s *SeatViewTestSuite) newView() *SeatView {
	return NewSeatView(testSchedule, Deps{
		API:       s.api,
		Storage:   s.storage,
		Session:   s.session,
		Notifier:  s.notifier,
		Navigator: s.nav,
	})
}

func (s *SeatViewTestSuite) expectSeats(seats ...model.SeatRecord) *mock.Call {
	return s.api.On("GetSeats", mock.Anything, testSchedule).Return(seats, nil).Once()
}

func (s *SeatViewTestSuite) confirm(sessionID string, seats ...string) {
	s.session.Save(sessionID, SeatData{ScheduleID: testSchedule, SelectedSeats: seats})
}

func (s *SeatViewTestSuite) mirror() string {
	raw, _ := s.storage.Get(store.KeySelectedSeats)
	return raw
}

func (s *SeatViewTestSuite) assertSelected(want ...string) {
	s.T().Helper()
	if want == nil {
		want = []string{}
	}
	got := s.view.Selected()
	if got == nil {
		got = []string{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		s.T().Fatalf("unexpected selection (-want +got):\n%s", diff)
	}
}

func (s *SeatViewTestSuite) TestRefresh_RequiresToken() {
	_ = s.storage.Delete(store.KeyToken)

	s.view.Refresh(context.Background())

	s.api.AssertNotCalled(s.T(), "GetSeats", mock.Anything, mock.Anything)
	s.Require().Len(s.nav.navigations, 1)
	s.Equal(RouteLogin, s.nav.navigations[0].route)
	s.Equal([]Level{LevelWarning}, s.notifier.levels())
}

func (s *SeatViewTestSuite) TestRefresh_WithoutSessionStartsEmpty() {
	_ = s.storage.Set(store.KeySelectedSeats, `["A1"]`)
	s.view.Mount()
	s.expectSeats(seat("A1", model.SeatAvailable, 1))

	s.view.Refresh(context.Background())

	s.assertSelected()
	s.True(s.view.Snapshot().Loaded)
	s.api.AssertExpectations(s.T())
}

func (s *SeatViewTestSuite) TestRefresh_KeepsAvailableAndOwnHolds() {
	s.confirm("sess-1", "A2", "A3")
	_ = s.storage.Set(store.KeySelectedSeats, `["A1","A2","A3","A4"]`)
	s.view.Mount()
	s.assertSelected("A1", "A2", "A3", "A4")
	s.expectSeats(
		seat("A1", model.SeatAvailable, 1),
		seat("A2", model.SeatHold, 2),
		seat("A3", model.SeatBooked, 3),
		seat("A4", model.SeatHold, 4),
	)

	s.view.Refresh(context.Background())

	s.assertSelected("A1", "A2")
	s.Equal(`["A1","A2"]`, s.mirror())
	s.Empty(s.nav.navigations)
}

func (s *SeatViewTestSuite) TestRefresh_UnchangedSelectionLeavesMirror() {
	s.confirm("sess-1", "A2")
	_ = s.storage.Set(store.KeySelectedSeats, `["A2"]`)
	s.view.Mount()
	_ = s.storage.Set(store.KeySelectedSeats, "untouched")
	s.expectSeats(seat("A2", model.SeatHold, 2))

	s.view.Refresh(context.Background())

	s.assertSelected("A2")
	s.Equal("untouched", s.mirror())
}

func (s *SeatViewTestSuite) TestScenario_ToggleAndRefetch() {
	s.confirm("sess-1", "A2")
	_ = s.storage.Set(store.KeySelectedSeats, `["A2"]`)
	s.view.Mount()
	s.expectSeats(
		seat("A1", model.SeatAvailable, 1),
		seat("A2", model.SeatHold, 2),
		seat("A3", model.SeatBooked, 3),
	)
	s.view.Refresh(context.Background())
	s.assertSelected("A2")

	s.True(s.view.Toggle("A1"))
	s.assertSelected("A2", "A1")
	s.False(s.view.Toggle("A3"))
	s.assertSelected("A2", "A1")

	s.expectSeats(
		seat("A1", model.SeatHold, 1),
		seat("A2", model.SeatBooked, 2),
		seat("A3", model.SeatBooked, 3),
	)
	s.view.Refresh(context.Background())

	s.assertSelected()
	s.Equal(`[]`, s.mirror())
}

func (s *SeatViewTestSuite) TestRefresh_ReleasesHeldSeatsBeforeFetching() {
	s.session.Save("sess-1", SeatData{
		ScheduleID:      testSchedule,
		SelectedSeats:   []string{"A1"},
		ScheduleSeatIDs: []int{1},
		Products:        []model.ProductLine{{ProductID: 3, Quantity: 2}},
		GrandTotal:      decimal.NewFromInt(30),
	})
	_ = s.storage.Set(store.KeySelectedSeats, `["A1"]`)
	s.view.Mount()

	s.api.On("SelectSeats", mock.Anything, model.SelectSeatsRequest{
		SessionID:       "sess-1",
		ScheduleID:      testSchedule,
		ScheduleSeatIDs: []int{},
		Products:        []model.ProductLine{{ProductID: 3, Quantity: 2}},
	}).Return(model.SelectSeatsResponse{SessionID: "sess-2"}, nil).Once()
	s.expectSeats(seat("A1", model.SeatAvailable, 1))

	s.view.Refresh(context.Background())

	s.Require().Len(s.api.Calls, 2)
	s.Equal("SelectSeats", s.api.Calls[0].Method)
	s.Equal("GetSeats", s.api.Calls[1].Method)
	s.Equal("sess-2", s.session.SessionID())
	data, ok := s.session.SeatData()
	s.Require().True(ok)
	s.Empty(data.ScheduleSeatIDs)
	s.True(data.GrandTotal.IsZero())
	s.assertSelected("A1")
}

func (s *SeatViewTestSuite) TestRefresh_ReleasedSeatTakenByOtherIsDropped() {
	s.session.Save("sess-1", SeatData{
		ScheduleID:      testSchedule,
		SelectedSeats:   []string{"A1", "A2"},
		ScheduleSeatIDs: []int{1, 2},
	})
	_ = s.storage.Set(store.KeySelectedSeats, `["A1","A2"]`)
	s.view.Mount()
	s.api.On("SelectSeats", mock.Anything, mock.Anything).
		Return(model.SelectSeatsResponse{SessionID: "sess-2"}, nil).Once()
	s.expectSeats(
		seat("A1", model.SeatHold, 1),
		seat("A2", model.SeatAvailable, 2),
	)

	s.view.Refresh(context.Background())

	s.assertSelected("A2")
	s.Equal(`["A2"]`, s.mirror())
	s.Equal(StateHeld, s.view.SeatState("A1"))
	s.False(s.view.Toggle("A1"))
	data, ok := s.session.SeatData()
	s.Require().True(ok)
	s.Empty(data.SelectedSeats)
}

func (s *SeatViewTestSuite) TestRefresh_ReleaseSessionExpired() {
	s.session.Save("sess-1", SeatData{ScheduleID: testSchedule, SelectedSeats: []string{"A1"}, ScheduleSeatIDs: []int{1}})
	_ = s.storage.Set(store.KeySelectedSeats, `["A1"]`)
	s.api.On("SelectSeats", mock.Anything, mock.Anything).
		Return(nil, apiError(http.StatusGone, model.ErrSessionExpired, "expired")).Once()

	s.view.Refresh(context.Background())

	s.api.AssertNotCalled(s.T(), "GetSeats", mock.Anything, mock.Anything)
	s.Empty(s.session.SessionID())
	_, ok := s.session.SeatData()
	s.False(ok)
	_, mirrored := s.storage.Get(store.KeySelectedSeats)
	s.False(mirrored)
	s.Require().Len(s.nav.navigations, 1)
	s.Equal(RouteHome, s.nav.navigations[0].route)
}

func (s *SeatViewTestSuite) TestRefresh_Unauthorized() {
	s.api.On("GetSeats", mock.Anything, testSchedule).
		Return(nil, apiError(http.StatusUnauthorized, "", "")).Once()

	s.view.Refresh(context.Background())

	s.Require().Len(s.nav.navigations, 1)
	s.Equal(RouteLogin, s.nav.navigations[0].route)
	s.Equal(msgAuthExpired, s.notifier.notices[0].Text)
}

func (s *SeatViewTestSuite) TestRefresh_ShowtimeNotFoundGoesBack() {
	s.api.On("GetSeats", mock.Anything, testSchedule).
		Return(nil, apiError(http.StatusNotFound, model.ErrShowtimeNotFound, "")).Once()

	s.view.Refresh(context.Background())

	s.Equal(1, s.nav.backs)
	s.Empty(s.nav.navigations)
	s.Equal(msgShowtimeMissing, s.notifier.notices[0].Text)
}

func (s *SeatViewTestSuite) TestRefresh_TransportErrorOnlyNotifies() {
	s.confirm("sess-1", "A1")
	_ = s.storage.Set(store.KeySelectedSeats, `["A1"]`)
	s.view.Mount()
	s.api.On("GetSeats", mock.Anything, testSchedule).Return(nil, errors.New("connection refused")).Once()

	s.view.Refresh(context.Background())

	s.Empty(s.nav.navigations)
	s.Zero(s.nav.backs)
	s.Equal([]Level{LevelError}, s.notifier.levels())
	s.assertSelected("A1")
}

func (s *SeatViewTestSuite) TestToggle_CapAtEightSeats() {
	var seats []model.SeatRecord
	for i := 1; i <= 9; i++ {
		seats = append(seats, seat("B"+string(rune('0'+i)), model.SeatAvailable, i))
	}
	s.expectSeats(seats...)
	s.view.Refresh(context.Background())

	for i := 0; i < 8; i++ {
		s.True(s.view.Toggle(seats[i].SeatID()))
	}
	before := s.view.Selected()

	s.False(s.view.Toggle("B9"))

	s.Equal(before, s.view.Selected())
	s.Len(s.view.Selected(), MaxSeats)
	s.Equal([]Level{LevelWarning}, s.notifier.levels())
	s.Equal(msgSeatLimit, s.notifier.notices[0].Text)
}

func (s *SeatViewTestSuite) TestToggle_IgnoresUnavailableSeats() {
	s.confirm("sess-1", "A1")
	s.expectSeats(
		seat("A1", model.SeatHold, 1),
		seat("A2", model.SeatHold, 2),
		seat("A3", model.SeatBooked, 3),
	)
	s.view.Refresh(context.Background())

	s.False(s.view.Toggle("A2"))
	s.False(s.view.Toggle("A3"))
	s.False(s.view.Toggle("Z1"))
	s.assertSelected()

	s.True(s.view.Toggle("A1"))
	s.assertSelected("A1")
	s.Equal(`["A1"]`, s.mirror())
	s.Empty(s.notifier.notices)
}

func (s *SeatViewTestSuite) TestSeatState() {
	s.confirm("sess-1", "A2")
	s.expectSeats(
		seat("A1", model.SeatAvailable, 1),
		seat("A2", model.SeatHold, 2),
		seat("A3", model.SeatHold, 3),
		seat("A4", model.SeatBooked, 4),
		seat("A5", model.SeatAvailable, 5),
	)
	s.view.Refresh(context.Background())
	s.view.Toggle("A5")

	s.Equal(StateAvailable, s.view.SeatState("A1"))
	s.Equal(StateMine, s.view.SeatState("A2"))
	s.Equal(StateHeld, s.view.SeatState("A3"))
	s.Equal(StateBooked, s.view.SeatState("A4"))
	s.Equal(StateSelected, s.view.SeatState("A5"))
	s.Equal(StateUnknown, s.view.SeatState("Q1"))
}

func (s *SeatViewTestSuite) TestSubmit_EmptySelectionWarns() {
	s.view.Submit(context.Background())

	s.api.AssertNotCalled(s.T(), "SelectSeats", mock.Anything, mock.Anything)
	s.Equal(msgNoSeats, s.notifier.notices[0].Text)
	s.Empty(s.nav.navigations)
}

func (s *SeatViewTestSuite) TestSubmit_RequiresToken() {
	_ = s.storage.Delete(store.KeyToken)

	s.view.Submit(context.Background())

	s.Require().Len(s.nav.navigations, 1)
	s.Equal(RouteLogin, s.nav.navigations[0].route)
}

func (s *SeatViewTestSuite) loadAndSelect(ids ...string) {
	var seats []model.SeatRecord
	for i, id := range []string{"A1", "A2", "A3"} {
		seats = append(seats, seat(id, model.SeatAvailable, 100+i))
	}
	s.expectSeats(seats...)
	s.view.Refresh(context.Background())
	for _, id := range ids {
		s.Require().True(s.view.Toggle(id))
	}
}

func (s *SeatViewTestSuite) TestSubmit_SuccessHandsOffToConcessions() {
	s.loadAndSelect("A3", "A1")
	s.api.On("SelectSeats", mock.Anything, model.SelectSeatsRequest{
		ScheduleID:      testSchedule,
		ScheduleSeatIDs: []int{102, 100},
	}).Return(model.SelectSeatsResponse{
		SessionID:        "sess-9",
		TotalPrice:       decimal.NewFromInt(24),
		GrandTotal:       decimal.NewFromInt(24),
		MovieName:        "Dune",
		ScheduleShowDate: "2026-10-16",
		ScheduleShowTime: "20:30",
		CinemaRoomName:   "Room 3",
	}, nil).Once()

	s.view.Submit(context.Background())

	s.api.AssertExpectations(s.T())
	s.Equal("sess-9", s.session.SessionID())
	stored, ok := s.session.SeatData()
	s.Require().True(ok)
	s.Equal([]string{"A3", "A1"}, stored.SelectedSeats)
	s.Equal([]int{102, 100}, stored.ScheduleSeatIDs)
	s.Equal("Dune", stored.MovieName)
	s.True(stored.GrandTotal.Equal(decimal.NewFromInt(24)))

	s.Require().Len(s.nav.navigations, 1)
	s.Equal(RouteConcessions, s.nav.navigations[0].route)
	s.Require().NotNil(s.nav.navigations[0].snapshot)
	s.Equal(stored.SelectedSeats, s.nav.navigations[0].snapshot.SelectedSeats)
	s.Equal("Room 3", s.nav.navigations[0].snapshot.CinemaRoomName)
}

func (s *SeatViewTestSuite) TestSubmit_SeatAlreadyBookedRefetchesOnce() {
	s.loadAndSelect("A1")
	s.api.On("SelectSeats", mock.Anything, mock.Anything).
		Return(nil, apiError(http.StatusConflict, model.ErrSeatAlreadyBooked, "")).Once()
	s.expectSeats(seat("A1", model.SeatBooked, 100))

	s.view.Submit(context.Background())

	s.api.AssertNumberOfCalls(s.T(), "GetSeats", 2)
	s.Empty(s.nav.navigations)
	s.Zero(s.nav.backs)
	s.Equal(msgSeatTaken, s.notifier.notices[0].Text)
}

func (s *SeatViewTestSuite) TestSubmit_PolicyErrorsStayOnScreen() {
	for _, tc := range []struct {
		code model.ErrorCode
		want string
	}{
		{code: model.ErrSeatLimitExceeded, want: msgSeatLimit},
		{code: model.ErrSeatGapViolation, want: msgSeatGap},
		{code: model.ErrInvalidRequest, want: "Could not reserve seats: bad payload"},
	} {
		s.Run(string(tc.code), func() {
			s.SetupTest()
			s.loadAndSelect("A1", "A3")
			message := ""
			if tc.code == model.ErrInvalidRequest {
				message = "bad payload"
			}
			s.api.On("SelectSeats", mock.Anything, mock.Anything).
				Return(nil, apiError(http.StatusBadRequest, tc.code, message)).Once()

			s.view.Submit(context.Background())

			s.api.AssertNumberOfCalls(s.T(), "GetSeats", 1)
			s.Empty(s.nav.navigations)
			s.Require().Len(s.notifier.notices, 1)
			s.Equal(tc.want, s.notifier.notices[0].Text)
			s.assertSelected("A1", "A3")
		})
	}
}

func (s *SeatViewTestSuite) TestSubmit_SessionExpiredClearsState() {
	s.confirm("sess-1", "A1")
	s.loadAndSelect("A2")
	s.api.On("SelectSeats", mock.Anything, mock.Anything).
		Return(nil, apiError(http.StatusGone, model.ErrSessionExpired, "")).Once()

	s.view.Submit(context.Background())

	s.Empty(s.session.SessionID())
	_, ok := s.session.SeatData()
	s.False(ok)
	s.Require().Len(s.nav.navigations, 1)
	s.Equal(RouteHome, s.nav.navigations[0].route)
	s.Nil(s.nav.navigations[0].snapshot)
	s.assertSelected()
}

func (s *SeatViewTestSuite) TestSubmit_StaleSeatMapRefreshesInstead() {
	s.confirm("sess-1", "A1")
	_ = s.storage.Set(store.KeySelectedSeats, `["A1"]`)
	s.view.Mount()
	s.expectSeats(seat("A1", model.SeatHold, 100))

	s.view.Submit(context.Background())

	s.api.AssertNotCalled(s.T(), "SelectSeats", mock.Anything, mock.Anything)
	s.api.AssertNumberOfCalls(s.T(), "GetSeats", 1)
	s.Equal(msgStaleSeatMap, s.notifier.notices[0].Text)
	s.assertSelected("A1")
}

func (s *SeatViewTestSuite) TestMount_FallsBackToSnapshot() {
	s.confirm("sess-1", "A2", "A1")

	s.view.Mount()

	s.assertSelected("A2", "A1")
}

func (s *SeatViewTestSuite) TestMount_IgnoresOtherSchedules() {
	s.session.Save("sess-1", SeatData{ScheduleID: testSchedule + 1, SelectedSeats: []string{"A1"}})
	_ = s.storage.Set(store.KeySelectedSeats, `["A1"]`)

	s.view.Mount()

	s.assertSelected()
}
