package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cinebook-cli/booking"
	"cinebook-cli/config"
	"cinebook-cli/model"
	"cinebook-cli/service"
	"cinebook-cli/store"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const toastTTL = 4 * time.Second

type appState int

const (
	stateHome appState = iota
	stateLoadingSeats
	stateShowSeatMap
	stateSubmitting
	stateLoadingProducts
	stateConcessions
	stateConfirming
	stateCheckout
	stateLogin
	stateLoggingIn
	stateError
)

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, email string, password string) (model.LoginResponse, error)
}

// Options wires the program to its collaborators. API, Auth and Products are
// usually the same *service.Client.
type Options struct {
	API        booking.API
	Auth       Authenticator
	Products   productSource
	Storage    booking.Storage
	Session    *booking.SessionStore
	Logger     *slog.Logger
	ScheduleID int
}

// Program is the interactive client. Close must be called once the bubbletea
// program has returned.
type Program struct {
	model  appModel
	events *events
}

func New(opts Options) *Program {
	m := newModel(opts)
	return &Program{model: m, events: m.events}
}

func (p *Program) Model() tea.Model {
	return p.model
}

func (p *Program) Close() {
	p.events.Close()
}

type appModel struct {
	auth    Authenticator
	deps    booking.Deps
	catalog booking.Catalog
	events  *events
	logger  *slog.Logger

	state     appState
	lastState appState
	err       error
	initCmd   tea.Cmd

	width  int
	height int

	scheduleID  int
	view        *booking.SeatView
	grid        seatGrid
	cursor      seatCursor
	showLabels  bool
	concessions *booking.Concessions
	productList list.Model
	checkout    *booking.SeatData

	emailInput    textinput.Model
	passwordInput textinput.Model
	scheduleInput textinput.Model
	recents       []store.RecentSchedule

	busy     bool
	toast    *booking.Notice
	toastID  int
	toastTTL time.Duration

	spinner spinner.Model
}

type errMsg struct {
	err error
}

type opDoneMsg struct {
	view *booking.SeatView
}

type productsMsg struct {
	loaded bool
}

type confirmDoneMsg struct{}

type loginMsg struct {
	res model.LoginResponse
	err error
}

// toastMsg shows a notice raised by the model itself, outside the events channel.
type toastMsg struct {
	notice booking.Notice
}

type clearToastMsg struct {
	id int
}

func newModel(opts Options) appModel {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	session := opts.Session
	if session == nil {
		session = booking.NewSessionStore()
	}
	ev := newEvents()

	m := appModel{
		auth:   opts.Auth,
		events: ev,
		logger: logger,
		deps: booking.Deps{
			API:       opts.API,
			Storage:   opts.Storage,
			Session:   session,
			Notifier:  ev,
			Navigator: ev,
			Logger:    logger,
		},
		scheduleID: opts.ScheduleID,
		state:      stateHome,
		toastTTL:   toastTTL,
	}
	if opts.Products != nil {
		m.catalog = newCachedCatalog(opts.Products, logger)
	}

	m.productList = newList("Concessions")

	m.emailInput = textinput.New()
	m.emailInput.Prompt = "Email    "
	m.emailInput.Placeholder = "member@example.com"
	m.emailInput.CharLimit = 254

	m.passwordInput = textinput.New()
	m.passwordInput.Prompt = "Password "
	m.passwordInput.EchoMode = textinput.EchoPassword
	m.passwordInput.EchoCharacter = '•'

	m.scheduleInput = textinput.New()
	m.scheduleInput.Prompt = "Schedule id: "
	m.scheduleInput.Placeholder = "42"
	m.scheduleInput.CharLimit = 10
	m.scheduleInput.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	m.spinner = sp

	if m.scheduleID > 0 {
		next, cmd := m.openSchedule(m.scheduleID)
		next.initCmd = cmd
		return next
	}
	m.initCmd = tea.Batch(loadRecentsCmd(), textinput.Blink)
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.events.listen(), m.initCmd)
}

type recentsMsg struct {
	recents []store.RecentSchedule
}

func loadRecentsCmd() tea.Cmd {
	return func() tea.Msg {
		recents, _ := store.LoadRecentSchedules()
		return recentsMsg{recents: recents}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.isLoadingState() {
			return m, cmd
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		m.lastState = recoverStateFrom(m.state)
		m.state = stateError
		return m, nil

	case noticeMsg:
		next, cmd := m.showToast(msg.notice)
		return next, tea.Batch(next.events.listen(), cmd)

	case toastMsg:
		return m.showToast(msg.notice)

	case clearToastMsg:
		if msg.id == m.toastID {
			m.toast = nil
		}
		return m, nil

	case navigateMsg:
		next, cmd := m.navigate(msg.route, msg.snapshot)
		return next, tea.Batch(next.events.listen(), cmd)

	case backMsg:
		next, cmd := m.back()
		return next, tea.Batch(next.events.listen(), cmd)

	case recentsMsg:
		m.recents = msg.recents
		return m, nil

	case opDoneMsg:
		// A navigation event may already have moved the user elsewhere.
		if msg.view != m.view {
			return m, nil
		}
		m.syncGrid()
		if m.state == stateLoadingSeats || m.state == stateSubmitting {
			m.state = stateShowSeatMap
			m.busy = false
		}
		return m, nil

	case productsMsg:
		m.busy = false
		if m.state == stateLoadingProducts {
			m.state = stateConcessions
			m.refreshProductItems()
		}
		if !msg.loaded {
			m.productList.Title = "Concessions • unavailable, press enter to continue without products"
		}
		return m, nil

	case confirmDoneMsg:
		m.busy = false
		if m.state == stateConfirming {
			m.state = stateConcessions
			m.refreshProductItems()
		}
		return m, nil

	case loginMsg:
		m.busy = false
		return m.finishLogin(msg)
	}

	var cmd tea.Cmd
	switch m.state {
	case stateConcessions:
		m.productList, cmd = m.productList.Update(msg)
	case stateLogin:
		var passwordCmd tea.Cmd
		m.emailInput, cmd = m.emailInput.Update(msg)
		m.passwordInput, passwordCmd = m.passwordInput.Update(msg)
		cmd = tea.Batch(cmd, passwordCmd)
	case stateHome:
		m.scheduleInput, cmd = m.scheduleInput.Update(msg)
	}
	return m, cmd
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.events.Close()
		return m, tea.Quit
	}
	if msg.String() == "esc" {
		if m.busy {
			return m, nil
		}
		return m.goBack()
	}

	switch m.state {
	case stateShowSeatMap:
		return m.handleSeatMapKey(msg)
	case stateConcessions:
		return m.handleConcessionsKey(msg)
	case stateLogin:
		return m.handleLoginKey(msg)
	case stateHome:
		return m.handleHomeKey(msg)
	case stateCheckout:
		if msg.Type == tea.KeyEnter {
			return m.goHome()
		}
	case stateError:
		if msg.Type == tea.KeyEnter {
			return m.goBack()
		}
	}
	if msg.String() == "q" && !m.acceptsText() {
		m.events.Close()
		return m, tea.Quit
	}
	return m, nil
}

func (m appModel) handleSeatMapKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "left", "h":
		m.cursor = m.grid.move(m.cursor, 0, -1)
	case "right", "l":
		m.cursor = m.grid.move(m.cursor, 0, 1)
	case "up", "k":
		m.cursor = m.grid.move(m.cursor, -1, 0)
	case "down", "j":
		m.cursor = m.grid.move(m.cursor, 1, 0)
	case " ", "space":
		if id, ok := m.grid.seatAt(m.cursor); ok {
			m.view.Toggle(id)
		}
	case "n":
		m.showLabels = !m.showLabels
	case "r":
		m.state = stateLoadingSeats
		m.busy = true
		return m, tea.Batch(refreshCmd(m.view), m.spinner.Tick)
	case "enter":
		m.state = stateSubmitting
		m.busy = true
		return m, tea.Batch(submitCmd(m.view), m.spinner.Tick)
	case "q":
		m.events.Close()
		return m, tea.Quit
	}
	return m, nil
}

func (m appModel) handleConcessionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "+", "=", "right", "l":
		m.adjustSelectedProduct(1)
		return m, nil
	case "-", "_", "left", "h":
		m.adjustSelectedProduct(-1)
		return m, nil
	case "enter":
		m.state = stateConfirming
		m.busy = true
		return m, tea.Batch(confirmCmd(m.concessions), m.spinner.Tick)
	case "q":
		m.events.Close()
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.productList, cmd = m.productList.Update(msg)
	return m, cmd
}

func (m *appModel) adjustSelectedProduct(delta int) {
	item, ok := m.productList.SelectedItem().(productItem)
	if !ok || m.concessions == nil {
		return
	}
	if err := m.concessions.Adjust(item.product.ID, delta); err != nil {
		m.logger.Warn("adjust product", "product_id", item.product.ID, "err", err)
		return
	}
	m.refreshProductItems()
}

func (m appModel) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		id, err := config.ParseScheduleID(m.scheduleInput.Value())
		if err != nil {
			return m, notifyCmd(booking.Notice{Level: booking.LevelWarning, Text: err.Error()})
		}
		return m.openSchedule(id)
	case tea.KeyTab, tea.KeyShiftTab:
		if len(m.recents) == 0 {
			return m, nil
		}
		m.scheduleInput.SetValue(fmt.Sprint(m.nextRecent(msg.Type == tea.KeyTab).ScheduleID))
		m.scheduleInput.CursorEnd()
		return m, nil
	}
	var cmd tea.Cmd
	m.scheduleInput, cmd = m.scheduleInput.Update(msg)
	return m, cmd
}

// nextRecent cycles through recent schedules starting after the one in the input.
func (m appModel) nextRecent(forward bool) store.RecentSchedule {
	current := strings.TrimSpace(m.scheduleInput.Value())
	idx := -1
	for i, r := range m.recents {
		if fmt.Sprint(r.ScheduleID) == current {
			idx = i
			break
		}
	}
	n := len(m.recents)
	if forward {
		return m.recents[(idx+1)%n]
	}
	if idx <= 0 {
		return m.recents[n-1]
	}
	return m.recents[idx-1]
}

func (m appModel) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		return m.toggleLoginFocus()
	case tea.KeyEnter:
		if m.emailInput.Focused() {
			return m.toggleLoginFocus()
		}
		email := strings.TrimSpace(m.emailInput.Value())
		password := m.passwordInput.Value()
		if email == "" || password == "" {
			return m, notifyCmd(booking.Notice{Level: booking.LevelWarning, Text: "Email and password are required."})
		}
		m.state = stateLoggingIn
		m.busy = true
		return m, tea.Batch(m.loginCmd(email, password), m.spinner.Tick)
	}
	var cmd tea.Cmd
	if m.passwordInput.Focused() {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	} else {
		m.emailInput, cmd = m.emailInput.Update(msg)
	}
	return m, cmd
}

func (m appModel) toggleLoginFocus() (tea.Model, tea.Cmd) {
	if m.emailInput.Focused() {
		m.emailInput.Blur()
		return m, m.passwordInput.Focus()
	}
	m.passwordInput.Blur()
	return m, m.emailInput.Focus()
}

func (m appModel) finishLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.state = stateLogin
		text := "Login failed: " + service.ErrorMessage(msg.err)
		if service.IsUnauthorized(msg.err) {
			text = "Invalid email or password."
		}
		return m, notifyCmd(booking.Notice{Level: booking.LevelError, Text: text})
	}
	if err := m.deps.Storage.Set(store.KeyToken, msg.res.Token); err != nil {
		return m, errCmd(fmt.Errorf("save token: %w", err))
	}
	if err := m.deps.Storage.Set(store.KeyRole, string(msg.res.Role)); err != nil {
		return m, errCmd(fmt.Errorf("save role: %w", err))
	}
	m.passwordInput.Reset()
	m.logger.Info("logged in", "role", msg.res.Role)

	notice := notifyCmd(booking.Notice{Level: booking.LevelSuccess, Text: "Logged in."})
	if m.scheduleID > 0 {
		next, cmd := m.openSchedule(m.scheduleID)
		return next, tea.Batch(notice, cmd)
	}
	next, cmd := m.goHome()
	return next, tea.Batch(notice, cmd)
}

// openSchedule mounts a fresh seat view for the schedule and starts loading it.
func (m appModel) openSchedule(scheduleID int) (appModel, tea.Cmd) {
	m.scheduleID = scheduleID
	m.view = booking.NewSeatView(scheduleID, m.deps)
	m.view.Mount()
	m.grid = seatGrid{}
	m.cursor = seatCursor{}
	m.concessions = nil
	m.checkout = nil
	movie := ""
	if data, ok := m.deps.Session.SeatData(); ok && data.ScheduleID == scheduleID {
		movie = data.MovieName
	}
	if err := store.RememberSchedule(scheduleID, movie); err != nil {
		m.logger.Warn("remember schedule", "schedule_id", scheduleID, "err", err)
	}
	m.state = stateLoadingSeats
	m.busy = true
	return m, tea.Batch(refreshCmd(m.view), m.spinner.Tick)
}

// navigate applies a route requested by the booking screens.
func (m appModel) navigate(route string, snapshot *booking.SeatData) (appModel, tea.Cmd) {
	switch route {
	case booking.RouteLogin:
		m.busy = false
		m.state = stateLogin
		m.passwordInput.Blur()
		return m, m.emailInput.Focus()
	case booking.RouteHome:
		return m.goHome()
	case booking.RouteConcessions:
		if m.catalog == nil {
			m.busy = false
			return m, errCmd(errors.New("no product catalogue configured"))
		}
		m.concessions = booking.NewConcessions(m.catalog, m.deps)
		m.state = stateLoadingProducts
		m.busy = true
		return m, tea.Batch(loadProductsCmd(m.concessions), m.spinner.Tick)
	case booking.RouteCheckout:
		m.checkout = snapshot
		m.state = stateCheckout
		return m, nil
	default:
		m.logger.Warn("unknown route", "route", route)
		return m, nil
	}
}

// back handles a Back request from the booking screens.
func (m appModel) back() (appModel, tea.Cmd) {
	switch m.state {
	case stateLoadingProducts, stateConcessions, stateConfirming, stateCheckout:
		if m.scheduleID > 0 {
			return m.openSchedule(m.scheduleID)
		}
	}
	return m.goHome()
}

func (m appModel) goBack() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateShowSeatMap, stateLogin:
		return m.goHome()
	case stateConcessions:
		return m.openSchedule(m.scheduleID)
	case stateCheckout:
		m.state = stateConcessions
		m.refreshProductItems()
		return m, nil
	case stateError:
		m.state = m.lastState
		m.err = nil
		return m, nil
	default:
		return m, nil
	}
}

func (m appModel) goHome() (appModel, tea.Cmd) {
	m.busy = false
	m.state = stateHome
	m.view = nil
	m.concessions = nil
	m.emailInput.Blur()
	m.passwordInput.Blur()
	return m, tea.Batch(m.scheduleInput.Focus(), loadRecentsCmd())
}

func (m *appModel) syncGrid() {
	if m.view == nil {
		return
	}
	m.grid = buildSeatGrid(m.view.Snapshot().Seats)
	m.cursor = m.grid.clamp(m.cursor)
}

func (m *appModel) refreshProductItems() {
	if m.concessions == nil {
		m.productList.SetItems(nil)
		return
	}
	products := m.concessions.Products()
	items := make([]list.Item, 0, len(products))
	for _, p := range products {
		items = append(items, productItem{product: p, quantity: m.concessions.Quantity(p.ID)})
	}
	m.productList.SetItems(items)
	m.productList.Title = fmt.Sprintf("Concessions • subtotal %s", m.concessions.Subtotal().StringFixed(2))
}

func (m appModel) acceptsText() bool {
	return m.state == stateHome || m.state == stateLogin
}

func (m appModel) isLoadingState() bool {
	return m.state == stateLoadingSeats ||
		m.state == stateSubmitting ||
		m.state == stateLoadingProducts ||
		m.state == stateConfirming ||
		m.state == stateLoggingIn
}

func (m *appModel) resizeLists() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := max(m.height-8, 6)
	m.productList.SetSize(m.width, h)
}

func refreshCmd(view *booking.SeatView) tea.Cmd {
	return func() tea.Msg {
		view.Refresh(context.Background())
		return opDoneMsg{view: view}
	}
}

func submitCmd(view *booking.SeatView) tea.Cmd {
	return func() tea.Msg {
		view.Submit(context.Background())
		return opDoneMsg{view: view}
	}
}

func loadProductsCmd(c *booking.Concessions) tea.Cmd {
	return func() tea.Msg {
		return productsMsg{loaded: c.Load(context.Background())}
	}
}

func confirmCmd(c *booking.Concessions) tea.Cmd {
	return func() tea.Msg {
		c.Confirm(context.Background())
		return confirmDoneMsg{}
	}
}

func (m appModel) loginCmd(email string, password string) tea.Cmd {
	auth := m.auth
	return func() tea.Msg {
		if auth == nil {
			return loginMsg{err: errors.New("login is not available")}
		}
		res, err := auth.Login(context.Background(), email, password)
		return loginMsg{res: res, err: err}
	}
}

// showToast replaces the current toast and schedules its expiry.
func (m appModel) showToast(notice booking.Notice) (appModel, tea.Cmd) {
	m.toast = &notice
	m.toastID++
	id := m.toastID
	return m, tea.Tick(m.toastTTL, func(time.Time) tea.Msg {
		return clearToastMsg{id: id}
	})
}

func notifyCmd(notice booking.Notice) tea.Cmd {
	return func() tea.Msg {
		return toastMsg{notice: notice}
	}
}

func errCmd(err error) tea.Cmd {
	return func() tea.Msg {
		return errMsg{err: err}
	}
}

func recoverStateFrom(state appState) appState {
	switch state {
	case stateLoadingSeats, stateSubmitting:
		return stateShowSeatMap
	case stateLoadingProducts, stateConfirming:
		return stateConcessions
	case stateLoggingIn:
		return stateLogin
	case stateError:
		return stateHome
	default:
		return state
	}
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

func hint(text string) string {
	return lipgloss.NewStyle().Faint(true).Render(text)
}
