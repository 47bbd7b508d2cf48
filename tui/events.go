package tui

import (
	"sync"

	"cinebook-cli/booking"
	tea "github.com/charmbracelet/bubbletea"
)

type noticeMsg struct {
	notice booking.Notice
}

type navigateMsg struct {
	route    string
	snapshot *booking.SeatData
}

type backMsg struct{}

// events carries notices and navigation requests from the booking screens,
// which may run on command goroutines, into the program loop. It implements
// booking.Notifier and booking.Navigator.
type events struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

func newEvents() *events {
	return &events{
		ch:   make(chan tea.Msg, 32),
		done: make(chan struct{}),
	}
}

func (e *events) Notify(notice booking.Notice) {
	e.send(noticeMsg{notice: notice})
}

func (e *events) Navigate(route string, snapshot *booking.SeatData) {
	e.send(navigateMsg{route: route, snapshot: snapshot})
}

func (e *events) Back() {
	e.send(backMsg{})
}

func (e *events) send(msg tea.Msg) {
	select {
	case <-e.done:
		return
	default:
	}
	select {
	case e.ch <- msg:
	case <-e.done:
	}
}

// listen waits for the next event. It must be re-issued after every event the
// model handles; after Close it yields nil.
func (e *events) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-e.ch:
			return msg
		case <-e.done:
			return nil
		}
	}
}

// Close stops delivery. Pending and later events are dropped.
func (e *events) Close() {
	e.once.Do(func() { close(e.done) })
}
