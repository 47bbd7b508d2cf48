package tui

import (
	"fmt"
	"sort"
	"strings"

	"cinebook-cli/booking"
	"cinebook-cli/model"
	"github.com/charmbracelet/lipgloss"
)

// seatGrid lays seats out with one line per column letter and seats ordered
// by number inside a line.
type seatGrid struct {
	labels  []string
	numbers [][]int
	seats   map[string]model.SeatRecord
	maxNum  int
}

type seatCursor struct {
	line int
	idx  int
}

func buildSeatGrid(seats []model.SeatRecord) seatGrid {
	byLine := map[string][]int{}
	g := seatGrid{seats: make(map[string]model.SeatRecord, len(seats))}
	for _, seat := range seats {
		if seat.Column == "" || seat.Row <= 0 {
			continue
		}
		id := seat.SeatID()
		if _, dup := g.seats[id]; dup {
			continue
		}
		g.seats[id] = seat
		byLine[seat.Column] = append(byLine[seat.Column], seat.Row)
		g.maxNum = max(g.maxNum, seat.Row)
	}

	for label := range byLine {
		g.labels = append(g.labels, label)
	}
	sort.Slice(g.labels, func(i, j int) bool {
		a, b := g.labels[i], g.labels[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	g.numbers = make([][]int, len(g.labels))
	for i, label := range g.labels {
		nums := byLine[label]
		sort.Ints(nums)
		g.numbers[i] = nums
	}
	return g
}

func (g seatGrid) empty() bool {
	return len(g.labels) == 0
}

func (g seatGrid) seatAt(c seatCursor) (string, bool) {
	if c.line < 0 || c.line >= len(g.labels) {
		return "", false
	}
	nums := g.numbers[c.line]
	if c.idx < 0 || c.idx >= len(nums) {
		return "", false
	}
	return fmt.Sprintf("%s%d", g.labels[c.line], nums[c.idx]), true
}

// clamp keeps the cursor on an existing seat.
func (g seatGrid) clamp(c seatCursor) seatCursor {
	if g.empty() {
		return seatCursor{}
	}
	c.line = min(max(c.line, 0), len(g.labels)-1)
	c.idx = min(max(c.idx, 0), len(g.numbers[c.line])-1)
	return c
}

func (g seatGrid) move(c seatCursor, dLine int, dIdx int) seatCursor {
	if g.empty() {
		return seatCursor{}
	}
	c = g.clamp(c)
	if dLine == 0 {
		c.idx += dIdx
		return g.clamp(c)
	}

	number := g.numbers[c.line][c.idx]
	c.line = min(max(c.line+dLine, 0), len(g.labels)-1)
	c.idx = nearestIndex(g.numbers[c.line], number)
	return c
}

func nearestIndex(nums []int, target int) int {
	best := 0
	for i, n := range nums {
		if abs(n-target) < abs(nums[best]-target) {
			best = i
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var (
	seatStyleAvailable = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	seatStyleVIP       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	seatStyleSelected  = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	seatStyleMine      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	seatStyleHeld      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	seatStyleBooked    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	seatStyleUnknown   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func seatToken(seat model.SeatRecord, state booking.SeatState) (string, lipgloss.Style) {
	switch state {
	case booking.StateSelected:
		return "<>", seatStyleSelected
	case booking.StateMine:
		return "()", seatStyleMine
	case booking.StateHeld:
		return "..", seatStyleHeld
	case booking.StateBooked:
		return "XX", seatStyleBooked
	case booking.StateAvailable:
		if seat.Type == model.SeatVIP {
			return "{}", seatStyleVIP
		}
		return "[]", seatStyleAvailable
	default:
		return "??", seatStyleUnknown
	}
}

type seatTally struct {
	available int
	selected  int
	mine      int
	held      int
	booked    int
	total     int
}

func renderSeatMap(grid seatGrid, stateOf func(string) booking.SeatState, cursor seatCursor, showLabels bool) string {
	if grid.empty() {
		return "No seat map data."
	}

	rowWidth := 1
	for _, label := range grid.labels {
		rowWidth = max(rowWidth, len(label))
	}
	cellWidth := 2
	if showLabels {
		for id := range grid.seats {
			cellWidth = max(cellWidth, len(id))
		}
	}
	cursor = grid.clamp(cursor)
	cursorID, _ := grid.seatAt(cursor)

	var tally seatTally
	var b strings.Builder
	for i, label := range grid.labels {
		present := make(map[int]bool, len(grid.numbers[i]))
		for _, n := range grid.numbers[i] {
			present[n] = true
		}

		b.WriteString(fmt.Sprintf("%*s ", rowWidth, label))
		for n := 1; n <= grid.maxNum; n++ {
			if !present[n] {
				b.WriteString(padCell("", cellWidth))
			} else {
				id := fmt.Sprintf("%s%d", label, n)
				state := stateOf(id)
				tally.add(state)
				token, style := seatToken(grid.seats[id], state)
				text := token
				if showLabels {
					text = id
				}
				if id == cursorID {
					style = style.Reverse(true)
				}
				b.WriteString(style.Render(padCell(text, cellWidth)))
			}
			if n < grid.maxNum {
				b.WriteString(" ")
			}
		}
		b.WriteString(fmt.Sprintf(" %-*s\n", rowWidth, label))
	}

	gridWidth := grid.maxNum*(cellWidth+1) - 1
	screenStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("214"))
	screenBorderStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Background(lipgloss.Color("236"))
	screenBar := screenBarBlock(gridWidth, "SCREEN")
	indent := strings.Repeat(" ", rowWidth+1)

	b.WriteString("\n")
	b.WriteString(indent + screenBorderStyle.Render(screenBar.top) + "\n")
	b.WriteString(indent + screenStyle.Render(screenBar.mid) + "\n")
	b.WriteString(indent + screenBorderStyle.Render(screenBar.bot) + "\n\n")

	legend := "Legend: [] available • {} VIP • <> selected • () held by you • .. held • XX booked"
	if showLabels {
		legend = "Legend: colour shows status • labels are seat ids"
	}
	counts := fmt.Sprintf("Available: %d • Selected: %d/%d • Yours: %d • Held: %d • Booked: %d • Total: %d",
		tally.available, tally.selected, booking.MaxSeats, tally.mine, tally.held, tally.booked, tally.total)
	return b.String() + hint(legend) + "\n" + hint(counts)
}

func (t *seatTally) add(state booking.SeatState) {
	t.total++
	switch state {
	case booking.StateAvailable:
		t.available++
	case booking.StateSelected:
		t.selected++
	case booking.StateMine:
		t.mine++
	case booking.StateHeld:
		t.held++
	case booking.StateBooked:
		t.booked++
	}
}

func padCell(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if text == "" {
		return strings.Repeat(" ", width)
	}
	if len(text) >= width {
		return text[:width]
	}
	padding := width - len(text)
	left := padding / 2
	right := padding - left
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", right)
}

type screenBlock struct {
	top string
	mid string
	bot string
}

func screenBarBlock(width int, label string) screenBlock {
	width = max(width, len(label)+4, 10)

	border := "╭" + strings.Repeat("─", width-2) + "╮"
	bottom := "╰" + strings.Repeat("─", width-2) + "╯"

	labelText := " " + label + " "
	padding := width - len(labelText) - 2
	left := padding / 2
	right := padding - left
	mid := "│" + strings.Repeat(" ", left) + labelText + strings.Repeat(" ", right) + "│"
	return screenBlock{top: border, mid: mid, bot: bottom}
}
