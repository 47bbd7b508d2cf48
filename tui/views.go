package tui

import (
	"fmt"
	"strings"

	"cinebook-cli/booking"
	"cinebook-cli/model"
	"github.com/charmbracelet/lipgloss"
)

type productItem struct {
	product  model.Product
	quantity int
}

func (p productItem) Title() string {
	if p.quantity > 0 {
		return fmt.Sprintf("%s × %d", p.product.Name, p.quantity)
	}
	return p.product.Name
}

func (p productItem) Description() string {
	parts := []string{p.product.Price.StringFixed(2)}
	if p.product.Category != "" {
		parts = append(parts, p.product.Category)
	}
	return strings.Join(parts, " • ")
}

func (p productItem) FilterValue() string {
	return p.product.Name
}

var toastStyles = map[booking.Level]lipgloss.Style{
	booking.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	booking.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	booking.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	booking.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
}

func (m appModel) View() string {
	header := m.headerView()
	switch m.state {
	case stateLoadingSeats, stateSubmitting, stateLoadingProducts, stateConfirming, stateLoggingIn:
		return header + "\n\n" + m.loadingView()
	case stateShowSeatMap:
		return header + "\n\n" + m.seatMapView()
	case stateConcessions:
		return header + "\n\n" + m.productList.View()
	case stateCheckout:
		return header + "\n\n" + m.checkoutView()
	case stateLogin:
		return header + "\n\n" + m.loginView()
	case stateHome:
		return header + "\n\n" + m.homeView()
	case stateError:
		msg := "unknown error"
		if m.err != nil {
			msg = m.err.Error()
		}
		return header + "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(msg) + "\n\n" + hint("Press esc to go back or ctrl+c to quit.")
	default:
		return header
	}
}

func (m appModel) headerView() string {
	title := lipgloss.NewStyle().Bold(true).Render("Cinebook")
	sub := []string{}
	if m.scheduleID > 0 && m.state != stateHome {
		sub = append(sub, fmt.Sprintf("Schedule: %d", m.scheduleID))
	}
	if data, ok := m.deps.Session.SeatData(); ok && data.MovieName != "" {
		sub = append(sub, data.MovieName)
		if data.ShowDate != "" || data.ShowTime != "" {
			sub = append(sub, strings.TrimSpace(data.ShowDate+" "+data.ShowTime))
		}
	}
	if m.view != nil && (m.state == stateShowSeatMap || m.state == stateSubmitting) {
		sub = append(sub, fmt.Sprintf("Selected: %d/%d", len(m.view.Selected()), booking.MaxSeats))
	}
	meta := strings.Join(sub, " • ")
	if meta != "" {
		meta = "\n" + lipgloss.NewStyle().Faint(true).Render(meta)
	}

	hints := "ctrl+c quit • esc back"
	switch m.state {
	case stateShowSeatMap:
		hints = "ctrl+c quit • esc back • arrows/hjkl move • space toggle • enter reserve • r refresh • n toggle labels"
	case stateConcessions:
		hints = "ctrl+c quit • esc seats • ↑/↓ choose • +/- quantity • enter confirm"
	case stateLogin:
		hints = "ctrl+c quit • esc back • tab switch field • enter log in"
	case stateHome:
		hints = "ctrl+c quit • enter open schedule • tab cycle recent schedules"
	case stateCheckout:
		hints = "ctrl+c quit • esc edit products • enter done"
	}

	toast := ""
	if m.toast != nil {
		toast = "\n" + toastStyles[m.toast.Level].Render(m.toast.Text)
	}
	return title + meta + toast + "\n" + hint(hints)
}

func (m appModel) loadingView() string {
	title := "Loading"
	switch m.state {
	case stateLoadingSeats:
		title = "Loading seats"
	case stateSubmitting:
		title = "Reserving seats"
	case stateLoadingProducts:
		title = "Loading products"
	case stateConfirming:
		title = "Updating order"
	case stateLoggingIn:
		title = "Logging in"
	}
	return fmt.Sprintf("%s %s\n\n%s", m.spinner.View(), title, hint("Talking to the box office..."))
}

func (m appModel) seatMapView() string {
	if m.view == nil {
		return "No schedule selected."
	}
	return renderSeatMap(m.grid, m.view.SeatState, m.cursor, m.showLabels)
}

func (m appModel) loginView() string {
	return strings.Join([]string{
		lipgloss.NewStyle().Bold(true).Render("Log in"),
		"",
		m.emailInput.View(),
		m.passwordInput.View(),
	}, "\n")
}

func (m appModel) homeView() string {
	var b strings.Builder
	b.WriteString(m.scheduleInput.View())
	if len(m.recents) > 0 {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Render("Recent schedules"))
		for _, r := range m.recents {
			line := fmt.Sprintf("  %d", r.ScheduleID)
			if r.MovieName != "" {
				line += "  " + r.MovieName
			}
			b.WriteString("\n" + line)
		}
	}
	return b.String()
}

func (m appModel) checkoutView() string {
	if m.checkout == nil {
		return "Nothing to check out."
	}
	data := m.checkout
	label := lipgloss.NewStyle().Faint(true).Width(12)
	rows := []string{
		lipgloss.NewStyle().Bold(true).Render("Order summary"),
		"",
	}
	add := func(name string, value string) {
		if value != "" {
			rows = append(rows, label.Render(name)+value)
		}
	}
	add("Movie", data.MovieName)
	add("Room", data.CinemaRoomName)
	add("Show", strings.TrimSpace(data.ShowDate+" "+data.ShowTime))
	add("Seats", strings.Join(data.SelectedSeats, ", "))
	add("Tickets", data.TotalPrice.StringFixed(2))
	add("Products", data.ProductsTotal.StringFixed(2))
	rows = append(rows, label.Render("Total")+lipgloss.NewStyle().Bold(true).Render(data.GrandTotal.StringFixed(2)))

	panel := lipgloss.NewStyle().
		Padding(1, 3).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("63")).
		Render(strings.Join(rows, "\n"))
	return panel + "\n" + hint("Seats are held for your session. Complete payment on the web checkout.")
}
