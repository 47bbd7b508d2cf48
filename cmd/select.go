package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"cinebook-cli/booking"
	"cinebook-cli/config"
	"cinebook-cli/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// console prints booking notices and records where the booking core wanted to go.
type console struct {
	w        io.Writer
	route    string
	snapshot *booking.SeatData
	backs    int
}

func (c *console) Notify(notice booking.Notice) {
	fmt.Fprintf(c.w, "%s: %s\n", notice.Level, notice.Text)
}

func (c *console) Navigate(route string, snapshot *booking.SeatData) {
	c.route = route
	c.snapshot = snapshot
}

func (c *console) Back() {
	c.backs++
}

// interrupted reports a navigation that ends a non-interactive run.
func (c *console) interrupted() error {
	switch {
	case c.route == booking.RouteLogin:
		return fmt.Errorf("not logged in: run `%s login` first", appName)
	case c.route == booking.RouteHome:
		return errors.New("booking session expired")
	case c.backs > 0:
		return errors.New("schedule is not available")
	}
	return nil
}

func newSelectCmd(rt *cli) *cobra.Command {
	var dryRun bool
	c := &cobra.Command{
		Use:   "select <scheduleId> <seat>...",
		Short: "Hold seats for a schedule",
		Long:  "Loads the seat map, selects the given seats (for example A1 A2) and holds them for a new booking session.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduleID, err := config.ParseScheduleID(args[0])
			if err != nil {
				return err
			}
			seats := normalizeSeatArgs(args[1:])
			if len(seats) > booking.MaxSeats {
				return fmt.Errorf("at most %d seats can be selected, got %d", booking.MaxSeats, len(seats))
			}

			var storage booking.Storage = rt.storage
			if dryRun {
				mem := store.NewMemoryKV()
				if token, ok := rt.storage.Get(store.KeyToken); ok {
					_ = mem.Set(store.KeyToken, token)
				}
				storage = mem
			}

			out := &console{w: cmd.ErrOrStderr()}
			view := booking.NewSeatView(scheduleID, booking.Deps{
				API:       rt.client,
				Storage:   storage,
				Notifier:  out,
				Navigator: out,
				Logger:    rt.logger,
			})
			view.Mount()
			view.Refresh(cmd.Context())
			if out.route != "" || out.backs > 0 {
				return out.interrupted()
			}
			if !view.Snapshot().Loaded {
				return errors.New("seat map could not be loaded")
			}

			for _, seat := range seats {
				if !view.Toggle(seat) {
					return fmt.Errorf("seat %s cannot be selected (%s)", seat, stateLabel(view.SeatState(seat)))
				}
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Would hold: %s\n", strings.Join(view.Selected(), ", "))
				return nil
			}

			view.Submit(cmd.Context())
			if out.route != booking.RouteConcessions || out.snapshot == nil {
				if err := out.interrupted(); err != nil {
					return err
				}
				return errors.New("seats were not held")
			}
			if err := store.RememberSchedule(scheduleID, out.snapshot.MovieName); err != nil {
				rt.logger.Warn("remember schedule", "schedule_id", scheduleID, "err", err)
			}
			renderSummary(cmd.OutOrStdout(), *out.snapshot)
			return nil
		},
	}
	c.Flags().BoolVar(&dryRun, "dry-run", false, "check the seats can be selected without holding them")
	return c
}

func normalizeSeatArgs(args []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			id := strings.ToUpper(strings.TrimSpace(part))
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func stateLabel(state booking.SeatState) string {
	switch state {
	case booking.StateAvailable:
		return "available"
	case booking.StateSelected:
		return "selected"
	case booking.StateMine:
		return "held by you"
	case booking.StateHeld:
		return "held by someone else"
	case booking.StateBooked:
		return "booked"
	default:
		return "not on the seat map"
	}
}

func renderSummary(w io.Writer, data booking.SeatData) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Seats held")
	add := func(name string, value string) {
		if value != "" {
			t.AppendRow(table.Row{name, value})
		}
	}
	add("Movie", data.MovieName)
	add("Room", data.CinemaRoomName)
	add("Show", strings.TrimSpace(data.ShowDate+" "+data.ShowTime))
	add("Seats", strings.Join(data.SelectedSeats, ", "))
	t.AppendSeparator()
	add("Tickets", data.TotalPrice.StringFixed(2))
	add("Products", data.ProductsTotal.StringFixed(2))
	add("Total", data.GrandTotal.StringFixed(2))
	t.Render()
}
