package cmd

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"cinebook-cli/config"
	"cinebook-cli/model"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
)

func newSeatsCmd(rt *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seats <scheduleId>",
		Short: "Print the seat map of a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduleID, err := config.ParseScheduleID(args[0])
			if err != nil {
				return err
			}
			seats, err := rt.client.GetSeats(cmd.Context(), scheduleID)
			if err != nil {
				return fmt.Errorf("load seats for schedule %d: %w", scheduleID, err)
			}
			if len(seats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No seats for this schedule.")
				return nil
			}
			renderSeatTable(cmd.OutOrStdout(), seats)
			return nil
		},
	}
}

func renderSeatTable(w io.Writer, seats []model.SeatRecord) {
	lines := map[string]map[int]model.SeatRecord{}
	counts := map[model.SeatStatus]int{}
	maxRow := 0
	for _, seat := range seats {
		if seat.Column == "" || seat.Row <= 0 {
			continue
		}
		if lines[seat.Column] == nil {
			lines[seat.Column] = map[int]model.SeatRecord{}
		}
		lines[seat.Column][seat.Row] = seat
		counts[seat.Status]++
		maxRow = max(maxRow, seat.Row)
	}

	labels := maps.Keys(lines)
	sort.Slice(labels, func(i, j int) bool {
		if len(labels[i]) != len(labels[j]) {
			return len(labels[i]) < len(labels[j])
		}
		return labels[i] < labels[j]
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	header := table.Row{""}
	for n := 1; n <= maxRow; n++ {
		header = append(header, n)
	}
	t.AppendHeader(header)
	for _, label := range labels {
		row := table.Row{label}
		for n := 1; n <= maxRow; n++ {
			seat, ok := lines[label][n]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, seatSymbol(seat))
		}
		t.AppendRow(row)
	}
	t.Render()

	statuses := maps.Keys(counts)
	slices.Sort(statuses)
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, fmt.Sprintf("%s %d", status, counts[status]))
	}
	fmt.Fprintln(w, "Legend: [] available • {} VIP • .. held • XX booked")
	fmt.Fprintln(w, strings.Join(parts, " • "))
}

func seatSymbol(seat model.SeatRecord) string {
	switch seat.Status {
	case model.SeatAvailable:
		if seat.Type == model.SeatVIP {
			return "{}"
		}
		return "[]"
	case model.SeatHold:
		return ".."
	case model.SeatBooked:
		return "XX"
	default:
		return "??"
	}
}
