package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"rtsched/internal/model"
	"rtsched/internal/sched"
)

// Sprint color functions for building styled strings.
var (
	Bold       = color.New(color.Bold).SprintFunc()
	Dim        = color.New(color.Faint).SprintFunc()
	Green      = color.New(color.FgGreen).SprintFunc()
	Yellow     = color.New(color.FgYellow).SprintFunc()
	BoldCyan   = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldRed    = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow = color.New(color.Bold, color.FgYellow).SprintFunc()
)

// PrintResult renders one schedule as a table followed by a summary line.
func PrintResult(w io.Writer, res *sched.Result, total int) {
	fmt.Fprintf(w, "%s\n", BoldCyan(res.Name))
	fmt.Fprintf(w, "  %s\n", Dim(fmt.Sprintf("%6s %6s %10s %10s %10s %8s", "task", "node", "start", "end", "deadline", "slack")))

	for _, e := range res.Schedule {
		slack := e.Deadline - e.EndTime
		fmt.Fprintf(w, "  %6d %6d %10s %10s %10s %s\n",
			e.TaskID, e.NodeID,
			formatTime(e.StartTime), formatTime(e.EndTime), formatTime(e.Deadline),
			slackCell(slack, e.Deadline))
	}

	summary := fmt.Sprintf("%d/%d scheduled, makespan %s", len(res.Schedule), total, formatTime(res.Makespan()))
	if len(res.Dropped) == 0 {
		fmt.Fprintf(w, "  %s %s\n\n", Green("✓"), summary)
		return
	}
	ids := make([]string, len(res.Dropped))
	for i, id := range res.Dropped {
		ids[i] = strconv.Itoa(int(id))
	}
	fmt.Fprintf(w, "  %s %s, dropped: %s\n\n", Yellow("⊘"), summary, BoldYellow(strings.Join(ids, " ")))
}

// PrintFailure renders an algorithm that produced no schedule.
func PrintFailure(w io.Writer, name string, err error) {
	fmt.Fprintf(w, "%s\n  %s %v\n\n", BoldCyan(name), BoldRed("✗"), err)
}

// slackCell colors slack that is under a tenth of the deadline.
func slackCell(slack, deadline model.Time) string {
	cell := fmt.Sprintf("%8s", formatTime(slack))
	if slack < deadline/10 {
		return Yellow(cell)
	}
	return cell
}

func formatTime(t model.Time) string {
	return strconv.FormatFloat(float64(t), 'f', -1, 64)
}
