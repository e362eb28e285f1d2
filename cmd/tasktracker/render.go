package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// useColor reports whether stdout is an interactive terminal.
func useColor() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && !color.NoColor
}

func paint(enabled bool, fn func(a ...any) string, s string) string {
	if !enabled {
		return s
	}
	return fn(s)
}

// renderPending prints pending reminders as an aligned table.
func renderPending(w io.Writer, pending []domain.PendingReminder, colorize bool) {
	if len(pending) == 0 {
		fmt.Fprintln(w, paint(colorize, gray, "No pending reminders."))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, paint(colorize, bold, "TASK\tTYPE\tDUE IN\tOWNER\tSTATUS"))
	for _, p := range pending {
		status := paint(colorize, yellow, "pending")
		if p.AlreadySent {
			status = paint(colorize, gray, "sent")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			truncate(p.TaskTitle, 40), p.Type, formatDueIn(p.TimeUntilDue), p.OwnerEmail, status)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d pending reminder(s)\n", len(pending))
}

// renderBatch prints a batch result summary followed by any errors.
func renderBatch(w io.Writer, result domain.BatchResult, colorize bool) {
	fmt.Fprintf(w, "%s %d pending, %d processed\n",
		paint(colorize, bold, "Batch:"), result.TotalPending, result.ProcessedCount)
	fmt.Fprintf(w, "  %s %d\n", paint(colorize, green, "successful:"), result.SuccessfulCount)
	failed := fmt.Sprintf("failed: %d", result.FailedCount)
	if result.FailedCount > 0 {
		failed = paint(colorize, red, failed)
	}
	fmt.Fprintf(w, "  %s\n", failed)
	fmt.Fprintf(w, "  %s %d\n", paint(colorize, gray, "skipped:"), result.SkippedCount)
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  %s %s\n", paint(colorize, red, "error:"), msg)
	}
}

func formatDueIn(d time.Duration) string {
	if d < 0 {
		return "overdue " + (-d).Round(time.Minute).String()
	}
	return d.Round(time.Minute).String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
