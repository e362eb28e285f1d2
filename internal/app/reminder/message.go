package reminder

import (
	"fmt"
	"time"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
)

// composeMessage renders the human-readable reminder text.
func composeMessage(p domain.PendingReminder) string {
	if p.TimeUntilDue < 0 {
		return fmt.Sprintf("Reminder: %s was due %s ago.", p.TaskTitle, formatDuration(-p.TimeUntilDue))
	}
	return fmt.Sprintf("Reminder: %s is due in %s.", p.TaskTitle, formatDuration(p.TimeUntilDue))
}

// formatDuration renders a duration as a short human-readable string
// (e.g. "30m", "2h", "1h30m"), rounded to the minute.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
}

func newNotification(p domain.PendingReminder, now time.Time) Notification {
	return Notification{
		TaskID:           p.TaskID,
		TaskTitle:        p.TaskTitle,
		DueDate:          p.DueDate,
		OwnerID:          p.OwnerID,
		OwnerEmail:       p.OwnerEmail,
		OwnerDisplayName: p.OwnerDisplayName,
		Type:             p.Type,
		Message:          composeMessage(p),
		ComposedAt:       now,
	}
}
