// Package reminder defines the domain types for due-date reminders.
// A reminder is identified by the (task, reminder type, due date) triple;
// at most one Record exists per triple.
package reminder

import (
	"fmt"
	"strings"
	"time"
)

// Type is the urgency classification of a reminder.
type Type string

const (
	TypeOneHour         Type = "1Hour"
	TypeFourHours       Type = "4Hours"
	TypeTwentyFourHours Type = "24Hours"
)

// Types lists every reminder type from most to least urgent.
var Types = []Type{TypeOneHour, TypeFourHours, TypeTwentyFourHours}

// ParseReminderType converts a wire string into a Type.
func ParseReminderType(raw string) (Type, error) {
	switch t := Type(strings.TrimSpace(raw)); t {
	case TypeOneHour, TypeFourHours, TypeTwentyFourHours:
		return t, nil
	default:
		return "", fmt.Errorf("unknown reminder type %q", raw)
	}
}

// Valid reports whether t is one of the known reminder types.
func (t Type) Valid() bool {
	_, err := ParseReminderType(string(t))
	return err == nil
}

func (t Type) rank() int {
	switch t {
	case TypeOneHour:
		return 0
	case TypeFourHours:
		return 1
	case TypeTwentyFourHours:
		return 2
	default:
		return 3
	}
}

// Less orders types by urgency: OneHour < FourHours < TwentyFourHours.
func (t Type) Less(other Type) bool {
	return t.rank() < other.rank()
}

func (t Type) String() string {
	return string(t)
}

// TaskStatus mirrors the lifecycle of a task owned by the task service.
type TaskStatus int

const (
	TaskNew TaskStatus = iota
	TaskInProgress
	TaskCompleted
	TaskArchived
)

// IsTerminal reports whether the task no longer needs reminders.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskArchived
}

func (s TaskStatus) String() string {
	switch s {
	case TaskNew:
		return "New"
	case TaskInProgress:
		return "InProgress"
	case TaskCompleted:
		return "Completed"
	case TaskArchived:
		return "Archived"
	default:
		return fmt.Sprintf("TaskStatus(%d)", int(s))
	}
}

const (
	unknownOwnerEmail = "unknown@example.com"
	unknownOwnerName  = "Unknown"
)

// Task is the reminder subsystem's view of a task and its owner.
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	DueDate          time.Time  `json:"due_date"`
	OwnerID          string     `json:"owner_id"`
	OwnerEmail       string     `json:"owner_email"`
	OwnerDisplayName string     `json:"owner_display_name"`
	Status           TaskStatus `json:"status"`
}

// HasDueDate reports whether the task carries a due date.
func (t Task) HasDueDate() bool {
	return !t.DueDate.IsZero()
}

// WithOwnerFallbacks fills owner contact fields that the lookup left empty.
func (t Task) WithOwnerFallbacks() Task {
	if strings.TrimSpace(t.OwnerEmail) == "" {
		t.OwnerEmail = unknownOwnerEmail
	}
	if strings.TrimSpace(t.OwnerDisplayName) == "" {
		t.OwnerDisplayName = unknownOwnerName
	}
	return t
}

// Key is the idempotency key of a reminder.
type Key struct {
	TaskID  string
	Type    Type
	DueDate time.Time
}

// DueDatePrecision is the resolution at which due dates take part in the key.
// It matches Postgres timestamptz so every store agrees on equality.
const DueDatePrecision = time.Microsecond

// NewKey builds a normalized key (UTC, microsecond precision).
func NewKey(taskID string, reminderType Type, dueDate time.Time) Key {
	return Key{
		TaskID:  taskID,
		Type:    reminderType,
		DueDate: NormalizeDueDate(dueDate),
	}
}

// NormalizeDueDate strips monotonic readings, converts to UTC and truncates to
// DueDatePrecision.
func NormalizeDueDate(dueDate time.Time) time.Time {
	return dueDate.UTC().Truncate(DueDatePrecision)
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.TaskID, k.Type, k.DueDate.UnixNano())
}

// PendingReminder is a task inside the reminder window annotated with whether
// its current reminder was already sent. It is derived on every query.
type PendingReminder struct {
	TaskID           string        `json:"task_id"`
	TaskTitle        string        `json:"task_title"`
	DueDate          time.Time     `json:"due_date"`
	OwnerID          string        `json:"owner_user_id"`
	OwnerEmail       string        `json:"owner_email"`
	OwnerDisplayName string        `json:"owner_display_name"`
	Type             Type          `json:"reminder_type"`
	AlreadySent      bool          `json:"has_reminder_been_sent"`
	TimeUntilDue     time.Duration `json:"-"`
}

// HoursUntilDue is TimeUntilDue as signed fractional hours.
func (p PendingReminder) HoursUntilDue() float64 {
	return p.TimeUntilDue.Hours()
}

// Key returns the idempotency key of the pending reminder.
func (p PendingReminder) Key() Key {
	return NewKey(p.TaskID, p.Type, p.DueDate)
}

// Record is one persisted delivery attempt.
type Record struct {
	ID                 string    `json:"id"`
	TaskID             string    `json:"task_id"`
	UserID             string    `json:"user_id"`
	DueDateAtSend      time.Time `json:"task_due_date"`
	Type               Type      `json:"reminder_type"`
	SentAt             time.Time `json:"reminder_sent_at"`
	DeliverySuccessful bool      `json:"delivery_successful"`
	DeliveryDetails    string    `json:"delivery_details,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Key returns the idempotency key of the record.
func (r Record) Key() Key {
	return NewKey(r.TaskID, r.Type, r.DueDateAtSend)
}

// MaxDeliveryDetails bounds the stored delivery details.
const MaxDeliveryDetails = 500

// Delivery detail strings recorded when the caller gives none.
const (
	DetailsDelivered = "Reminder sent successfully"
	DetailsFailed    = "Failed to send reminder"
)

// TruncateDetails clips details to MaxDeliveryDetails runes.
func TruncateDetails(details string) string {
	runes := []rune(details)
	if len(runes) <= MaxDeliveryDetails {
		return details
	}
	return string(runes[:MaxDeliveryDetails])
}

// BatchResult summarizes one orchestration pass.
type BatchResult struct {
	TotalPending     int      `json:"total_pending"`
	ProcessedCount   int      `json:"processed_count"`
	SuccessfulCount  int      `json:"successful_count"`
	FailedCount      int      `json:"failed_count"`
	SkippedCount     int      `json:"skipped_count"`
	ProcessedTaskIDs []string `json:"processed_task_ids"`
	Errors           []string `json:"errors"`
}

// NewBatchResult returns an empty result with non-nil slices.
func NewBatchResult(totalPending int) BatchResult {
	return BatchResult{
		TotalPending:     totalPending,
		ProcessedTaskIDs: []string{},
		Errors:           []string{},
	}
}
