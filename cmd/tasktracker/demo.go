package main

import (
	"time"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
)

// demoTasks returns one task per reminder type plus three the default
// window excludes: overdue, undated and too far out.
func demoTasks(now time.Time) []domain.Task {
	return []domain.Task{
		{ID: "demo-1", Title: "Submit expense report", DueDate: now.Add(45 * time.Minute), OwnerID: "demo-user-1", OwnerEmail: "alice@example.com", OwnerDisplayName: "Alice"},
		{ID: "demo-2", Title: "Review pull request", DueDate: now.Add(3 * time.Hour), OwnerID: "demo-user-2", OwnerEmail: "bob@example.com", OwnerDisplayName: "Bob"},
		{ID: "demo-3", Title: "Prepare sprint demo", DueDate: now.Add(20 * time.Hour), OwnerID: "demo-user-1", OwnerEmail: "alice@example.com", OwnerDisplayName: "Alice"},
		{ID: "demo-4", Title: "Renew certificate", DueDate: now.Add(-2 * time.Hour), OwnerID: "demo-user-3"},
		{ID: "demo-5", Title: "Plan offsite", OwnerID: "demo-user-2"},
		{ID: "demo-6", Title: "Quarterly review", DueDate: now.Add(72 * time.Hour), OwnerID: "demo-user-3"},
	}
}
