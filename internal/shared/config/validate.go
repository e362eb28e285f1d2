package config

import (
	"fmt"
	"strings"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	ID      string
	Message string
	Hint    string
}

// ValidationReport summarizes config validation findings.
type ValidationReport struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// HasErrors reports whether the report contains blocking errors.
func (r ValidationReport) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err folds blocking errors into a single error, or nil.
func (r ValidationReport) Err() error {
	if !r.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, issue := range r.Errors {
		msgs = append(msgs, issue.Message)
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Validate checks backend selections and reminder tuning.
func Validate(cfg Config) ValidationReport {
	var report ValidationReport
	fail := func(id, msg, hint string) {
		report.Errors = append(report.Errors, ValidationIssue{ID: id, Message: msg, Hint: hint})
	}
	warn := func(id, msg, hint string) {
		report.Warnings = append(report.Warnings, ValidationIssue{ID: id, Message: msg, Hint: hint})
	}

	switch cfg.Store {
	case StoreMemory:
		warn("store-memory", "reminder records are kept in memory and lost on restart", "Set store: postgres for durable idempotency.")
	case StorePostgres:
		if strings.TrimSpace(cfg.Database.ConnectionString) == "" {
			fail("database-dsn", "postgres store requires a connection string", "Set TASKTRACKER_CONNECTION_STRING.")
		}
	case StoreRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			fail("redis-addr", "redis store requires an address", "Set TASKTRACKER_REDIS_ADDR.")
		}
		if strings.TrimSpace(cfg.Database.ConnectionString) == "" {
			fail("database-dsn", "redis store reads tasks from postgres and requires a connection string", "Set TASKTRACKER_CONNECTION_STRING.")
		}
	default:
		fail("store", fmt.Sprintf("unknown store %q", cfg.Store), "Use memory, postgres or redis.")
	}

	switch cfg.Deliverer {
	case DelivererSimulator:
	case DelivererAMQP:
		if strings.TrimSpace(cfg.AMQP.URL) == "" {
			fail("amqp-url", "amqp deliverer requires a broker URL", "Set TASKTRACKER_AMQP_URL.")
		}
		if strings.TrimSpace(cfg.AMQP.Exchange) == "" {
			fail("amqp-exchange", "amqp deliverer requires an exchange", "")
		}
	default:
		fail("deliverer", fmt.Sprintf("unknown deliverer %q", cfg.Deliverer), "Use simulator or amqp.")
	}

	r := cfg.Reminder
	if r.Interval <= 0 {
		fail("reminder-interval", "reminder interval must be positive", "")
	}
	if r.Window <= 0 {
		fail("reminder-window", "reminder window must be positive", "")
	}
	if r.Concurrency < 1 {
		fail("reminder-concurrency", "reminder concurrency must be at least 1", "")
	}
	if r.SuccessRate < 0 || r.SuccessRate > 1 {
		fail("success-rate", "simulated success rate must be between 0 and 1", "")
	}
	if r.RunTimeout < 0 {
		fail("run-timeout", "run timeout cannot be negative", "")
	}
	if r.RunTimeout > 0 && r.RunTimeout > r.Interval && r.Schedule == "" {
		warn("run-timeout", "run timeout exceeds the interval between runs", "")
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		fail("http-addr", "http address is required", "Set TASKTRACKER_HTTP_ADDR.")
	}
	return report
}
