package reminder

import (
	"context"
	"math/rand"
	"sync"
	"time"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
)

// Notification is what a Deliverer sends to a task owner.
type Notification struct {
	TaskID           string      `json:"task_id"`
	TaskTitle        string      `json:"task_title"`
	DueDate          time.Time   `json:"due_date"`
	OwnerID          string      `json:"owner_id"`
	OwnerEmail       string      `json:"owner_email"`
	OwnerDisplayName string      `json:"owner_display_name"`
	Type             domain.Type `json:"reminder_type"`
	Message          string      `json:"message"`
	ComposedAt       time.Time   `json:"composed_at"`
}

// Deliverer sends a reminder notification. A nil error means delivered.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, n Notification) error

func (f DelivererFunc) Deliver(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Outcome decides whether a simulated delivery succeeds.
type Outcome func(n Notification) bool

// AlwaysSucceed delivers every notification.
func AlwaysSucceed() Outcome {
	return func(Notification) bool { return true }
}

// FailFor fails deliveries for the given task ids and succeeds for all others.
func FailFor(taskIDs ...string) Outcome {
	failing := make(map[string]struct{}, len(taskIDs))
	for _, taskID := range taskIDs {
		failing[taskID] = struct{}{}
	}
	return func(n Notification) bool {
		_, fail := failing[n.TaskID]
		return !fail
	}
}

// RandomOutcome succeeds with probability rate. rng may be nil, in which case
// a time-seeded source is used. The returned Outcome is safe for concurrent use.
func RandomOutcome(rate float64, rng *rand.Rand) Outcome {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var mu sync.Mutex
	return func(Notification) bool {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64() < rate
	}
}

const (
	// DefaultSuccessRate is the simulated delivery success probability.
	DefaultSuccessRate = 0.95
	// DefaultSimulatedDelay stands in for network latency.
	DefaultSimulatedDelay = 100 * time.Millisecond
)

// Simulator is a Deliverer that sends nothing. It waits Delay and then asks
// Outcome whether the delivery worked.
type Simulator struct {
	Delay   time.Duration
	Outcome Outcome
}

// NewSimulator returns a simulator with the default delay and success rate.
func NewSimulator(outcome Outcome) *Simulator {
	if outcome == nil {
		outcome = RandomOutcome(DefaultSuccessRate, nil)
	}
	return &Simulator{Delay: DefaultSimulatedDelay, Outcome: outcome}
}

// Deliver implements Deliverer.
func (s *Simulator) Deliver(ctx context.Context, n Notification) error {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	outcome := s.Outcome
	if outcome == nil {
		outcome = AlwaysSucceed()
	}
	if !outcome(n) {
		return alexerrors.NewDeliveryError(nil, "simulated delivery failed for "+n.OwnerEmail)
	}
	return nil
}
