// Package bootstrap assembles the reminder service and its backends from
// configuration and runs the HTTP server and the scheduled worker.
package bootstrap

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
)

// Stage is one initialization step.
type Stage struct {
	Name     string
	Required bool // failure aborts startup; otherwise the component is marked degraded
	Init     func(ctx context.Context) error
}

// DegradedComponents tracks optional stages that failed.
type DegradedComponents struct {
	mu         sync.RWMutex
	components map[string]string
}

func NewDegradedComponents() *DegradedComponents {
	return &DegradedComponents{components: make(map[string]string)}
}

// Record marks a component as degraded.
func (d *DegradedComponents) Record(name, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.components[name] = reason
}

// Map returns a snapshot of all degraded components.
func (d *DegradedComponents) Map() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.components)
}

// IsEmpty reports whether nothing is degraded.
func (d *DegradedComponents) IsEmpty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.components) == 0
}

// RunStages executes stages in order, stopping at the first required failure.
func RunStages(ctx context.Context, stages []Stage, degraded *DegradedComponents, logger logging.Logger) error {
	logger = logging.OrNop(logger)
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("[Bootstrap] stage %s (required=%v)", stage.Name, stage.Required)
		if err := stage.Init(ctx); err != nil {
			if stage.Required {
				return fmt.Errorf("required stage %q failed: %w", stage.Name, err)
			}
			logger.Warn("[Bootstrap] optional stage %q failed: %v (continuing degraded)", stage.Name, err)
			if degraded != nil {
				degraded.Record(stage.Name, err.Error())
			}
		}
	}
	return nil
}
