package id

import "context"

type contextKey string

const (
	runKey         contextKey = "tasktracker_run_id"
	correlationKey contextKey = "tasktracker_correlation_id"
	triggerKey     contextKey = "tasktracker_trigger"
)

// IDs captures the identifiers propagated through a reminder processing run.
type IDs struct {
	RunID         string
	CorrelationID string
	Trigger       string
}

// WithRunID stores the current run identifier on the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey, runID)
}

// WithCorrelationID stores the correlation identifier on the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey, correlationID)
}

// WithTrigger records which entry point started the run ("scheduler", "http").
func WithTrigger(ctx context.Context, trigger string) context.Context {
	if trigger == "" {
		return ctx
	}
	return context.WithValue(ctx, triggerKey, trigger)
}

// RunIDFromContext extracts the run identifier from context.
func RunIDFromContext(ctx context.Context) string {
	return stringValue(ctx, runKey)
}

// CorrelationIDFromContext extracts the correlation identifier from context.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationKey)
}

// TriggerFromContext extracts the trigger name from context.
func TriggerFromContext(ctx context.Context) string {
	return stringValue(ctx, triggerKey)
}

// IDsFromContext collects all known identifiers from the context.
func IDsFromContext(ctx context.Context) IDs {
	return IDs{
		RunID:         RunIDFromContext(ctx),
		CorrelationID: CorrelationIDFromContext(ctx),
		Trigger:       TriggerFromContext(ctx),
	}
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
