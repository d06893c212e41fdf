package streaming

import (
	"context"
	"log"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey int

const (
	reporterKey contextKey = iota
	configKey
)

// WithReporter returns a new context carrying the given ProgressReporter.
func WithReporter(ctx context.Context, reporter ProgressReporter) context.Context {
	return context.WithValue(ctx, reporterKey, reporter)
}

// GetReporter retrieves the ProgressReporter from ctx. Returns a
// DefaultReporter with a nil ProgressFunc (every Report is a no-op) if none
// is set, so callers never need a nil check.
func GetReporter(ctx context.Context) ProgressReporter {
	if reporter, ok := ctx.Value(reporterKey).(ProgressReporter); ok {
		return reporter
	}
	return NewDefaultReporter(nil)
}

// WithConfig returns a new context carrying the given Config.
func WithConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// GetConfig retrieves the Config from ctx, defaulting to DefaultConfig().
func GetConfig(ctx context.Context) Config {
	if cfg, ok := ctx.Value(configKey).(Config); ok {
		return cfg
	}
	return DefaultConfig()
}

// ProgressError wraps a progress-reporting failure with the step it
// occurred during. Progress callback failures are logged and swallowed,
// never allowed to abort the run.
type ProgressError struct {
	Step types.StepCode
	Err  error
}

func (e *ProgressError) Error() string {
	return "streaming: step " + string(e.Step) + " failed: " + e.Err.Error()
}

func (e *ProgressError) Unwrap() error {
	return e.Err
}

// Emit reports step/detail via ctx's reporter and swallows any error after
// logging it. Emission is best-effort, handled in one place so callers
// never wrap progress calls in their own recovery.
func Emit(ctx context.Context, step types.StepCode, detail string) {
	reporter := GetReporter(ctx)
	if !GetConfig(ctx).Enabled || !reporter.IsEnabled() {
		return
	}
	if err := reporter.Report(step, detail); err != nil {
		log.Printf("[streaming] progress report failed at step %s: %v", step, err)
	}
}
