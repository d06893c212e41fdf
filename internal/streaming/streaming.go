// Package streaming carries a context-bound progress reporter through the
// orchestrator so every component can emit progress without a callback
// parameter threaded through every function signature.
package streaming

import "github.com/codesense-ai/brd-verifier/internal/types"

// ProgressFunc is the external callback boundary: (step_code, detail).
type ProgressFunc func(step types.StepCode, detail string)

// ProgressReporter is the interface the orchestrator and its collaborators
// call into. Implementations must never panic and must be safe for
// sequential use within one run.
type ProgressReporter interface {
	Report(step types.StepCode, detail string) error
	IsEnabled() bool
}

// Config toggles whether reporting is active at all, independent of whether
// a reporter is wired in.
type Config struct {
	Enabled bool
}

// DefaultConfig enables reporting; a nil ProgressFunc still makes Report a
// no-op, so enabling costs nothing when no one is listening.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// DefaultReporter adapts a ProgressFunc into a ProgressReporter. A nil fn
// makes every Report call a safe no-op, so callers can always call
// progress methods without a nil check.
type DefaultReporter struct {
	fn      ProgressFunc
	enabled bool
}

// NewDefaultReporter builds a reporter around fn. Passing a nil fn is valid
// and yields a reporter that silently drops every call.
func NewDefaultReporter(fn ProgressFunc) *DefaultReporter {
	return &DefaultReporter{fn: fn, enabled: true}
}

func (r *DefaultReporter) Report(step types.StepCode, detail string) error {
	if r == nil || r.fn == nil || !r.enabled {
		return nil
	}
	r.fn(step, detail)
	return nil
}

func (r *DefaultReporter) IsEnabled() bool {
	return r != nil && r.enabled
}

var _ ProgressReporter = (*DefaultReporter)(nil)
