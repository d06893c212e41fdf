package streaming

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

func TestDefaultConfigEnabled(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Enabled)
}

func TestGetReporterWithoutContextIsSafe(t *testing.T) {
	reporter := GetReporter(context.Background())
	assert.NotNil(t, reporter)
	assert.NoError(t, reporter.Report(types.StepSection, "no panic"))
}

func TestWithReporterRoundTrips(t *testing.T) {
	var got []types.StepCode
	reporter := NewDefaultReporter(func(step types.StepCode, detail string) {
		got = append(got, step)
	})

	ctx := WithReporter(context.Background(), reporter)
	Emit(ctx, types.StepContext, "building context")
	Emit(ctx, types.StepSection, "section 1")

	assert.Equal(t, []types.StepCode{types.StepContext, types.StepSection}, got)
}

func TestEmitDisabledConfigIsNoop(t *testing.T) {
	var called bool
	reporter := NewDefaultReporter(func(step types.StepCode, detail string) {
		called = true
	})

	ctx := WithReporter(context.Background(), reporter)
	ctx = WithConfig(ctx, Config{Enabled: false})
	Emit(ctx, types.StepContext, "should not fire")

	assert.False(t, called)
}

func TestNilProgressFuncIsSafe(t *testing.T) {
	reporter := NewDefaultReporter(nil)
	assert.NoError(t, reporter.Report(types.StepVerifier, "detail"))
}
