// Package orchestrator drives the per-section generate, verify, regenerate
// loop at the core of the Verified BRD pipeline: each section is drafted by
// the LLM, its claims extracted and checked against the code graph, and the
// section regenerated with targeted feedback until it clears the approval
// threshold or the iteration budget runs out.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/codesense-ai/brd-verifier/internal/assembler"
	"github.com/codesense-ai/brd-verifier/internal/claimextract"
	"github.com/codesense-ai/brd-verifier/internal/feedback"
	"github.com/codesense-ai/brd-verifier/internal/llmadapter"
	"github.com/codesense-ai/brd-verifier/internal/promptcompose"
	"github.com/codesense-ai/brd-verifier/internal/streaming"
	"github.com/codesense-ai/brd-verifier/internal/types"
	"github.com/codesense-ai/brd-verifier/internal/verifier"
)

// DefaultSectionConfigs is the template used when a run supplies no
// section configuration of its own.
func DefaultSectionConfigs() []types.SectionConfig {
	return []types.SectionConfig{
		{Name: "Executive Summary", TargetWords: 200, Required: true},
		{Name: "Objectives", TargetWords: 150, Required: true},
		{Name: "Functional Requirements", TargetWords: 400, Required: true},
		{Name: "Technical Specifications", TargetWords: 300, Required: true},
		{Name: "Non-Functional Requirements", TargetWords: 200, Required: false},
		{Name: "Dependencies and Risks", TargetWords: 150, Required: false},
	}
}

// Orchestrator is the entry point: generate_verified_brd.
type Orchestrator struct {
	adapter  *llmadapter.Adapter
	verifier *verifier.Verifier
}

// New builds an Orchestrator.
func New(adapter *llmadapter.Adapter, v *verifier.Verifier) *Orchestrator {
	return &Orchestrator{adapter: adapter, verifier: v}
}

// Options configures one run.
type Options struct {
	Config        types.VerificationConfig
	SectionConfig []types.SectionConfig
	DetailLevel   types.DetailLevel
}

// Result wraps a types.Artifact. GenerateVerifiedBRD returns
// *types.Artifact directly, not a Result.
type Result struct {
	Artifact types.Artifact
}

// GenerateVerifiedBRD runs the full pipeline over every configured section
// in order. ctx governs cancellation: on cancel, the loop stops at the next
// suspension point, does not persist partial state beyond what it returns,
// and the result carries Metadata.Cancelled = true with only the sections
// completed so far.
func (o *Orchestrator) GenerateVerifiedBRD(ctx context.Context, ac *types.AggregatedContext, opts Options) (*types.Artifact, error) {
	cfg := opts.Config
	sectionConfigs := opts.SectionConfig
	if len(sectionConfigs) == 0 {
		sectionConfigs = DefaultSectionConfigs()
	}
	detail := opts.DetailLevel
	if detail == "" {
		detail = types.DetailStandard
	}

	start := time.Now()
	metrics := types.Metrics{}
	var accepted []types.SectionResult
	cancelled := false

	streaming.Emit(ctx, types.StepSection, fmt.Sprintf("Starting BRD generation across %d sections", len(sectionConfigs)))

	for _, sectionCfg := range sectionConfigs {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		streaming.Emit(ctx, types.StepSection, fmt.Sprintf("Starting section %q", sectionCfg.Name))
		result, iterations, regenerations, sectionCancelled := o.runSection(ctx, sectionCfg, ac, accepted, cfg, detail)
		metrics.Iterations += iterations
		metrics.Regenerations += regenerations

		if sectionCancelled {
			cancelled = true
			break
		}

		for _, c := range result.Claims {
			if c.Status == types.StatusVerified {
				metrics.ClaimsVerified++
			} else {
				metrics.ClaimsFailed++
			}
		}

		accepted = append(accepted, result)
		streaming.Emit(ctx, types.StepSectionComplete, fmt.Sprintf("Section %q complete (confidence %.2f)", sectionCfg.Name, result.OverallConfidence))
	}

	brd, bundle := assembler.Assemble("Business Requirements Document", accepted)
	metrics.GenerationTimeMS = time.Since(start).Milliseconds()
	metrics.OverallConfidence = bundle.OverallConfidence
	metrics.HallucinationRisk = bundle.HallucinationRisk
	metrics.Cancelled = cancelled

	artifact := &types.Artifact{BRD: brd, Evidence: bundle, Metadata: metrics}
	return artifact, nil
}

// runSection implements the per-section loop body.
// It returns the accepted-or-best SectionResult, the iteration count, the
// regeneration count (iterations beyond the first), and whether
// cancellation interrupted the section before a result could be produced.
func (o *Orchestrator) runSection(
	ctx context.Context,
	sectionCfg types.SectionConfig,
	ac *types.AggregatedContext,
	previousSections []types.SectionResult,
	cfg types.VerificationConfig,
	detail types.DetailLevel,
) (types.SectionResult, int, int, bool) {
	var best *types.SectionResult
	var fb *feedback.Feedback
	iterations := 0

	maxIterations := cfg.MaxIterations
	if maxIterations < 1 {
		maxIterations = 1
	}

	for iter := 1; iter <= maxIterations; iter++ {
		if ctx.Err() != nil {
			if best != nil {
				return *best, iterations, iterations - 1, false
			}
			return types.SectionResult{}, iterations, iterations - 1, true
		}

		iterations = iter
		streaming.Emit(ctx, types.StepGenerator, fmt.Sprintf("Generating %q (iteration %d/%d)", sectionCfg.Name, iter, maxIterations))

		prompt := promptcompose.Generation(sectionCfg, ac, previousSections, fb, detail)
		generated, err := o.adapter.Complete(ctx, prompt, 0)
		if err != nil {
			generated = ""
		}

		if ctx.Err() != nil {
			if best != nil {
				return *best, iterations, iterations - 1, false
			}
			return types.SectionResult{}, iterations, iterations - 1, true
		}

		current := types.NewSectionResult(sectionCfg.Name)
		current.GeneratedText = generated

		streaming.Emit(ctx, types.StepClaims, fmt.Sprintf("Extracting claims for %q", sectionCfg.Name))
		extractionPrompt := promptcompose.Extraction(sectionCfg.Name, generated)
		extractionResponse, err := o.adapter.Complete(ctx, extractionPrompt, 0)
		if err == nil {
			current.Claims = claimextract.Parse(sectionCfg.Name, extractionResponse)
		}

		streaming.Emit(ctx, types.StepVerifier, fmt.Sprintf("Verifying %d claim(s) for %q", len(current.Claims), sectionCfg.Name))
		for i := range current.Claims {
			if ctx.Err() != nil {
				break
			}
			o.verifier.Verify(ctx, &current.Claims[i], cfg.Limits, cfg.MinConfidenceForApproval)
			if (i+1)%5 == 0 {
				streaming.Emit(ctx, types.StepVerifying, fmt.Sprintf("Verified %d/%d claims for %q", i+1, len(current.Claims), sectionCfg.Name))
			}
		}

		current.OverallConfidence = verifier.SectionConfidence(current.Claims)
		if len(current.Claims) == 0 {
			current.Issues = append(current.Issues, "no verifiable claims were extracted from this section")
		}

		if best == nil || current.OverallConfidence > best.OverallConfidence {
			bestCopy := current
			best = &bestCopy
		}

		if current.OverallConfidence >= cfg.MinConfidenceForApproval {
			return *best, iterations, iterations - 1, false
		}

		streaming.Emit(ctx, types.StepFeedback, fmt.Sprintf("Building feedback for %q (confidence %.2f)", sectionCfg.Name, current.OverallConfidence))
		fb = feedback.Build(&current)
	}

	return *best, iterations, iterations - 1, false
}
