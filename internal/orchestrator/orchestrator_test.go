package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/codesense-ai/brd-verifier/internal/graphclient"
	"github.com/codesense-ai/brd-verifier/internal/llmadapter"
	"github.com/codesense-ai/brd-verifier/internal/llmsession"
	"github.com/codesense-ai/brd-verifier/internal/streaming"
	"github.com/codesense-ai/brd-verifier/internal/types"
	"github.com/codesense-ai/brd-verifier/internal/verifier"
)

// fakeGraph returns nodes for every query, so every claim verifies with
// strong evidence -- useful for exercising the accept-on-first-iteration
// path.
type fakeGraph struct {
	empty bool
}

func (g *fakeGraph) Query(ctx context.Context, cypherLike string) (graphclient.QueryResult, error) {
	if g.empty {
		return graphclient.QueryResult{}, nil
	}
	return graphclient.QueryResult{
		Nodes: []graphclient.Node{
			{Name: "PaymentProcessor", Labels: []string{"Class"}, FilePath: "payments/processor.go", StartLine: 10, EndLine: 80},
		},
	}, nil
}

func newTestOrchestrator(t *testing.T, responses []string, graphEmpty bool) *Orchestrator {
	t.Helper()
	session := llmsession.NewMockSession(responses)
	adapter, err := llmadapter.New(session, nil, llmadapter.Config{FallbackMode: true, DefaultTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("llmadapter.New: %v", err)
	}
	v := verifier.New(&fakeGraph{empty: graphEmpty}, nil, verifier.DefaultConfig())
	return New(adapter, v)
}

const claimsResponse = "```json\n" +
	`[{"text": "The PaymentProcessor validates incoming transactions", "kind": "functional", ` +
	`"mentioned_entities": ["PaymentProcessor"], "search_patterns": ["validate"]}]` +
	"\n```"

func testContext() *types.AggregatedContext {
	return &types.AggregatedContext{
		Request: "describe the payment processing feature",
		Components: []types.Component{
			{Name: "PaymentProcessor", Kind: "class", Path: "payments/processor.go"},
		},
	}
}

func TestGenerateVerifiedBRD_AcceptsOnFirstIterationWithEvidence(t *testing.T) {
	responses := []string{"## Section\n\nThe payment processor validates transactions.", claimsResponse}
	o := newTestOrchestrator(t, responses, false)

	cfg := types.DefaultVerificationConfig()
	sections := []types.SectionConfig{{Name: "Functional Requirements", Required: true}}

	artifact, err := o.GenerateVerifiedBRD(context.Background(), testContext(), Options{
		Config:        cfg,
		SectionConfig: sections,
	})
	if err != nil {
		t.Fatalf("GenerateVerifiedBRD: %v", err)
	}
	if artifact.Metadata.Iterations != 1 {
		t.Errorf("expected a single iteration when the section is accepted immediately, got %d", artifact.Metadata.Iterations)
	}
	if artifact.Metadata.Regenerations != 0 {
		t.Errorf("expected zero regenerations, got %d", artifact.Metadata.Regenerations)
	}
	if artifact.Metadata.Cancelled {
		t.Error("run should not be marked cancelled")
	}
	if artifact.Evidence.TotalClaims == 0 {
		t.Error("expected at least one extracted claim")
	}
	if artifact.Metadata.OverallConfidence <= 0 {
		t.Errorf("expected positive confidence, got %f", artifact.Metadata.OverallConfidence)
	}
}

// With an empty graph no claim ever verifies, so the loop runs to
// MaxIterations and still returns the best (lowest-confidence) attempt
// rather than erroring.
func TestGenerateVerifiedBRD_ExhaustsIterationsWithNoEvidence(t *testing.T) {
	responses := []string{"## Section\n\nSome narrative text.", claimsResponse}
	o := newTestOrchestrator(t, responses, true)

	cfg := types.DefaultVerificationConfig()
	cfg.MaxIterations = 2
	sections := []types.SectionConfig{{Name: "Functional Requirements", Required: true}}

	artifact, err := o.GenerateVerifiedBRD(context.Background(), testContext(), Options{
		Config:        cfg,
		SectionConfig: sections,
	})
	if err != nil {
		t.Fatalf("GenerateVerifiedBRD: %v", err)
	}
	if artifact.Metadata.Iterations != 2 {
		t.Errorf("expected the loop to exhaust both iterations, got %d", artifact.Metadata.Iterations)
	}
	if artifact.Metadata.Regenerations != 1 {
		t.Errorf("expected exactly one regeneration, got %d", artifact.Metadata.Regenerations)
	}
	if artifact.Metadata.HallucinationRisk != types.RiskHigh {
		t.Errorf("expected high hallucination risk with no verified claims, got %s", artifact.Metadata.HallucinationRisk)
	}
}

func TestGenerateVerifiedBRD_ZeroClaimsYieldsZeroConfidence(t *testing.T) {
	responses := []string{"## Section\n\nNo extractable claims here.", "not json at all"}
	o := newTestOrchestrator(t, responses, false)

	cfg := types.DefaultVerificationConfig()
	cfg.MaxIterations = 1
	sections := []types.SectionConfig{{Name: "Executive Summary", Required: true}}

	artifact, err := o.GenerateVerifiedBRD(context.Background(), testContext(), Options{
		Config:        cfg,
		SectionConfig: sections,
	})
	if err != nil {
		t.Fatalf("GenerateVerifiedBRD: %v", err)
	}
	if len(artifact.Evidence.Sections) != 1 {
		t.Fatalf("expected one section result, got %d", len(artifact.Evidence.Sections))
	}
	if artifact.Evidence.Sections[0].OverallConfidence != 0 {
		t.Errorf("expected zero confidence for a section with no claims, got %f", artifact.Evidence.Sections[0].OverallConfidence)
	}
}

func TestGenerateVerifiedBRD_CancellationStopsBeforeNextSection(t *testing.T) {
	responses := []string{"## Section\n\nSome text.", claimsResponse}
	o := newTestOrchestrator(t, responses, true)

	cfg := types.DefaultVerificationConfig()
	cfg.MaxIterations = 1
	sections := []types.SectionConfig{
		{Name: "Executive Summary", Required: true},
		{Name: "Objectives", Required: true},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	artifact, err := o.GenerateVerifiedBRD(ctx, testContext(), Options{
		Config:        cfg,
		SectionConfig: sections,
	})
	if err != nil {
		t.Fatalf("GenerateVerifiedBRD: %v", err)
	}
	if !artifact.Metadata.Cancelled {
		t.Error("expected the run to be marked cancelled when ctx is already done")
	}
	if len(artifact.Evidence.Sections) != 0 {
		t.Errorf("expected no sections to complete once cancelled before the first iteration, got %d", len(artifact.Evidence.Sections))
	}
}

// keyedGraph only resolves entities whose name appears in known, so a
// claim naming anything else gathers no evidence.
type keyedGraph struct {
	known string
}

func (g *keyedGraph) Query(ctx context.Context, cypherLike string) (graphclient.QueryResult, error) {
	if !strings.Contains(cypherLike, g.known) {
		return graphclient.QueryResult{}, nil
	}
	return graphclient.QueryResult{
		Nodes: []graphclient.Node{{Name: g.known, Labels: []string{"Class"}, FilePath: "internal/aggregator/aggregator.go"}},
	}, nil
}

// TestGenerateVerifiedBRD_FeedbackDrivenRecovery walks the regeneration
// path: iteration 1 claims an entity the graph cannot resolve, iteration 2
// (after feedback) claims one it can.
func TestGenerateVerifiedBRD_FeedbackDrivenRecovery(t *testing.T) {
	badClaims := "```json\n" +
		`[{"text": "NonexistentService handles aggregation", "kind": "technical", ` +
		`"mentioned_entities": ["NonexistentService"], "search_patterns": []}]` + "\n```"
	goodClaims := "```json\n" +
		`[{"text": "ContextAggregator builds the context", "kind": "technical", ` +
		`"mentioned_entities": ["ContextAggregator"], "search_patterns": []}]` + "\n```"
	responses := []string{
		"## Section\n\nNonexistentService handles aggregation.", badClaims,
		"## Section\n\nContextAggregator builds the context.", goodClaims,
	}

	session := llmsession.NewMockSession(responses)
	adapter, err := llmadapter.New(session, nil, llmadapter.Config{FallbackMode: true, DefaultTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("llmadapter.New: %v", err)
	}
	v := verifier.New(&keyedGraph{known: "ContextAggregator"}, nil, verifier.DefaultConfig())
	o := New(adapter, v)

	cfg := types.DefaultVerificationConfig()
	sections := []types.SectionConfig{{Name: "Technical Specifications", Required: true}}

	artifact, err := o.GenerateVerifiedBRD(context.Background(), testContext(), Options{
		Config:        cfg,
		SectionConfig: sections,
	})
	if err != nil {
		t.Fatalf("GenerateVerifiedBRD: %v", err)
	}
	if artifact.Metadata.Regenerations != 1 {
		t.Errorf("expected exactly one regeneration, got %d", artifact.Metadata.Regenerations)
	}
	if artifact.Metadata.OverallConfidence < cfg.MinConfidenceForApproval {
		t.Errorf("expected recovered confidence >= %f, got %f", cfg.MinConfidenceForApproval, artifact.Metadata.OverallConfidence)
	}
	section := artifact.Evidence.Sections[0]
	if len(section.Claims) != 1 || section.Claims[0].Status != types.StatusVerified {
		t.Errorf("expected the recovered claim to be Verified, got %+v", section.Claims)
	}
}

// failingSession models a dead LLM backend: every call errors.
type failingSession struct{}

func (failingSession) SendAndWait(ctx context.Context, prompt string, timeout int64) (llmsession.Event, error) {
	return llmsession.Event{}, errors.New("llm backend down")
}

func (failingSession) SendAndStream(ctx context.Context, prompt string) (<-chan llmsession.Event, error) {
	return nil, errors.New("llm backend down")
}

func (failingSession) RegisterSkills(skillDirs []string) error { return nil }

// With every LLM call failing, the run still yields all declared sections,
// each with zero claims and confidence 0, and iterations equal to
// MaxIterations times the section count.
func TestGenerateVerifiedBRD_LLMFailureStillProducesBRD(t *testing.T) {
	adapter, err := llmadapter.New(failingSession{}, nil, llmadapter.Config{FallbackMode: false, DefaultTimeout: time.Second})
	if err != nil {
		t.Fatalf("llmadapter.New: %v", err)
	}
	v := verifier.New(&fakeGraph{empty: true}, nil, verifier.DefaultConfig())
	o := New(adapter, v)

	cfg := types.DefaultVerificationConfig()
	sections := []types.SectionConfig{
		{Name: "Executive Summary", Required: true},
		{Name: "Objectives", Required: true},
	}

	artifact, err := o.GenerateVerifiedBRD(context.Background(), testContext(), Options{
		Config:        cfg,
		SectionConfig: sections,
	})
	if err != nil {
		t.Fatalf("GenerateVerifiedBRD: %v", err)
	}
	if got, want := artifact.Metadata.Iterations, cfg.MaxIterations*len(sections); got != want {
		t.Errorf("expected %d iterations, got %d", want, got)
	}
	if len(artifact.Evidence.Sections) != len(sections) {
		t.Fatalf("expected all %d sections present, got %d", len(sections), len(artifact.Evidence.Sections))
	}
	for _, s := range artifact.Evidence.Sections {
		if len(s.Claims) != 0 || s.OverallConfidence != 0 {
			t.Errorf("section %q should have no claims and zero confidence, got %d claims / %f", s.Name, len(s.Claims), s.OverallConfidence)
		}
	}
	if artifact.Metadata.HallucinationRisk != types.RiskHigh {
		t.Errorf("expected High risk, got %s", artifact.Metadata.HallucinationRisk)
	}
}

func TestDefaultSectionConfigs(t *testing.T) {
	configs := DefaultSectionConfigs()
	if len(configs) == 0 {
		t.Fatal("expected a non-empty default section template")
	}
	seen := map[string]bool{}
	for _, c := range configs {
		if c.Name == "" {
			t.Error("section config must have a name")
		}
		seen[c.Name] = true
	}
	if !seen["Executive Summary"] || !seen["Functional Requirements"] {
		t.Error("default template must include Executive Summary and Functional Requirements")
	}
}

func TestGenerateVerifiedBRD_ProgressOrdering(t *testing.T) {
	responses := []string{"## Section\n\nThe payment processor validates transactions.", claimsResponse}
	o := newTestOrchestrator(t, responses, false)

	var steps []types.StepCode
	reporter := streaming.NewDefaultReporter(func(step types.StepCode, detail string) {
		steps = append(steps, step)
	})
	ctx := streaming.WithReporter(context.Background(), reporter)
	ctx = streaming.WithConfig(ctx, streaming.Config{Enabled: true})

	cfg := types.DefaultVerificationConfig()
	sections := []types.SectionConfig{{Name: "Functional Requirements", Required: true}}

	if _, err := o.GenerateVerifiedBRD(ctx, testContext(), Options{Config: cfg, SectionConfig: sections}); err != nil {
		t.Fatalf("GenerateVerifiedBRD: %v", err)
	}

	if len(steps) == 0 {
		t.Fatal("expected progress steps to be emitted")
	}
	first, last := steps[0], steps[len(steps)-1]
	if first != types.StepSection {
		t.Errorf("expected the run to open with StepSection, got %s", first)
	}
	if last != types.StepSectionComplete {
		t.Errorf("expected the run to close with StepSectionComplete, got %s", last)
	}
}
