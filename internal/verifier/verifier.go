// Package verifier implements the Claim Verifier: direct graph queries per
// claim, evidence attachment with fixed weights, and the confidence rule.
// No LLM call ever sits in this path; the direct-query path is the only
// path that ever sets Claim.Confidence. Verification within one run is
// sequential and single-threaded.
package verifier

import (
	"context"
	"fmt"

	"github.com/codesense-ai/brd-verifier/internal/fsclient"
	"github.com/codesense-ai/brd-verifier/internal/graphclient"
	"github.com/codesense-ai/brd-verifier/internal/types"
)

const (
	entityEvidenceWeight  = 0.95
	patternEvidenceWeight = 0.90
)

// Config holds the verifier's own knobs, separate from
// types.VerificationLimits (which bounds query counts).
type Config struct {
	// ConfidenceWhenUnparseable is never read by the direct-query path
	// below; it exists purely so a caller who builds an LLM-parsed advisory
	// path of their own (which this package does not do) has somewhere to
	// put a default, rather than silently assuming 0.5.
	ConfidenceWhenUnparseable float64
}

// DefaultConfig leaves the unparseable-confidence default at 0.
func DefaultConfig() Config {
	return Config{ConfidenceWhenUnparseable: 0}
}

// Verifier issues direct backend queries per claim.
type Verifier struct {
	graph graphclient.Service
	fs    fsclient.Service
	cfg   Config
}

// New builds a Verifier. fs may be nil if no filesystem-based verification
// is wired; this implementation verifies purely against the graph, but the
// field is kept so a future filesystem-backed entity search has a home
// without an interface change.
func New(graphSvc graphclient.Service, fsSvc fsclient.Service, cfg Config) *Verifier {
	return &Verifier{graph: graphSvc, fs: fsSvc, cfg: cfg}
}

// Verify mutates claim's Evidence/Status/Confidence in place.
// It never returns an error: a failed backend query simply contributes no
// evidence for that entity/pattern and verification continues.
func (v *Verifier) Verify(ctx context.Context, claim *types.Claim, limits types.VerificationLimits, minConfidence float64) {
	entities := claim.MentionedEntities
	if len(entities) > limits.MaxEntitiesPerClaim {
		entities = entities[:limits.MaxEntitiesPerClaim]
	}
	for _, entity := range entities {
		v.verifyEntity(ctx, claim, entity, limits)
	}

	patterns := claim.SearchPatterns
	if len(patterns) > limits.MaxPatternsPerClaim {
		patterns = patterns[:limits.MaxPatternsPerClaim]
	}
	for _, pattern := range patterns {
		v.verifyPattern(ctx, claim, pattern, limits)
	}

	claim.Confidence = strongestWeight(claim.Evidence)
	if len(claim.Evidence) == 0 {
		claim.Status = types.StatusUnverified
		claim.Confidence = 0
		return
	}
	if claim.Confidence >= minConfidence {
		claim.Status = types.StatusVerified
	} else {
		claim.Status = types.StatusUnverified
	}
}

func (v *Verifier) verifyEntity(ctx context.Context, claim *types.Claim, entity string, limits types.VerificationLimits) {
	query := fmt.Sprintf(`MATCH (n) WHERE n.name CONTAINS %q OR n.qualified_name CONTAINS %q RETURN n LIMIT %d`,
		entity, entity, limits.ResultsPerQuery)

	result, err := v.graph.Query(ctx, query)
	if err != nil || len(result.Nodes) == 0 {
		return
	}

	refs := nodesToCodeRefs(result.Nodes, limits.CodeRefsPerEvidence)
	claim.Evidence = append(claim.Evidence, types.EvidenceItem{
		Source:      types.SourceGraph,
		Kind:        "entity_match",
		Description: fmt.Sprintf("found %d graph node(s) matching %q", len(result.Nodes), entity),
		Query:       query,
		CodeRefs:    refs,
		Weight:      entityEvidenceWeight,
	})
}

func (v *Verifier) verifyPattern(ctx context.Context, claim *types.Claim, pattern string, limits types.VerificationLimits) {
	query := fmt.Sprintf(`MATCH (n) WHERE toLower(n.name) =~ %q OR toLower(n.qualified_name) =~ %q RETURN n LIMIT %d`,
		regexQuery(pattern), regexQuery(pattern), limits.ResultsPerQuery)

	result, err := v.graph.Query(ctx, query)
	if err != nil || len(result.Nodes) == 0 {
		return
	}

	refs := nodesToCodeRefs(result.Nodes, limits.CodeRefsPerEvidence)
	claim.Evidence = append(claim.Evidence, types.EvidenceItem{
		Source:      types.SourceGraph,
		Kind:        "pattern_match",
		Description: fmt.Sprintf("found %d graph node(s) matching pattern %q", len(result.Nodes), pattern),
		Query:       query,
		CodeRefs:    refs,
		Weight:      patternEvidenceWeight,
	})
}

func regexQuery(pattern string) string {
	return ".*" + pattern + ".*"
}

func nodesToCodeRefs(nodes []graphclient.Node, limit int) []types.CodeRef {
	if limit <= 0 || limit > len(nodes) {
		limit = len(nodes)
	}
	refs := make([]types.CodeRef, 0, limit)
	for _, n := range nodes[:limit] {
		refs = append(refs, types.CodeRef{
			FilePath:   n.FilePath,
			StartLine:  n.StartLine,
			EndLine:    n.EndLine,
			EntityName: n.Name,
			EntityType: primaryLabel(n.Labels),
		})
	}
	return refs
}

func primaryLabel(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

func strongestWeight(evidence []types.EvidenceItem) float64 {
	strongest := 0.0
	for _, e := range evidence {
		if e.Weight > strongest {
			strongest = e.Weight
		}
	}
	return strongest
}

// SectionConfidence computes the arithmetic mean of claim confidences.
// An empty claim list yields 0, not 1.
func SectionConfidence(claims []types.Claim) float64 {
	if len(claims) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range claims {
		total += c.Confidence
	}
	return total / float64(len(claims))
}

// RunConfidence computes the arithmetic mean of section confidences.
func RunConfidence(sections []types.SectionResult) float64 {
	if len(sections) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range sections {
		total += s.OverallConfidence
	}
	return total / float64(len(sections))
}

// HallucinationRisk maps a run-level confidence to the tri-state risk:
// >=0.8 Low, >=0.5 Medium, else High.
func HallucinationRisk(confidence float64) types.HallucinationRisk {
	switch {
	case confidence >= 0.8:
		return types.RiskLow
	case confidence >= 0.5:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}
