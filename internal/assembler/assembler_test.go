package assembler

import (
	"strings"
	"testing"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

// One verified claim in the first section, none elsewhere.
func scenarioSections() []types.SectionResult {
	return []types.SectionResult{
		{
			Name:          "Executive Summary",
			GeneratedText: "The BRDGenerator reverse-engineers features into documents.",
			Claims: []types.Claim{
				{Text: "mentions BRDGenerator", Status: types.StatusVerified, Confidence: 0.95,
					Evidence: []types.EvidenceItem{{Source: types.SourceGraph, Weight: 0.95}}},
			},
			OverallConfidence: 0.95,
		},
		{
			Name:              "Functional Requirements",
			GeneratedText:     "- FR: Generate BRD from request",
			Claims:            []types.Claim{},
			OverallConfidence: 0,
		},
		{
			Name:              "Dependencies and Risks",
			GeneratedText:     "- Depends on graph service\n- Risk of stale graph data",
			Claims:            []types.Claim{},
			OverallConfidence: 0,
		},
	}
}

func TestAssembleScenarioFullyVerifiedBRD(t *testing.T) {
	brd, bundle := Assemble("Business Requirements Document", scenarioSections())

	if len(bundle.Sections) != 3 {
		t.Fatalf("expected exactly three sections, got %d", len(bundle.Sections))
	}
	if bundle.TotalClaims != 1 || bundle.VerifiedClaims != 1 {
		t.Errorf("expected 1/1 claims, got %d/%d", bundle.VerifiedClaims, bundle.TotalClaims)
	}

	// mean(0.95, 0, 0) < 0.5 -> High
	if bundle.HallucinationRisk != types.RiskHigh {
		t.Errorf("expected High hallucination risk, got %s", bundle.HallucinationRisk)
	}

	if len(brd.FunctionalRequirements) != 1 {
		t.Fatalf("expected one functional requirement, got %v", brd.FunctionalRequirements)
	}
	if brd.FunctionalRequirements[0] != "FR-001: FR: Generate BRD from request" {
		t.Errorf("unexpected FR numbering: %q", brd.FunctionalRequirements[0])
	}
}

func TestAssembleMarkdownStructure(t *testing.T) {
	brd, _ := Assemble("Business Requirements Document", scenarioSections())

	if !strings.HasPrefix(brd.RawMarkdown, "# Business Requirements Document\n") {
		t.Errorf("markdown must open with the document title, got %q", brd.RawMarkdown[:40])
	}
	for _, heading := range []string{"## Executive Summary", "## Functional Requirements", "## Dependencies and Risks"} {
		if !strings.Contains(brd.RawMarkdown, heading) {
			t.Errorf("markdown missing heading %q", heading)
		}
	}
	// Section order in the markdown matches processing order.
	execIdx := strings.Index(brd.RawMarkdown, "## Executive Summary")
	frIdx := strings.Index(brd.RawMarkdown, "## Functional Requirements")
	if execIdx > frIdx {
		t.Error("sections must appear in processing order")
	}
	if brd.BusinessContext != "The BRDGenerator reverse-engineers features into documents." {
		t.Errorf("business context should be the Executive Summary body, got %q", brd.BusinessContext)
	}
}

func TestAssembleSplitsDependenciesAndRisks(t *testing.T) {
	brd, _ := Assemble("BRD", scenarioSections())

	if len(brd.Dependencies) != 1 || brd.Dependencies[0] != "Depends on graph service" {
		t.Errorf("unexpected dependencies %v", brd.Dependencies)
	}
	if len(brd.Risks) != 1 || brd.Risks[0] != "Risk of stale graph data" {
		t.Errorf("unexpected risks %v", brd.Risks)
	}
}

func TestAssembleTechnicalRequirementsSpanTwoSections(t *testing.T) {
	sections := []types.SectionResult{
		{Name: "Technical Specifications", GeneratedText: "- Uses Neo4j for the code graph"},
		{Name: "Non-Functional Requirements", GeneratedText: "- P95 latency under 300ms"},
	}
	brd, _ := Assemble("BRD", sections)

	if len(brd.TechnicalRequirements) != 2 {
		t.Fatalf("expected TRs from both sections, got %v", brd.TechnicalRequirements)
	}
	if brd.TechnicalRequirements[0] != "TR-001: Uses Neo4j for the code graph" ||
		brd.TechnicalRequirements[1] != "TR-002: P95 latency under 300ms" {
		t.Errorf("unexpected TR numbering: %v", brd.TechnicalRequirements)
	}
}

func TestAssembleEmptyRun(t *testing.T) {
	brd, bundle := Assemble("BRD", nil)

	if bundle.TotalClaims != 0 || bundle.OverallConfidence != 0 {
		t.Errorf("empty run must roll up to zero, got %d claims / %f confidence", bundle.TotalClaims, bundle.OverallConfidence)
	}
	if bundle.HallucinationRisk != types.RiskHigh {
		t.Errorf("empty run is High risk, got %s", bundle.HallucinationRisk)
	}
	if brd.RawMarkdown == "" {
		t.Error("even an empty run produces a titled document")
	}
}
