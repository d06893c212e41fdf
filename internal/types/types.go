// Package types holds the data model shared across the orchestrator and its
// collaborators: aggregated code context, claims and evidence, section
// results, and the final BRD artifact.
package types

import "time"

// Metadata is the free-form bag attached to AggregatedContext and to
// step-result plumbing in the decompose package.
type Metadata map[string]interface{}

// ClaimKind classifies a Claim by the kind of statement it makes.
type ClaimKind string

const (
	ClaimTechnical   ClaimKind = "technical"
	ClaimFunctional  ClaimKind = "functional"
	ClaimIntegration ClaimKind = "integration"
	ClaimGeneral     ClaimKind = "general"
)

// ClaimStatus is the verification state of a Claim.
type ClaimStatus string

const (
	StatusUnverified   ClaimStatus = "Unverified"
	StatusVerified     ClaimStatus = "Verified"
	StatusContradicted ClaimStatus = "Contradicted"
)

// HallucinationRisk is the run-level tri-state risk rollup.
type HallucinationRisk string

const (
	RiskLow    HallucinationRisk = "Low"
	RiskMedium HallucinationRisk = "Medium"
	RiskHigh   HallucinationRisk = "High"
)

// DetailLevel controls how much prose the generation prompt asks for.
type DetailLevel string

const (
	DetailConcise  DetailLevel = "concise"
	DetailStandard DetailLevel = "standard"
	DetailDetailed DetailLevel = "detailed"
)

// EvidenceSource names which backend produced an EvidenceItem.
type EvidenceSource string

const (
	SourceGraph      EvidenceSource = "graph"
	SourceFilesystem EvidenceSource = "filesystem"
)

// StepCode is the stable progress-callback enumeration callers use to
// render UI stages.
type StepCode string

const (
	StepContext         StepCode = "context"
	StepNeo4j           StepCode = "neo4j"
	StepFilesystem      StepCode = "filesystem"
	StepSection         StepCode = "section"
	StepGenerator       StepCode = "generator"
	StepVerifier        StepCode = "verifier"
	StepClaims          StepCode = "claims"
	StepVerifying       StepCode = "verifying"
	StepFeedback        StepCode = "feedback"
	StepSectionComplete StepCode = "section_complete"
)

// CodeRef points at a specific span of code that backs a piece of evidence.
type CodeRef struct {
	FilePath   string `json:"file_path"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	EntityName string `json:"entity_name"`
	EntityType string `json:"entity_type"`
}

// EvidenceItem is immutable once attached to a Claim.
type EvidenceItem struct {
	Source      EvidenceSource `json:"source"`
	Kind        string         `json:"kind"`
	Description string         `json:"description"`
	Query       string         `json:"query"`
	CodeRefs    []CodeRef      `json:"code_refs"`
	Weight      float64        `json:"weight"`
}

// Claim is one verifiable statement extracted from generated prose.
//
// Invariant: Status == StatusUnverified iff Evidence is empty. Confidence is
// derived from Evidence (see internal/verifier) and must be 0 when Evidence
// is empty.
type Claim struct {
	Text              string         `json:"text"`
	Section           string         `json:"section"`
	Kind              ClaimKind      `json:"kind"`
	MentionedEntities []string       `json:"mentioned_entities"`
	SearchPatterns    []string       `json:"search_patterns"`
	Evidence          []EvidenceItem `json:"evidence"`
	Status            ClaimStatus    `json:"status"`
	Confidence        float64        `json:"confidence"`
}

// SectionResult is the generate/verify outcome for one section, replaced
// wholesale on each regeneration attempt.
type SectionResult struct {
	Name              string   `json:"name"`
	GeneratedText     string   `json:"generated_text"`
	Claims            []Claim  `json:"claims"`
	OverallConfidence float64  `json:"overall_confidence"`
	Issues            []string `json:"issues"`
	Suggestions       []string `json:"suggestions"`
}

// EvidenceBundle is the run-level rollup across all sections.
type EvidenceBundle struct {
	Sections          []SectionResult   `json:"sections"`
	TotalClaims       int               `json:"total_claims"`
	VerifiedClaims    int               `json:"verified_claims"`
	OverallConfidence float64           `json:"overall_confidence"`
	HallucinationRisk HallucinationRisk `json:"hallucination_risk"`
}

// Component is one code entity discovered by the Context Aggregator.
type Component struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Path         string   `json:"path"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

// KeyFile is a filesystem probe result carried in AggregatedContext.
type KeyFile struct {
	Path             string  `json:"path"`
	TruncatedContent string  `json:"truncated_content"`
	Relevance        float64 `json:"relevance"`
}

// SchemaInfo is the discovered code-graph vocabulary.
type SchemaInfo struct {
	NodeLabels        []string `json:"node_labels"`
	RelationshipTypes []string `json:"relationship_types"`
}

// AggregatedContext is produced once per run and is read-only thereafter.
type AggregatedContext struct {
	Request         string      `json:"request"`
	Components      []Component `json:"components"`
	KeyFiles        []KeyFile   `json:"key_files"`
	Schema          SchemaInfo  `json:"schema"`
	SimilarFeatures []string    `json:"similar_features"`
	EstimatedTokens int         `json:"estimated_tokens"`
	Metadata        Metadata    `json:"metadata,omitempty"`
}

// SectionConfig describes one section of the BRD to generate.
type SectionConfig struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TargetWords int    `json:"target_words,omitempty"`
	Required    bool   `json:"required"`
}

// BRD is the document half of the final artifact.
type BRD struct {
	Title                  string    `json:"title"`
	Version                string    `json:"version"`
	CreatedAt              time.Time `json:"created_at"`
	BusinessContext        string    `json:"business_context"`
	Objectives             []string  `json:"objectives"`
	FunctionalRequirements []string  `json:"functional_requirements"`
	TechnicalRequirements  []string  `json:"technical_requirements"`
	Dependencies           []string  `json:"dependencies"`
	Risks                  []string  `json:"risks"`
	RawMarkdown            string    `json:"raw_markdown"`
}

// Metrics is the run-level metadata block of the final artifact.
type Metrics struct {
	Iterations        int               `json:"iterations"`
	Regenerations     int               `json:"regenerations"`
	ClaimsVerified    int               `json:"claims_verified"`
	ClaimsFailed      int               `json:"claims_failed"`
	GenerationTimeMS  int64             `json:"generation_time_ms"`
	OverallConfidence float64           `json:"overall_confidence"`
	HallucinationRisk HallucinationRisk `json:"hallucination_risk"`
	Cancelled         bool              `json:"cancelled,omitempty"`
}

// Artifact is the final return value of a generate_verified_brd run.
type Artifact struct {
	BRD      BRD            `json:"brd"`
	Evidence EvidenceBundle `json:"evidence"`
	Metadata Metrics        `json:"metadata"`
}

// NewClaim builds an unverified claim with the given text/section/kind.
func NewClaim(text, section string, kind ClaimKind) Claim {
	return Claim{
		Text:              text,
		Section:           section,
		Kind:              kind,
		MentionedEntities: []string{},
		SearchPatterns:    []string{},
		Evidence:          []EvidenceItem{},
		Status:            StatusUnverified,
		Confidence:        0,
	}
}

// NewSectionResult builds an empty SectionResult for the start of a section
// iteration.
func NewSectionResult(name string) SectionResult {
	return SectionResult{
		Name:        name,
		Claims:      []Claim{},
		Issues:      []string{},
		Suggestions: []string{},
	}
}
