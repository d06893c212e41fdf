// Package promptcompose builds the generation and claim-extraction
// prompts. The generation prompt follows a fixed skeleton: trigger phrase,
// reverse-engineering framing, section heading/guidelines, rendered
// AggregatedContext, truncated prior sections, optional feedback block,
// detail-level directives, and a closing instruction to emit a <thinking>
// block before the section body.
package promptcompose

import (
	"fmt"
	"strings"

	"github.com/codesense-ai/brd-verifier/internal/feedback"
	"github.com/codesense-ai/brd-verifier/internal/types"
)

const (
	triggerGenerateBRD  = "generate brd"
	triggerVerifyBRD    = "verify brd"
	triggerExtractClaim = "extract claims"

	prevSectionTruncate = 500
)

// Generation builds the full generation prompt for one section iteration.
func Generation(
	section types.SectionConfig,
	ac *types.AggregatedContext,
	previousSections []types.SectionResult,
	fb *feedback.Feedback,
	detail types.DetailLevel,
) string {
	var b strings.Builder

	b.WriteString(triggerGenerateBRD)
	b.WriteString("\n\n")
	b.WriteString("You are reverse-engineering an ALREADY-IMPLEMENTED feature into a Business ")
	b.WriteString("Requirements Document. The feature exists in the codebase today; your job is ")
	b.WriteString("to describe what was built, not to propose new work.\n\n")

	fmt.Fprintf(&b, "## Section: %s\n", section.Name)
	if section.TargetWords > 0 {
		fmt.Fprintf(&b, "Target length: ~%d words.\n", section.TargetWords)
	}
	if section.Description != "" {
		fmt.Fprintf(&b, "Guidelines: %s\n", section.Description)
	}
	b.WriteString("\n")

	b.WriteString("## Feature request\n")
	b.WriteString(ac.Request)
	b.WriteString("\n\n")

	b.WriteString(renderContext(ac))

	if len(previousSections) > 0 {
		b.WriteString("## Previously accepted sections\n\n")
		for _, s := range previousSections {
			fmt.Fprintf(&b, "### %s\n%s\n\n", s.Name, truncate(s.GeneratedText, prevSectionTruncate))
		}
	}

	if fb != nil && !fb.Empty() {
		b.WriteString(renderFeedback(fb))
	}

	b.WriteString(detailDirective(detail))

	b.WriteString("\nFirst, emit a <thinking>...</thinking> block with your reasoning about what ")
	b.WriteString("evidence supports this section. Then write the section body as Markdown, with ")
	b.WriteString("no further preamble.\n")

	return b.String()
}

// Extraction builds the claim-extraction prompt for one generated section.
func Extraction(sectionName, generatedText string) string {
	var b strings.Builder
	b.WriteString(triggerExtractClaim)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "## Extract verifiable claims from section %q\n\n", sectionName)
	b.WriteString(generatedText)
	b.WriteString("\n\n")
	b.WriteString("Return a JSON array where each element has the shape:\n")
	b.WriteString(`{"text": "...", "kind": "technical|functional|integration|general", ` +
		`"mentioned_entities": ["CamelCaseIdentifier", ...], "search_patterns": ["fragment", ...]}` + "\n")
	b.WriteString("Return only the JSON array, inside a fenced code block.\n")
	return b.String()
}

func renderContext(ac *types.AggregatedContext) string {
	var b strings.Builder
	b.WriteString("## Code context\n\n")

	if len(ac.Components) > 0 {
		b.WriteString("### Components\n")
		for _, c := range ac.Components {
			fmt.Fprintf(&b, "- %s (%s): %s\n", c.Name, c.Kind, c.Path)
		}
		b.WriteString("\n")
	}

	if len(ac.KeyFiles) > 0 {
		b.WriteString("### Key files\n")
		for _, f := range ac.KeyFiles {
			fmt.Fprintf(&b, "- %s (relevance %.2f)\n", f.Path, f.Relevance)
		}
		b.WriteString("\n")
	}

	if len(ac.Schema.NodeLabels) > 0 || len(ac.Schema.RelationshipTypes) > 0 {
		fmt.Fprintf(&b, "### Discovered schema\nNode labels: %s\nRelationship types: %s\n\n",
			strings.Join(ac.Schema.NodeLabels, ", "), strings.Join(ac.Schema.RelationshipTypes, ", "))
	}

	if len(ac.SimilarFeatures) > 0 {
		fmt.Fprintf(&b, "### Similar existing features\n%s\n\n", strings.Join(ac.SimilarFeatures, ", "))
	}

	return b.String()
}

func renderFeedback(fb *feedback.Feedback) string {
	var b strings.Builder
	b.WriteString("## Issues from verification (MUST address)\n\n")
	if len(fb.Issues) > 0 {
		b.WriteString("Issues:\n")
		for _, issue := range fb.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}
	if len(fb.UnverifiedClaims) > 0 {
		b.WriteString("Unverified claims (remove or fix):\n")
		for _, claim := range fb.UnverifiedClaims {
			fmt.Fprintf(&b, "- %s\n", claim)
		}
		b.WriteString("\n")
	}
	if len(fb.Suggestions) > 0 {
		b.WriteString("Suggestions:\n")
		for _, s := range fb.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func detailDirective(detail types.DetailLevel) string {
	switch detail {
	case types.DetailConcise:
		return "Write 1-2 paragraphs. Be direct.\n"
	case types.DetailDetailed:
		return "Write a comprehensive treatment with explicit code references (file paths, " +
			"function/type names) backing every claim.\n"
	default:
		return "Write 2-4 paragraphs.\n"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
