// Package assembler collates accepted section texts into a coherent BRD
// Markdown document and an EvidenceBundle. The structural by-products
// (functional/technical requirement lists, dependency/risk bullets) are
// derived from the raw Markdown via internal/sectionparse; the Markdown
// itself remains the authoritative content.
package assembler

import (
	"fmt"
	"strings"
	"time"

	"github.com/codesense-ai/brd-verifier/internal/sectionparse"
	"github.com/codesense-ai/brd-verifier/internal/types"
	"github.com/codesense-ai/brd-verifier/internal/verifier"
)

const (
	sectionFunctionalRequirements = "Functional Requirements"
	sectionTechnicalSpecs         = "Technical Specifications"
	sectionNonFunctional          = "Non-Functional Requirements"
	sectionDependenciesRisks      = "Dependencies and Risks"
)

// Assemble builds the final BRD and EvidenceBundle from the accepted
// SectionResults, in the order they were processed.
func Assemble(title string, sections []types.SectionResult) (types.BRD, types.EvidenceBundle) {
	markdown := renderMarkdown(title, sections)

	brd := types.BRD{
		Title:                  title,
		Version:                "1.0.0",
		CreatedAt:              time.Now(),
		BusinessContext:        sectionparse.FindSection(markdown, "Executive Summary"),
		Objectives:             sectionparse.BulletItems(sectionparse.FindSection(markdown, "Objectives")),
		FunctionalRequirements: extractRequirements(markdown),
		TechnicalRequirements:  extractTechnical(markdown),
		Dependencies:           extractDependencies(markdown),
		Risks:                  extractRisks(markdown),
		RawMarkdown:            markdown,
	}

	bundle := buildBundle(sections)
	return brd, bundle
}

func renderMarkdown(title string, sections []types.SectionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, s := range sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.Name, s.GeneratedText)
	}
	return b.String()
}

func extractRequirements(markdown string) []string {
	body := sectionparse.FindSection(markdown, sectionFunctionalRequirements)
	return sectionparse.NumberedItems("FR", sectionparse.BulletItems(body))
}

func extractTechnical(markdown string) []string {
	var items []string
	items = append(items, sectionparse.BulletItems(sectionparse.FindSection(markdown, sectionTechnicalSpecs))...)
	items = append(items, sectionparse.BulletItems(sectionparse.FindSection(markdown, sectionNonFunctional))...)
	return sectionparse.NumberedItems("TR", items)
}

func extractDependencies(markdown string) []string {
	body := sectionparse.FindSection(markdown, sectionDependenciesRisks)
	var deps []string
	for _, item := range sectionparse.BulletItems(body) {
		if !strings.Contains(strings.ToLower(item), "risk") {
			deps = append(deps, item)
		}
	}
	return deps
}

func extractRisks(markdown string) []string {
	body := sectionparse.FindSection(markdown, sectionDependenciesRisks)
	var risks []string
	for _, item := range sectionparse.BulletItems(body) {
		if strings.Contains(strings.ToLower(item), "risk") {
			risks = append(risks, item)
		}
	}
	return risks
}

func buildBundle(sections []types.SectionResult) types.EvidenceBundle {
	bundle := types.EvidenceBundle{Sections: sections}
	for _, s := range sections {
		for _, c := range s.Claims {
			bundle.TotalClaims++
			if c.Status == types.StatusVerified {
				bundle.VerifiedClaims++
			}
		}
	}
	bundle.OverallConfidence = verifier.RunConfidence(sections)
	bundle.HallucinationRisk = verifier.HallucinationRisk(bundle.OverallConfidence)
	return bundle
}
