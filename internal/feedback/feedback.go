// Package feedback builds the plain-English feedback embedded into the
// next generation prompt when a section falls below the acceptance
// threshold.
package feedback

import "github.com/codesense-ai/brd-verifier/internal/types"

const (
	maxIssues           = 5
	maxUnverifiedClaims = 5
	maxSuggestions      = 3
)

// Feedback is the bounded set promptcompose.Generation renders verbatim.
type Feedback struct {
	Issues           []string
	UnverifiedClaims []string
	Suggestions      []string
}

// Empty reports whether there is nothing worth rendering.
func (f *Feedback) Empty() bool {
	return f == nil || (len(f.Issues) == 0 && len(f.UnverifiedClaims) == 0 && len(f.Suggestions) == 0)
}

// Build derives feedback from a scored SectionResult: the section's own
// Issues/Suggestions (capped), plus the text of claims that carry no
// evidence at all.
func Build(section *types.SectionResult) *Feedback {
	fb := &Feedback{}

	for i, issue := range section.Issues {
		if i >= maxIssues {
			break
		}
		fb.Issues = append(fb.Issues, issue)
	}

	for _, claim := range section.Claims {
		if len(fb.UnverifiedClaims) >= maxUnverifiedClaims {
			break
		}
		if claim.Status == types.StatusUnverified {
			fb.UnverifiedClaims = append(fb.UnverifiedClaims, claim.Text)
		}
	}

	for i, suggestion := range section.Suggestions {
		if i >= maxSuggestions {
			break
		}
		fb.Suggestions = append(fb.Suggestions, suggestion)
	}

	return fb
}
