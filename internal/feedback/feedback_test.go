package feedback

import (
	"fmt"
	"testing"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

func TestBuildCapsEachList(t *testing.T) {
	section := &types.SectionResult{Name: "Functional Requirements"}
	for i := 0; i < 8; i++ {
		section.Issues = append(section.Issues, fmt.Sprintf("issue %d", i))
		section.Suggestions = append(section.Suggestions, fmt.Sprintf("suggestion %d", i))
		section.Claims = append(section.Claims, types.Claim{
			Text:   fmt.Sprintf("claim %d", i),
			Status: types.StatusUnverified,
		})
	}

	fb := Build(section)
	if len(fb.Issues) != 5 {
		t.Errorf("issues capped at 5, got %d", len(fb.Issues))
	}
	if len(fb.UnverifiedClaims) != 5 {
		t.Errorf("unverified claims capped at 5, got %d", len(fb.UnverifiedClaims))
	}
	if len(fb.Suggestions) != 3 {
		t.Errorf("suggestions capped at 3, got %d", len(fb.Suggestions))
	}
	if fb.Issues[0] != "issue 0" || fb.UnverifiedClaims[0] != "claim 0" {
		t.Error("feedback must keep the first entries, in order")
	}
}

func TestBuildSkipsVerifiedClaims(t *testing.T) {
	section := &types.SectionResult{
		Claims: []types.Claim{
			{Text: "verified", Status: types.StatusVerified},
			{Text: "unverified", Status: types.StatusUnverified},
		},
	}
	fb := Build(section)
	if len(fb.UnverifiedClaims) != 1 || fb.UnverifiedClaims[0] != "unverified" {
		t.Errorf("only unverified claim texts belong in feedback, got %v", fb.UnverifiedClaims)
	}
}

func TestEmpty(t *testing.T) {
	var nilFB *Feedback
	if !nilFB.Empty() {
		t.Error("nil feedback is empty")
	}
	if !(&Feedback{}).Empty() {
		t.Error("zero feedback is empty")
	}
	if (&Feedback{Issues: []string{"x"}}).Empty() {
		t.Error("feedback with an issue is not empty")
	}
}
