package claimextract

import (
	"testing"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

func TestParseFencedJSON(t *testing.T) {
	response := "Here are the claims:\n```json\n" +
		`[{"text": "The PaymentProcessor validates transactions", "kind": "functional", ` +
		`"mentioned_entities": ["PaymentProcessor"], "search_patterns": ["validate"]}]` +
		"\n```\nDone."

	claims := Parse("Functional Requirements", response)
	if len(claims) != 1 {
		t.Fatalf("expected one claim, got %d", len(claims))
	}
	c := claims[0]
	if c.Text != "The PaymentProcessor validates transactions" {
		t.Errorf("unexpected text %q", c.Text)
	}
	if c.Section != "Functional Requirements" {
		t.Errorf("claim must carry its section back-pointer, got %q", c.Section)
	}
	if c.Kind != types.ClaimFunctional {
		t.Errorf("expected functional kind, got %s", c.Kind)
	}
	if len(c.MentionedEntities) != 1 || c.MentionedEntities[0] != "PaymentProcessor" {
		t.Errorf("unexpected entities %v", c.MentionedEntities)
	}
	if c.Status != types.StatusUnverified || c.Confidence != 0 {
		t.Errorf("fresh claims must start Unverified with confidence 0, got %s/%f", c.Status, c.Confidence)
	}
}

func TestParseBareArrayFallback(t *testing.T) {
	response := `The model forgot the fence. [{"text": "Refunds post to the ledger", "kind": "general"}] trailing prose.`

	claims := Parse("Dependencies and Risks", response)
	if len(claims) != 1 {
		t.Fatalf("expected one claim from the balanced-bracket fallback, got %d", len(claims))
	}
	if claims[0].Text != "Refunds post to the ledger" {
		t.Errorf("unexpected text %q", claims[0].Text)
	}
}

func TestParseFailureYieldsEmptyList(t *testing.T) {
	for _, response := range []string{
		"no json here at all",
		"```json\n{not: valid}\n```",
		"[unclosed",
		"",
	} {
		if claims := Parse("Objectives", response); len(claims) != 0 {
			t.Errorf("expected empty claim list for %q, got %d claims", response, len(claims))
		}
	}
}

func TestParseDiscardsEmptyText(t *testing.T) {
	response := `[{"text": "", "kind": "general"}, {"text": "Real claim", "kind": "technical"}]`

	claims := Parse("Objectives", response)
	if len(claims) != 1 {
		t.Fatalf("claims with empty text must be discarded, got %d claims", len(claims))
	}
	if claims[0].Text != "Real claim" {
		t.Errorf("unexpected surviving claim %q", claims[0].Text)
	}
}

func TestParseNormalizesUnknownKind(t *testing.T) {
	response := `[{"text": "Something", "kind": "architectural"}]`

	claims := Parse("Objectives", response)
	if len(claims) != 1 {
		t.Fatalf("expected one claim, got %d", len(claims))
	}
	if claims[0].Kind != types.ClaimGeneral {
		t.Errorf("unknown kinds must normalize to general, got %s", claims[0].Kind)
	}
}

func TestParsePreservesOrder(t *testing.T) {
	response := `[{"text": "first"}, {"text": "second"}, {"text": "first"}]`

	claims := Parse("Objectives", response)
	if len(claims) != 3 {
		t.Fatalf("no deduplication beyond order-preserving identity: expected 3, got %d", len(claims))
	}
	if claims[0].Text != "first" || claims[1].Text != "second" || claims[2].Text != "first" {
		t.Errorf("claim order must be preserved, got %v", []string{claims[0].Text, claims[1].Text, claims[2].Text})
	}
}

func TestLongestBalancedArrayHandlesStrings(t *testing.T) {
	text := `noise [{"text": "brackets ] inside \" strings [ stay"}] more`
	got := longestBalancedArray(text)
	want := `[{"text": "brackets ] inside \" strings [ stay"}]`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
