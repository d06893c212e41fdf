// Package claimextract parses claim-extraction LLM responses into
// []types.Claim: a fenced JSON block first, then the longest
// balanced-brackets substring, and an empty (logged, not raised) result on
// total parse failure.
package claimextract

import (
	"encoding/json"
	"log"
	"regexp"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

type rawClaim struct {
	Text              string   `json:"text"`
	Kind              string   `json:"kind"`
	MentionedEntities []string `json:"mentioned_entities"`
	SearchPatterns    []string `json:"search_patterns"`
}

// Parse extracts claims for section from the LLM's raw response text.
// Parse failures yield an empty list rather than an error, so a section
// with unparseable claims degrades to partial instead of failing the run.
func Parse(section, response string) []types.Claim {
	jsonText := extractJSONArray(response)
	if jsonText == "" {
		log.Printf("[claimextract] no JSON array found in response for section %q", section)
		return nil
	}

	var raws []rawClaim
	if err := json.Unmarshal([]byte(jsonText), &raws); err != nil {
		log.Printf("[claimextract] failed to parse claims JSON for section %q: %v", section, err)
		return nil
	}

	claims := make([]types.Claim, 0, len(raws))
	for _, r := range raws {
		if r.Text == "" {
			continue
		}
		claim := types.NewClaim(r.Text, section, normalizeKind(r.Kind))
		claim.MentionedEntities = append([]string{}, r.MentionedEntities...)
		claim.SearchPatterns = append([]string{}, r.SearchPatterns...)
		claims = append(claims, claim)
	}
	return claims
}

func normalizeKind(kind string) types.ClaimKind {
	switch types.ClaimKind(kind) {
	case types.ClaimTechnical, types.ClaimFunctional, types.ClaimIntegration, types.ClaimGeneral:
		return types.ClaimKind(kind)
	default:
		return types.ClaimGeneral
	}
}

// extractJSONArray tries a fenced ```json [...] ``` block first, then falls
// back to the longest balanced-bracket substring in the response.
func extractJSONArray(text string) string {
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return longestBalancedArray(text)
}

// longestBalancedArray scans text for the longest substring that forms a
// balanced top-level [...] span, tolerating nested braces/brackets and
// quoted strings containing either character.
func longestBalancedArray(text string) string {
	best := ""
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		if end, ok := matchBracket(text, i); ok {
			candidate := text[i : end+1]
			if len(candidate) > len(best) {
				best = candidate
			}
		}
	}
	return best
}

func matchBracket(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
