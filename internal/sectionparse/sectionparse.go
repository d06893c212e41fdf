// Package sectionparse holds the regexes that pull structure out of
// generated Markdown: reasoning-block stripping, FR-/TR-/dependency
// extraction for the Section Assembler, and EPIC-/STORY- block parsing for
// internal/decompose. The decompose field-level regexes live in
// internal/decompose, and llmadapter compiles its own <thinking> regex.
package sectionparse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	thinkingBlockRe = regexp.MustCompile(`(?is)<thinking>.*?</thinking>`)
	bulletLineRe    = regexp.MustCompile(`(?m)^\s*(?:FR-\d+:?|REQ-\d+:?|[-*])\s*(.+)$`)
	headingRe       = regexp.MustCompile(`(?m)^#{1,6}\s*(.+?)\s*$`)
	epicBlockRe     = regexp.MustCompile(`(?is)EPIC-(\d+):\s*(.+?)(?:\n\n|\z)`)
	storyBlockRe    = regexp.MustCompile(`(?is)STORY-(\d+):\s*(.+?)(?:\n\n|\z)`)
)

// StripThinking removes <thinking>...</thinking> blocks using the same
// pattern as llmadapter.Strip, which compiles its own copy of the regex
// rather than calling this function.
func StripThinking(text string) string {
	return strings.TrimSpace(thinkingBlockRe.ReplaceAllString(text, ""))
}

// FindSection returns the body of the first Markdown heading whose text
// matches name case-insensitively, up to (not including) the next heading
// of the same or shallower level. Returns "" if not found.
func FindSection(markdown, name string) string {
	lines := strings.Split(markdown, "\n")
	lowerName := strings.ToLower(strings.TrimSpace(name))

	start := -1
	level := 0
	for i, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			if strings.ToLower(strings.TrimSpace(m[1])) == lowerName {
				start = i + 1
				level = len(line) - len(strings.TrimLeft(line, "#"))
				break
			}
		}
	}
	if start < 0 {
		return ""
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if headingRe.MatchString(lines[i]) && len(lines[i])-len(strings.TrimLeft(lines[i], "#")) <= level {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

// BulletItems extracts requirement-like bullet lines from body: anything
// starting with "FR-<n>", "REQ-<n>", "-" or "*", stripping the leading marker.
func BulletItems(body string) []string {
	var items []string
	for _, m := range bulletLineRe.FindAllStringSubmatch(body, -1) {
		text := strings.TrimSpace(m[1])
		if text != "" {
			items = append(items, text)
		}
	}
	return items
}

// NumberedItems assigns sequential IDs with the given prefix to items,
// e.g. prefix "FR" -> "FR-001: ...".
func NumberedItems(prefix string, items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprintf("%s-%03d: %s", prefix, i+1, item)
	}
	return out
}

// EpicBlock is one parsed "EPIC-N: ..." block from a decomposition
// response.
type EpicBlock struct {
	Number int
	Body   string
}

// ParseEpics extracts EPIC-\d+ blocks from a decomposition response.
func ParseEpics(text string) []EpicBlock {
	return parseNumberedBlocks(epicBlockRe, text)
}

// StoryBlock is one parsed "STORY-N: ..." block.
type StoryBlock struct {
	Number int
	Body   string
}

// ParseStories extracts STORY-\d+ blocks from a decomposition response.
func ParseStories(text string) []StoryBlock {
	blocks := parseNumberedBlocks(storyBlockRe, text)
	out := make([]StoryBlock, len(blocks))
	for i, b := range blocks {
		out[i] = StoryBlock(b)
	}
	return out
}

func parseNumberedBlocks(re *regexp.Regexp, text string) []EpicBlock {
	var blocks []EpicBlock
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		var n int
		_, _ = fmt.Sscanf(m[1], "%d", &n)
		blocks = append(blocks, EpicBlock{Number: n, Body: strings.TrimSpace(m[2])})
	}
	return blocks
}
