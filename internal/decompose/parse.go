package decompose

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/codesense-ai/brd-verifier/internal/sectionparse"
	"github.com/codesense-ai/brd-verifier/internal/types"
)

var (
	descriptionRe = regexp.MustCompile(`(?is)Description:\s*(.+?)(?:\n(?:Components|Priority|Effort|Blocked By|Epic|As a|Acceptance Criteria|Files to Modify|Files to Create|Points):|\z)`)
	componentsRe  = regexp.MustCompile(`(?i)Components:\s*\[?([^\]\n]+)\]?`)
	priorityRe    = regexp.MustCompile(`(?i)Priority:\s*(High|Medium|Low)`)
	effortRe      = regexp.MustCompile(`(?i)Effort:\s*(Small|Medium|Large)`)
	blockedByRe   = regexp.MustCompile(`(?i)Blocked By:\s*(.+)`)
	epicRefRe     = regexp.MustCompile(`EPIC-\d+`)
	storyRefRe    = regexp.MustCompile(`STORY-\d+`)
	epicFieldRe   = regexp.MustCompile(`(?i)Epic:\s*(EPIC-\d+)`)
	asARe         = regexp.MustCompile(`(?i)As a\s+(.+?),`)
	iWantRe       = regexp.MustCompile(`(?i)I want\s+(.+?),`)
	soThatRe      = regexp.MustCompile(`(?is)so that\s+(.+?)(?:\.|\n|$)`)
	acSectionRe   = regexp.MustCompile(`(?is)Acceptance Criteria:(.+?)(?:\n(?:Files to Modify|Files to Create|Blocked By|Points):|\z)`)
	filesModifyRe = regexp.MustCompile(`(?is)Files to Modify:(.+?)(?:\n(?:Files to Create|Blocked By|Points):|\z)`)
	filesCreateRe = regexp.MustCompile(`(?is)Files to Create:(.+?)(?:\n(?:Blocked By|Points):|\z)`)
	pointsRe      = regexp.MustCompile(`(?i)Points:\s*(\d+)`)
)

func parseEpicBlock(blk sectionparse.EpicBlock) Epic {
	body := blk.Body
	lines := strings.SplitN(body, "\n", 2)
	title := strings.TrimSpace(lines[0])

	description := title
	if m := descriptionRe.FindStringSubmatch(body); m != nil {
		description = strings.TrimSpace(m[1])
	}

	var components []string
	if m := componentsRe.FindStringSubmatch(body); m != nil {
		for _, c := range strings.Split(m[1], ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				components = append(components, c)
			}
		}
	}

	priority := "medium"
	if m := priorityRe.FindStringSubmatch(body); m != nil {
		priority = strings.ToLower(m[1])
	}

	effort := "medium"
	if m := effortRe.FindStringSubmatch(body); m != nil {
		effort = strings.ToLower(m[1])
	}

	var blockedBy []string
	if m := blockedByRe.FindStringSubmatch(body); m != nil {
		text := strings.TrimSpace(m[1])
		if !strings.EqualFold(text, "none") {
			blockedBy = epicRefRe.FindAllString(text, -1)
		}
	}

	return Epic{
		ID:              fmt.Sprintf("EPIC-%03d", blk.Number),
		Title:           title,
		Description:     description,
		Components:      components,
		EstimatedEffort: effort,
		Priority:        priority,
		BlockedBy:       blockedBy,
	}
}

func parseStoryBlock(blk sectionparse.StoryBlock, defaultEpicID string) Story {
	body := blk.Body
	lines := strings.SplitN(body, "\n", 2)
	title := strings.TrimSpace(lines[0])

	epicID := defaultEpicID
	if m := epicFieldRe.FindStringSubmatch(body); m != nil {
		epicID = m[1]
	}

	asA := "user"
	if m := asARe.FindStringSubmatch(body); m != nil {
		asA = strings.TrimSpace(m[1])
	}
	iWant := "this functionality"
	if m := iWantRe.FindStringSubmatch(body); m != nil {
		iWant = strings.TrimSpace(m[1])
	}
	soThat := "I can achieve my goal"
	if m := soThatRe.FindStringSubmatch(body); m != nil {
		soThat = strings.TrimSpace(m[1])
	}

	description := title
	if m := descriptionRe.FindStringSubmatch(body); m != nil {
		description = strings.TrimSpace(m[1])
	}

	var acceptanceCriteria []string
	if m := acSectionRe.FindStringSubmatch(body); m != nil {
		acceptanceCriteria = bulletLines(m[1])
	}

	var filesToModify []string
	if m := filesModifyRe.FindStringSubmatch(body); m != nil {
		filesToModify = bulletLines(m[1])
	}

	var filesToCreate []string
	if m := filesCreateRe.FindStringSubmatch(body); m != nil {
		filesToCreate = bulletLines(m[1])
	}

	points := 3
	if m := pointsRe.FindStringSubmatch(body); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			points = n
		}
	}

	return Story{
		ID:                 fmt.Sprintf("STORY-%03d", blk.Number),
		EpicID:             epicID,
		Title:              title,
		Description:        description,
		AsA:                asA,
		IWant:              iWant,
		SoThat:             soThat,
		AcceptanceCriteria: acceptanceCriteria,
		FilesToModify:      filesToModify,
		FilesToCreate:      filesToCreate,
		EstimatedPoints:    points,
	}
}

func bulletLines(section string) []string {
	var items []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func fallbackEpic(brd *types.BRD) Epic {
	return Epic{
		ID:              "EPIC-001",
		Title:           "Core Implementation",
		Description:     "Implement the core functionality described in the BRD",
		EstimatedEffort: "medium",
		Priority:        "high",
	}
}

func fallbackStory(epic Epic) Story {
	return Story{
		ID:                 "STORY-001",
		EpicID:             epic.ID,
		Title:              fmt.Sprintf("Implement core functionality for %s", epic.Title),
		Description:        fmt.Sprintf("Implement the main feature described in %s", epic.ID),
		AsA:                "user",
		IWant:              "the core functionality implemented",
		SoThat:             "I can use the feature",
		AcceptanceCriteria: []string{"Feature works as expected"},
		EstimatedPoints:    5,
	}
}
