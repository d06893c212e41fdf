// Package decompose implements the on-demand BRD -> Epics -> Stories
// breakdown: one prompt-and-parse pass per level, with each epic's named
// components resolved against the code graph. Unlike BRD sections there is
// no regeneration loop; an unparseable response degrades to a single
// fallback item.
package decompose

import (
	"context"
	"fmt"
	"strings"

	"github.com/codesense-ai/brd-verifier/internal/graphclient"
	"github.com/codesense-ai/brd-verifier/internal/llmadapter"
	"github.com/codesense-ai/brd-verifier/internal/sectionparse"
	"github.com/codesense-ai/brd-verifier/internal/streaming"
	"github.com/codesense-ai/brd-verifier/internal/types"
)

// Epic is a 2-4 week grouping of BRD requirements.
type Epic struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Components      []string `json:"components"`
	EstimatedEffort string   `json:"estimated_effort"`
	StoryIDs        []string `json:"story_ids"`
	Priority        string   `json:"priority"`
	BlockedBy       []string `json:"blocked_by"`
	Blocks          []string `json:"blocks"`
	ComponentsFound int      `json:"components_found"`
}

// Story is a single acceptance-criteria-bearing unit of work under an Epic.
type Story struct {
	ID                 string   `json:"id"`
	EpicID             string   `json:"epic_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AsA                string   `json:"as_a"`
	IWant              string   `json:"i_want"`
	SoThat             string   `json:"so_that"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	FilesToModify      []string `json:"files_to_modify"`
	FilesToCreate      []string `json:"files_to_create"`
	EstimatedPoints    int      `json:"estimated_points"`
	Priority           string   `json:"priority"`
}

// Decomposer turns an approved BRD into Epics, then Epics into Stories.
type Decomposer struct {
	adapter *llmadapter.Adapter
	graph   graphclient.Service
}

// New builds a Decomposer. graph may be nil, in which case Components
// hints are kept as-is without a ComponentsFound count.
func New(adapter *llmadapter.Adapter, graph graphclient.Service) *Decomposer {
	return &Decomposer{adapter: adapter, graph: graph}
}

// GenerateEpics composes a prompt from brd's requirement lists, calls the
// adapter once, and parses EPIC-\d+ blocks. This is a one-pass
// decomposition: there is no regeneration loop.
func (d *Decomposer) GenerateEpics(ctx context.Context, brd *types.BRD) ([]Epic, error) {
	streaming.Emit(ctx, types.StepGenerator, "Generating epics from BRD")

	prompt := epicsPrompt(brd)
	response, err := d.adapter.Complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("decompose: generating epics: %w", err)
	}

	blocks := sectionparse.ParseEpics(response)
	epics := make([]Epic, 0, len(blocks))
	for _, blk := range blocks {
		epic := parseEpicBlock(blk)
		d.verifyComponents(ctx, epic.Components, &epic.ComponentsFound)
		epics = append(epics, epic)
	}

	if len(epics) == 0 {
		epics = append(epics, fallbackEpic(brd))
	}
	return epics, nil
}

// GenerateStories composes a prompt from one epic, calls the adapter once,
// and parses STORY-\d+ blocks.
func (d *Decomposer) GenerateStories(ctx context.Context, brd *types.BRD, epic Epic) ([]Story, error) {
	streaming.Emit(ctx, types.StepGenerator, fmt.Sprintf("Generating stories for %s", epic.ID))

	prompt := storiesPrompt(brd, epic)
	response, err := d.adapter.Complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("decompose: generating stories for %s: %w", epic.ID, err)
	}

	blocks := sectionparse.ParseStories(response)
	stories := make([]Story, 0, len(blocks))
	for _, blk := range blocks {
		stories = append(stories, parseStoryBlock(blk, epic.ID))
	}

	if len(stories) == 0 {
		stories = append(stories, fallbackStory(epic))
	}
	return stories, nil
}

// verifyComponents looks each named component up in the code graph,
// counting how many resolve to at least one node. A nil graph or a query
// error simply leaves the count at zero rather than failing the pass.
func (d *Decomposer) verifyComponents(ctx context.Context, components []string, found *int) {
	if d.graph == nil {
		return
	}
	for _, c := range components {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		query := fmt.Sprintf(`MATCH (n) WHERE n.name CONTAINS %q RETURN n LIMIT 1`, c)
		result, err := d.graph.Query(ctx, query)
		if err == nil && len(result.Nodes) > 0 {
			*found++
		}
	}
}

func epicsPrompt(brd *types.BRD) string {
	var b strings.Builder
	b.WriteString("decompose epics\n\n")
	fmt.Fprintf(&b, "Generate Epics from the following approved BRD.\n\n## Approved BRD: %s\n\n", brd.Title)
	fmt.Fprintf(&b, "### Business Context\n%s\n\n", brd.BusinessContext)
	b.WriteString("### Functional Requirements\n")
	for _, req := range firstN(brd.FunctionalRequirements, 10) {
		fmt.Fprintf(&b, "- %s\n", req)
	}
	b.WriteString("\n### Technical Requirements\n")
	for _, req := range firstN(brd.TechnicalRequirements, 10) {
		fmt.Fprintf(&b, "- %s\n", req)
	}
	b.WriteString("\n### Dependencies\n")
	for _, dep := range brd.Dependencies {
		fmt.Fprintf(&b, "- %s\n", dep)
	}

	b.WriteString("\n## Instructions\n")
	b.WriteString("Group requirements into 2-4 Epics, each deliverable in 2-4 weeks. Do NOT generate User Stories.\n\n")
	b.WriteString("## Output Format\n\nFor each Epic:\n\n")
	b.WriteString("EPIC-XXX: [Title]\nDescription: [2-3 sentences]\nComponents: [component1, component2]\n")
	b.WriteString("Priority: [High/Medium/Low]\nEffort: [Small/Medium/Large]\nBlocked By: [EPIC-XXX or None]\n\n")
	return b.String()
}

func storiesPrompt(brd *types.BRD, epic Epic) string {
	var b strings.Builder
	b.WriteString("decompose epics\n\n")
	fmt.Fprintf(&b, "Generate User Stories for the following approved Epic.\n\n## Epic: %s - %s\n\n", epic.ID, epic.Title)
	fmt.Fprintf(&b, "### Description\n%s\n\n", epic.Description)
	b.WriteString("### Components Affected\n")
	for _, c := range epic.Components {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	fmt.Fprintf(&b, "\n### Priority\n%s\n\n", epic.Priority)

	b.WriteString("## Instructions\nCreate 3-5 User Stories completable in 1-3 days each, with clear acceptance criteria ")
	b.WriteString("and specific files to modify.\n\n")
	b.WriteString("## Output Format\n\nFor each Story:\n\n")
	b.WriteString("STORY-XXX: [Title]\nEpic: " + epic.ID + "\nAs a [role], I want [capability], so that [benefit].\n")
	b.WriteString("Description: [detail]\nAcceptance Criteria:\n- [criterion]\nFiles to Modify:\n- path/to/file\n")
	b.WriteString("Files to Create:\n- path/to/new_file\nPoints: [1/2/3/5/8]\n\n")
	return b.String()
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
