package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codesense-ai/brd-verifier/internal/contextcache"
	"github.com/codesense-ai/brd-verifier/internal/decompose"
	"github.com/codesense-ai/brd-verifier/internal/orchestrator"
	"github.com/codesense-ai/brd-verifier/internal/streaming"
	"github.com/codesense-ai/brd-verifier/internal/types"
)

// GenerateBRDRequest is the input for the generate-verified-brd tool.
type GenerateBRDRequest struct {
	Request          string                `json:"request"`
	HintedComponents []string              `json:"hinted_components,omitempty"`
	IncludeSimilar   bool                  `json:"include_similar,omitempty"`
	DetailLevel      string                `json:"detail_level,omitempty"`
	SectionConfigs   []types.SectionConfig `json:"section_configs,omitempty"`
	MaxIterations    int                   `json:"max_iterations,omitempty"`
	MinConfidence    float64               `json:"min_confidence,omitempty"`
}

// GenerateBRDResponse wraps the final artifact.
type GenerateBRDResponse struct {
	Artifact *types.Artifact `json:"artifact"`
}

// DecomposeEpicsRequest is the input for the decompose-epics tool. The BRD
// is passed back in as returned by generate-verified-brd.
type DecomposeEpicsRequest struct {
	BRD types.BRD `json:"brd"`
}

// DecomposeEpicsResponse lists the generated epics.
type DecomposeEpicsResponse struct {
	Epics []decompose.Epic `json:"epics"`
}

// DecomposeStoriesRequest is the input for the decompose-stories tool.
type DecomposeStoriesRequest struct {
	BRD  types.BRD      `json:"brd"`
	Epic decompose.Epic `json:"epic"`
}

// DecomposeStoriesResponse lists the generated stories.
type DecomposeStoriesResponse struct {
	Stories []decompose.Story `json:"stories"`
}

// RegisterTools registers the BRD tools with the MCP server.
func (c *ServerComponents) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "generate-verified-brd",
		Description: "Reverse-engineer an existing feature into a verified Business Requirements Document",
	}, c.handleGenerateBRD)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "decompose-epics",
		Description: "Decompose an approved BRD into Epics",
	}, c.handleDecomposeEpics)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "decompose-stories",
		Description: "Decompose one Epic of an approved BRD into User Stories",
	}, c.handleDecomposeStories)
}

func (c *ServerComponents) handleGenerateBRD(ctx context.Context, req *mcp.CallToolRequest, input GenerateBRDRequest) (*mcp.CallToolResult, *GenerateBRDResponse, error) {
	if input.Request == "" {
		return nil, nil, fmt.Errorf("request is required")
	}

	ctx = streaming.WithReporter(ctx, streaming.NewDefaultReporter(logProgress))

	ac, err := c.aggregatedContext(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("context aggregation failed: %w", err)
	}

	cfg := c.Config.Verification
	if input.MaxIterations > 0 {
		cfg.MaxIterations = input.MaxIterations
	}
	if input.MinConfidence > 0 {
		cfg.MinConfidenceForApproval = input.MinConfidence
	}

	artifact, err := c.Orchestrator.GenerateVerifiedBRD(ctx, ac, orchestrator.Options{
		Config:        cfg,
		SectionConfig: input.SectionConfigs,
		DetailLevel:   types.DetailLevel(input.DetailLevel),
	})
	if err != nil {
		return nil, nil, err
	}

	response := &GenerateBRDResponse{Artifact: artifact}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// aggregatedContext serves the request from the context cache when enabled,
// aggregating fresh on a miss.
func (c *ServerComponents) aggregatedContext(ctx context.Context, input GenerateBRDRequest) (*types.AggregatedContext, error) {
	var key string
	if c.Cache != nil {
		key = contextcache.Key(input.Request, input.HintedComponents)
		if ac, ok := c.Cache.Get(ctx, key); ok {
			log.Printf("Context cache hit for request %q", truncateForLog(input.Request))
			return ac, nil
		}
	}

	ac, err := c.Aggregator.BuildContext(ctx, input.Request, input.HintedComponents, input.IncludeSimilar)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil {
		if err := c.Cache.Put(ctx, key, ac); err != nil {
			log.Printf("Warning: context cache put failed: %v", err)
		}
	}
	return ac, nil
}

func (c *ServerComponents) handleDecomposeEpics(ctx context.Context, req *mcp.CallToolRequest, input DecomposeEpicsRequest) (*mcp.CallToolResult, *DecomposeEpicsResponse, error) {
	if input.BRD.RawMarkdown == "" && len(input.BRD.FunctionalRequirements) == 0 {
		return nil, nil, fmt.Errorf("brd is required")
	}

	ctx = streaming.WithReporter(ctx, streaming.NewDefaultReporter(logProgress))
	epics, err := c.Decomposer.GenerateEpics(ctx, &input.BRD)
	if err != nil {
		return nil, nil, err
	}

	response := &DecomposeEpicsResponse{Epics: epics}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

func (c *ServerComponents) handleDecomposeStories(ctx context.Context, req *mcp.CallToolRequest, input DecomposeStoriesRequest) (*mcp.CallToolResult, *DecomposeStoriesResponse, error) {
	if input.Epic.ID == "" {
		return nil, nil, fmt.Errorf("epic is required")
	}

	ctx = streaming.WithReporter(ctx, streaming.NewDefaultReporter(logProgress))
	stories, err := c.Decomposer.GenerateStories(ctx, &input.BRD, input.Epic)
	if err != nil {
		return nil, nil, err
	}

	response := &DecomposeStoriesResponse{Stories: stories}
	return &mcp.CallToolResult{Content: toJSONContent(response)}, response, nil
}

// logProgress is the process-level ProgressFunc: the MCP host sees tool
// results, not intermediate progress, so progress goes to the server log.
func logProgress(step types.StepCode, detail string) {
	log.Printf("[%s] %s", step, detail)
}

func toJSONContent(data interface{}) []mcp.Content {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, err.Error())}}
	}
	return []mcp.Content{&mcp.TextContent{Text: string(jsonData)}}
}

func truncateForLog(s string) string {
	if len(s) <= 60 {
		return s
	}
	return s[:60] + "..."
}
