// Package main provides the entry point for the BRD verifier MCP server.
//
// The server is designed to be spawned as a child process by an MCP host
// and communicates via stdio using the Model Context Protocol. It exposes
// the Verified BRD Orchestrator as tools: generate-verified-brd runs the
// full section-by-section generate/verify/regenerate pipeline against the
// configured code graph and filesystem backends; decompose-epics and
// decompose-stories break an approved BRD down into work items.
//
// Environment variables:
//   - DEBUG: Set to "true" to enable debug logging
//   - BRD_*: see internal/config for the full set
package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codesense-ai/brd-verifier/internal/config"
)

func main() {
	if os.Getenv("DEBUG") == "true" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Starting BRD verifier server in debug mode...")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	components, err := InitializeServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer components.Close()

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)
	log.Println("Created MCP server")

	components.RegisterTools(mcpServer)
	log.Println("Registered tools: generate-verified-brd, decompose-epics, decompose-stories")

	transport := &mcp.StdioTransport{}

	ctx := context.Background()
	log.Println("Starting MCP server...")
	if err := mcpServer.Run(ctx, transport); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
