package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/codesense-ai/brd-verifier/internal/aggregator"
	"github.com/codesense-ai/brd-verifier/internal/config"
	"github.com/codesense-ai/brd-verifier/internal/contextcache"
	"github.com/codesense-ai/brd-verifier/internal/decompose"
	"github.com/codesense-ai/brd-verifier/internal/fsclient"
	"github.com/codesense-ai/brd-verifier/internal/graphclient"
	"github.com/codesense-ai/brd-verifier/internal/llmadapter"
	"github.com/codesense-ai/brd-verifier/internal/llmsession"
	"github.com/codesense-ai/brd-verifier/internal/orchestrator"
	"github.com/codesense-ai/brd-verifier/internal/simfeatures"
	"github.com/codesense-ai/brd-verifier/internal/verifier"
)

// ServerComponents holds all initialized server components.
type ServerComponents struct {
	Config       *config.Config
	Graph        graphclient.Service
	Filesystem   fsclient.Service
	Session      llmsession.Session
	Adapter      *llmadapter.Adapter
	Verifier     *verifier.Verifier
	Aggregator   *aggregator.Aggregator
	Orchestrator *orchestrator.Orchestrator
	Decomposer   *decompose.Decomposer
	Cache        contextcache.Store

	closers []func() error
}

// InitializeServer creates and initializes all server components. Extracted
// from main() to enable testing.
func InitializeServer(cfg *config.Config) (*ServerComponents, error) {
	components := &ServerComponents{Config: cfg}

	graph, closeGraph, err := buildGraphBackend(cfg)
	if err != nil {
		return nil, err
	}
	components.Graph = graph
	if closeGraph != nil {
		components.closers = append(components.closers, closeGraph)
	}
	log.Printf("Initialized code graph backend: %s", cfg.Backends.GraphBackend)

	fs, closeFS := buildFilesystemBackend(cfg)
	components.Filesystem = fs
	if closeFS != nil {
		components.closers = append(components.closers, closeFS)
	}
	log.Printf("Initialized filesystem backend: %s (workspace root %s)", cfg.Backends.FilesystemBackend, cfg.Backends.WorkspaceRoot)

	session, err := buildLLMBackend(cfg)
	if err != nil {
		return nil, err
	}
	components.Session = session

	adapterCfg := llmadapter.DefaultConfig()
	adapterCfg.FallbackMode = cfg.Features.LLMFallbackMode
	adapter, err := llmadapter.New(session, skillDirs(), adapterCfg)
	if err != nil {
		return nil, err
	}
	components.Adapter = adapter
	log.Printf("Initialized LLM adapter (backend %s, fallback %v)", cfg.Backends.LLMBackend, adapterCfg.FallbackMode)

	components.Verifier = verifier.New(graph, fs, verifier.DefaultConfig())

	var similar *simfeatures.Index
	if cfg.Features.SimilarFeaturesEnabled {
		similar, err = simfeatures.New("", simfeatures.NewHashEmbedder(128))
		if err != nil {
			log.Printf("Warning: similar-features index unavailable: %v", err)
			similar = nil
		}
	}
	components.Aggregator = aggregator.New(graph, fs, similar, cfg.Verification.MaxContextTokens)

	if cfg.Features.ContextCacheEnabled {
		cache, err := contextcache.New(contextcache.Config{
			Type:       contextcache.BackendType(cfg.Backends.ContextCacheBackend),
			SQLitePath: cfg.Backends.SQLitePath,
			Fallback:   contextcache.BackendType(cfg.Backends.ContextCacheFallback),
		})
		if err != nil {
			log.Printf("Warning: context cache unavailable: %v", err)
		} else {
			components.Cache = cache
			components.closers = append(components.closers, cache.Close)
			log.Printf("Initialized context cache: %s", cfg.Backends.ContextCacheBackend)
		}
	}

	components.Orchestrator = orchestrator.New(adapter, components.Verifier)
	components.Decomposer = decompose.New(adapter, graph)
	log.Println("Initialized orchestrator and decomposer")

	return components, nil
}

// Close releases every backend that holds a connection, in reverse
// initialization order.
func (c *ServerComponents) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Printf("Warning: failed to close component: %v", err)
		}
	}
}

func buildGraphBackend(cfg *config.Config) (graphclient.Service, func() error, error) {
	switch cfg.Backends.GraphBackend {
	case "neo4j":
		client, err := graphclient.NewNeo4jClient(graphclient.DefaultNeo4jConfig())
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return client.Close(context.Background()) }, nil
	default:
		client := graphclient.NewMCPClient(graphclient.TransportConfig{
			Command:  os.Getenv("BRD_GRAPH_MCP_COMMAND"),
			Args:     splitArgs(os.Getenv("BRD_GRAPH_MCP_ARGS")),
			Endpoint: os.Getenv("BRD_GRAPH_MCP_ENDPOINT"),
		}, cfg.Server.Name, cfg.Server.Version)
		return client, client.Close, nil
	}
}

func buildFilesystemBackend(cfg *config.Config) (fsclient.Service, func() error) {
	switch cfg.Backends.FilesystemBackend {
	case "local":
		return fsclient.NewLocalClient(cfg.Backends.WorkspaceRoot), nil
	default:
		client := fsclient.NewMCPClient(fsclient.TransportConfig{
			Command:  os.Getenv("BRD_FS_MCP_COMMAND"),
			Args:     splitArgs(os.Getenv("BRD_FS_MCP_ARGS")),
			Endpoint: os.Getenv("BRD_FS_MCP_ENDPOINT"),
		}, cfg.Server.Name, cfg.Server.Version)
		return client, client.Close
	}
}

func buildLLMBackend(cfg *config.Config) (llmsession.Session, error) {
	switch cfg.Backends.LLMBackend {
	case "mock":
		return llmsession.NewMockSession(nil), nil
	default:
		return llmsession.NewAnthropicSession()
	}
}

func skillDirs() []string {
	if v := os.Getenv("BRD_SKILLS_DIR"); v != "" {
		return strings.Split(v, string(os.PathListSeparator))
	}
	return nil
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
