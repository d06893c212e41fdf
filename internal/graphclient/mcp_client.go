package graphclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCP transport tuning constants.
const (
	mcpInitTimeout   = 30 * time.Second
	operationTimeout = 30 * time.Second
	retryBackoffMin  = 250 * time.Millisecond
	retryBackoffMax  = 750 * time.Millisecond
)

// TransportConfig selects how the MCP client reaches the Code Graph Service.
type TransportConfig struct {
	// Command/Args launch a stdio MCP server subprocess. Leave empty to use
	// Endpoint instead.
	Command string
	Args    []string
	// Endpoint is a streamable-HTTP MCP server URL. Used when Command is empty.
	Endpoint string
}

func (t TransportConfig) build() (mcpsdk.Transport, error) {
	if t.Command != "" {
		cmd := exec.Command(t.Command, t.Args...)
		return &mcpsdk.CommandTransport{Command: cmd}, nil
	}
	if t.Endpoint != "" {
		return &mcpsdk.StreamableClientTransport{Endpoint: t.Endpoint}, nil
	}
	return nil, fmt.Errorf("graphclient: transport config requires Command or Endpoint")
}

// MCPClient implements Service by calling a "query_graph" tool over the
// Model Context Protocol. A retryable transport error triggers one
// reconnect-and-retry with jittered backoff.
type MCPClient struct {
	transportCfg TransportConfig
	implName     string
	implVersion  string

	mu      sync.Mutex
	client  *mcpsdk.Client
	session *mcpsdk.ClientSession
}

// NewMCPClient constructs a client that lazily connects on first Query.
func NewMCPClient(cfg TransportConfig, implName, implVersion string) *MCPClient {
	return &MCPClient{transportCfg: cfg, implName: implName, implVersion: implVersion}
}

func (c *MCPClient) ensureSessionLocked(ctx context.Context) error {
	if c.session != nil {
		return nil
	}
	transport, err := c.transportCfg.build()
	if err != nil {
		return err
	}

	initCtx, cancel := context.WithTimeout(ctx, mcpInitTimeout)
	defer cancel()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: c.implName, Version: c.implVersion}, nil)
	session, err := client.Connect(initCtx, transport, nil)
	if err != nil {
		if closer, ok := transport.(io.Closer); ok {
			_ = closer.Close()
		}
		return fmt.Errorf("graphclient: failed to connect MCP session: %w", err)
	}

	c.client = client
	c.session = session
	return nil
}

// Query issues a query_graph tool call and normalizes its JSON text content
// into a QueryResult.
func (c *MCPClient) Query(ctx context.Context, cypherLike string) (QueryResult, error) {
	result, err := c.callOnce(ctx, cypherLike)
	if err == nil {
		return parseQueryResult(result)
	}

	if !isRetryable(err) {
		return QueryResult{}, err
	}

	backoff := retryBackoffMin + time.Duration(rand.Int64N(int64(retryBackoffMax-retryBackoffMin)))
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return QueryResult{}, ctx.Err()
	}

	c.mu.Lock()
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
		c.client = nil
	}
	c.mu.Unlock()

	result, err = c.callOnce(ctx, cypherLike)
	if err != nil {
		return QueryResult{}, fmt.Errorf("graphclient: retry failed: %w", err)
	}
	return parseQueryResult(result)
}

func (c *MCPClient) callOnce(ctx context.Context, cypherLike string) (*mcpsdk.CallToolResult, error) {
	c.mu.Lock()
	if err := c.ensureSessionLocked(ctx); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	session := c.session
	c.mu.Unlock()

	opCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	return session.CallTool(opCtx, &mcpsdk.CallToolParams{
		Name:      "query_graph",
		Arguments: map[string]any{"query": cypherLike, "read_only": true},
	})
}

func parseQueryResult(result *mcpsdk.CallToolResult) (QueryResult, error) {
	if result == nil {
		return QueryResult{}, nil
	}
	if result.IsError {
		return QueryResult{}, fmt.Errorf("graphclient: query_graph returned an error result")
	}

	var text strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	if text.Len() == 0 {
		return QueryResult{}, nil
	}

	var parsed QueryResult
	if err := json.Unmarshal([]byte(text.String()), &parsed); err != nil {
		log.Printf("[graphclient] failed to parse query_graph response: %v", err)
		return QueryResult{}, nil
	}
	return parsed, nil
}

// isRetryable classifies a transport error. Only connection-level failures
// qualify; cancellation, deadline expiry, and semantic errors do not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return !netErr.Timeout()
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range []string{"connection refused", "connection reset", "broken pipe", "connection closed"} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// Close releases the underlying MCP session, if any.
func (c *MCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	c.client = nil
	return err
}

var _ Service = (*MCPClient)(nil)
