package fsclient

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

// MCP tuning constants, mirroring graphclient's MCPClient.
const (
	mcpInitTimeout   = 30 * time.Second
	operationTimeout = 30 * time.Second
	retryBackoffMin  = 250 * time.Millisecond
	retryBackoffMax  = 750 * time.Millisecond
)

// TransportConfig selects how the MCP client reaches the Filesystem Service.
type TransportConfig struct {
	Command string
	Args    []string

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
	return nil, fmt.Errorf("fsclient: transport config requires Command or Endpoint")
}

// MCPClient implements Service by calling read_file/search_files/file_exists
// tools over the Model Context Protocol. Session lifecycle and retry/backoff
// mirror graphclient.MCPClient exactly.
type MCPClient struct {
	transportCfg TransportConfig
	implName     string
	implVersion  string

	mu      sync.Mutex
	client  *mcpsdk.Client
	session *mcpsdk.ClientSession
}

// NewMCPClient constructs a client that lazily connects on first call.
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
		return fmt.Errorf("fsclient: failed to connect MCP session: %w", err)
	}

	c.client = client
	c.session = session
	return nil
}

// ReadFile calls the read_file tool and returns its text content.
func (c *MCPClient) ReadFile(ctx context.Context, path string) (string, error) {
	result, err := c.call(ctx, "read_file", map[string]any{"path": path})
	if err != nil {
		return "", err
	}
	return textOf(result), nil
}

// SearchFiles calls the search_files tool and decodes its JSON array
// response of matching paths.
func (c *MCPClient) SearchFiles(ctx context.Context, glob string) ([]string, error) {
	result, err := c.call(ctx, "search_files", map[string]any{"glob": glob})
	if err != nil {
		return nil, err
	}
	text := textOf(result)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(text), &paths); err != nil {
		log.Printf("[fsclient] failed to parse search_files response: %v", err)
		return nil, nil
	}
	return paths, nil
}

// Exists calls the file_exists tool and decodes its boolean response.
func (c *MCPClient) Exists(ctx context.Context, path string) (bool, error) {
	result, err := c.call(ctx, "file_exists", map[string]any{"path": path})
	if err != nil {
		return false, err
	}
	text := strings.TrimSpace(textOf(result))
	return text == "true", nil
}

// call issues a tool call with graphclient.MCPClient's retry-once-on-
// retryable-error behavior.
func (c *MCPClient) call(ctx context.Context, tool string, args map[string]any) (*mcpsdk.CallToolResult, error) {
	result, err := c.callOnce(ctx, tool, args)
	if err == nil {
		return checkResult(result)
	}

	if !isRetryable(err) {
		return nil, err
	}

	backoff := retryBackoffMin + time.Duration(rand.Int64N(int64(retryBackoffMax-retryBackoffMin)))
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
		c.client = nil
	}
	c.mu.Unlock()

	result, err = c.callOnce(ctx, tool, args)
	if err != nil {
		return nil, fmt.Errorf("fsclient: retry failed: %w", err)
	}
	return checkResult(result)
}

func (c *MCPClient) callOnce(ctx context.Context, tool string, args map[string]any) (*mcpsdk.CallToolResult, error) {
	c.mu.Lock()
	if err := c.ensureSessionLocked(ctx); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	session := c.session
	c.mu.Unlock()

	opCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	return session.CallTool(opCtx, &mcpsdk.CallToolParams{Name: tool, Arguments: args})
}

func checkResult(result *mcpsdk.CallToolResult) (*mcpsdk.CallToolResult, error) {
	if result != nil && result.IsError {
		return nil, fmt.Errorf("fsclient: %s", textOf(result))
	}
	return result, nil
}

func textOf(result *mcpsdk.CallToolResult) string {
	if result == nil {
		return ""
	}
	var text strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	return text.String()
}

// isRetryable classifies a transport error identically to graphclient's.
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
