package graphclient

import (
	"context"
	"errors"
	"io"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryResult(t *testing.T) {
	result := &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{
			Text: `{"nodes": [{"name": "PaymentProcessor", "labels": ["Class"], "file_path": "p.go"}], ` +
				`"relationships": [{"type": "CALLS", "start": "A", "end": "B"}]}`,
		}},
	}

	parsed, err := parseQueryResult(result)
	require.NoError(t, err)
	require.Len(t, parsed.Nodes, 1)
	assert.Equal(t, "PaymentProcessor", parsed.Nodes[0].Name)
	assert.Equal(t, []string{"Class"}, parsed.Nodes[0].Labels)
	require.Len(t, parsed.Relationships, 1)
	assert.Equal(t, "CALLS", parsed.Relationships[0].Type)
}

func TestParseQueryResultTolerates(t *testing.T) {
	// nil result
	parsed, err := parseQueryResult(nil)
	require.NoError(t, err)
	assert.Empty(t, parsed.Nodes)

	// empty content
	parsed, err = parseQueryResult(&mcpsdk.CallToolResult{})
	require.NoError(t, err)
	assert.Empty(t, parsed.Nodes)

	// malformed JSON degrades to an empty result, not an error
	parsed, err = parseQueryResult(&mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "{broken"}},
	})
	require.NoError(t, err)
	assert.Empty(t, parsed.Nodes)
}

func TestParseQueryResultErrorFlag(t *testing.T) {
	_, err := parseQueryResult(&mcpsdk.CallToolResult{IsError: true})
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(context.DeadlineExceeded))
	assert.True(t, isRetryable(io.EOF))
	assert.True(t, isRetryable(io.ErrUnexpectedEOF))
	assert.True(t, isRetryable(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryable(errors.New("write: broken pipe")))
	assert.False(t, isRetryable(errors.New("invalid query syntax")))
}

func TestTransportConfigBuild(t *testing.T) {
	_, err := TransportConfig{}.build()
	assert.Error(t, err, "an empty transport config cannot build")

	transport, err := TransportConfig{Command: "graph-server"}.build()
	require.NoError(t, err)
	assert.IsType(t, &mcpsdk.CommandTransport{}, transport)

	transport, err = TransportConfig{Endpoint: "http://localhost:8080/mcp"}.build()
	require.NoError(t, err)
	assert.IsType(t, &mcpsdk.StreamableClientTransport{}, transport)
}
