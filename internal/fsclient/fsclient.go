// Package fsclient implements the Filesystem Service contract: read/search
// access over a source tree, fronted either by an MCP tool server or by
// direct local-disk access rooted at a configured workspace.
package fsclient

import "context"

// Service is the interface the Context Aggregator depends on. All paths are
// resolved against a configured workspace root; escapes are rejected.
type Service interface {
	ReadFile(ctx context.Context, path string) (string, error)
	SearchFiles(ctx context.Context, glob string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}
