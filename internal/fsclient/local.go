package fsclient

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalClient implements Service by reading directly off local disk, rooted
// at Root. Every path is joined under Root and cleaned; a path whose "../"
// segments would leave Root is rejected with an error.
type LocalClient struct {
	Root string
}

// NewLocalClient builds a LocalClient rooted at root.
func NewLocalClient(root string) *LocalClient {
	return &LocalClient{Root: root}
}

func (c *LocalClient) resolve(path string) (string, error) {
	resolved := filepath.Join(c.Root, path)
	rel, err := filepath.Rel(c.Root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("fsclient: path %q escapes workspace root", path)
	}
	return resolved, nil
}

func (c *LocalClient) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resolved, err := c.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("fsclient: reading %q: %w", path, err)
	}
	return string(data), nil
}

func (c *LocalClient) SearchFiles(ctx context.Context, glob string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matches []string
	err := filepath.WalkDir(c.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(c.Root, path)
		if relErr != nil {
			return nil
		}
		if ok, _ := doublestarMatch(glob, rel); ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fsclient: searching %q: %w", glob, err)
	}
	return matches, nil
}

func (c *LocalClient) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	resolved, err := c.resolve(path)
	if err != nil {
		return false, err
	}
	_, statErr := os.Stat(resolved)
	if statErr == nil {
		return true, nil
	}
	if os.IsNotExist(statErr) {
		return false, nil
	}
	return false, fmt.Errorf("fsclient: checking %q: %w", path, statErr)
}

// doublestarMatch supports the "**" glob segments the Context Aggregator's
// filePatterns use, which filepath.Match alone does not. A pattern segment
// of "**" matches zero or more path segments; every other segment is
// matched with filepath.Match.
func doublestarMatch(pattern, name string) (bool, error) {
	patParts := strings.Split(pattern, "/")
	nameParts := strings.Split(name, "/")
	return matchParts(patParts, nameParts)
}

func matchParts(pat, name []string) (bool, error) {
	if len(pat) == 0 {
		return len(name) == 0, nil
	}
	if pat[0] == "**" {
		if ok, err := matchParts(pat[1:], name); ok || err != nil {
			return ok, err
		}
		if len(name) == 0 {
			return false, nil
		}
		return matchParts(pat, name[1:])
	}
	if len(name) == 0 {
		return false, nil
	}
	ok, err := filepath.Match(pat[0], name[0])
	if err != nil || !ok {
		return false, err
	}
	return matchParts(pat[1:], name[1:])
}

var _ Service = (*LocalClient)(nil)
