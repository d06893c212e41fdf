// Package llmadapter unifies call/timeout/extraction over an
// llmsession.Session: it enforces the timeout, walks the session's event
// envelope for text, strips reasoning blocks, and falls back to a
// deterministic mock completion on failure so the orchestrator's
// per-section loop always makes progress.
package llmadapter

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/codesense-ai/brd-verifier/internal/llmsession"
	"github.com/codesense-ai/brd-verifier/internal/skills"
)

// Config controls adapter behavior.
type Config struct {
	// FallbackMode returns a canned completion on timeout/error instead of
	// propagating it. Default on in production (cmd/server), default off in
	// tests so failures surface.
	FallbackMode bool
	// DefaultTimeout is used when a caller passes a non-positive timeout.
	DefaultTimeout time.Duration
}

// DefaultConfig is the production default: 300s completion timeout,
// fallback mode on.
func DefaultConfig() Config {
	return Config{FallbackMode: true, DefaultTimeout: 300 * time.Second}
}

var thinkingBlock = regexp.MustCompile(`(?is)<thinking>.*?</thinking>`)
var fencedWrapper = regexp.MustCompile("(?s)^```(?:markdown|md)?\\s*\\n(.*?)\\n```\\s*$")

// Adapter is the single call/timeout/extraction surface the orchestrator,
// claim extractor, and decompose package call through.
type Adapter struct {
	session  llmsession.Session
	cfg      Config
	registry *skills.Registry
}

// New builds an Adapter around session, registering skillDirs with it once
// (skill registration is one-shot at session construction). A
// nil/empty skillDirs is valid; sessions without server-side injection
// support simply no-op. skillDirs are also loaded into a client-side
// registry here: sessions like AnthropicSession have no server-side
// skill-injection mechanism of their own, so Complete performs the
// injection itself by matching the prompt's trigger phrase.
func New(session llmsession.Session, skillDirs []string, cfg Config) (*Adapter, error) {
	if err := session.RegisterSkills(skillDirs); err != nil {
		return nil, fmt.Errorf("llmadapter: failed to register skills: %w", err)
	}

	registry := skills.NewRegistry()
	for _, def := range skills.Defaults() {
		_ = registry.Register(def)
	}
	for _, dir := range skillDirs {
		defs, err := skills.LoadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("llmadapter: failed to load skill directory %q: %w", dir, err)
		}
		for _, def := range defs {
			_ = registry.Register(def)
		}
	}
	for _, def := range skills.Defaults() {
		_ = registry.Register(def)
	}

	return &Adapter{session: session, cfg: cfg, registry: registry}, nil
}

// Complete sends prompt and returns the stripped completion text.
// timeoutMS <= 0 uses cfg.DefaultTimeout.
func (a *Adapter) Complete(ctx context.Context, prompt string, timeoutMS int64) (string, error) {
	timeout := a.cfg.DefaultTimeout
	if timeoutMS > 0 {
		timeout = time.Duration(timeoutMS) * time.Millisecond
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt = a.injectSkill(prompt)

	event, err := a.session.SendAndWait(callCtx, prompt, timeout.Milliseconds())
	if err != nil {
		if !a.cfg.FallbackMode {
			return "", fmt.Errorf("llmadapter: completion failed: %w", err)
		}
		log.Printf("[llmadapter] completion failed, using fallback: %v", err)
		return Strip(mockFallback(prompt)), nil
	}

	text := extractText(event)
	if text == "" {
		if !a.cfg.FallbackMode {
			return "", fmt.Errorf("llmadapter: empty completion for prompt")
		}
		log.Printf("[llmadapter] empty completion, using fallback")
		return Strip(mockFallback(prompt)), nil
	}
	return Strip(text), nil
}

// injectSkill prepends the matching skill's instructions when the prompt's
// first line carries a registered trigger phrase. Only the first line is
// matched so a trigger phrase quoted later in the prompt body cannot
// activate a second skill. Sessions with server-side injection of their own
// simply see the instructions twice, which is harmless.
func (a *Adapter) injectSkill(prompt string) string {
	head := prompt
	if idx := strings.IndexByte(head, '\n'); idx >= 0 {
		head = head[:idx]
	}
	def, ok := a.registry.Lookup(head)
	if !ok {
		return prompt
	}
	return def.Instructions + "\n\n" + prompt
}

// extractText walks whichever envelope carries text (see
// llmsession.TextOf), plus a raw-event fallback for string tool results
// the union doesn't model.
func extractText(e llmsession.Event) string {
	if text := llmsession.TextOf(e); text != "" {
		return text
	}
	if e.Content.ToolResult != nil {
		if s, ok := e.Content.ToolResult.(string); ok {
			return s
		}
	}
	return ""
}

// Strip discards <thinking>...</thinking> blocks and a single enclosing
// fenced-code wrapper from body, idempotently.
func Strip(body string) string {
	stripped := thinkingBlock.ReplaceAllString(body, "")
	stripped = strings.TrimSpace(stripped)
	if m := fencedWrapper.FindStringSubmatch(stripped); m != nil {
		stripped = strings.TrimSpace(m[1])
	}
	return stripped
}

func mockFallback(prompt string) string {
	return fmt.Sprintf("## Section\n\nNo generation backend produced a result for this prompt "+
		"(opening: %q). This section could not be completed.", truncate(prompt, 80))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
