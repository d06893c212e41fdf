package llmsession

import (
	"context"
	"fmt"
	"sync"
)

// MockSession returns deterministic canned responses. It never calls out
// to a network; cmd/server uses it for the "mock" LLM backend and the
// tests drive it directly. llmadapter.Adapter's own fallback completion is
// separate canned text, not a MockSession.
type MockSession struct {
	mu        sync.Mutex
	responses []string
	index     int
	skillDirs []string
}

// NewMockSession builds a MockSession cycling through canned responses. A
// nil/empty responses slice falls back to one generic canned section body.
func NewMockSession(responses []string) *MockSession {
	if len(responses) == 0 {
		responses = []string{defaultMockBody}
	}
	return &MockSession{responses: responses}
}

const defaultMockBody = "## Section\n\nThis feature has not been analyzed; no generation backend was available."

func (m *MockSession) next(prompt string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	body := m.responses[m.index%len(m.responses)]
	m.index++
	return fmt.Sprintf("%s\n\n<!-- mock response to prompt opening: %s -->", body, truncate(prompt, 60))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (m *MockSession) SendAndWait(ctx context.Context, prompt string, timeout int64) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	default:
	}
	return Event{Content: Content{Kind: KindMessage, Text: m.next(prompt)}}, nil
}

func (m *MockSession) SendAndStream(ctx context.Context, prompt string) (<-chan Event, error) {
	ch := make(chan Event, 2)
	go func() {
		defer close(ch)
		select {
		case ch <- Event{Content: Content{Kind: KindMessage, Text: m.next(prompt)}}:
		case <-ctx.Done():
			return
		}
		ch <- Event{Content: Content{Kind: KindDone}}
	}()
	return ch, nil
}

func (m *MockSession) RegisterSkills(skillDirs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skillDirs = append([]string{}, skillDirs...)
	return nil
}

// RegisteredSkillDirs exposes what RegisterSkills recorded, for tests that
// want to assert registration happened without a real session.
func (m *MockSession) RegisteredSkillDirs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.skillDirs...)
}

var _ Session = (*MockSession)(nil)
