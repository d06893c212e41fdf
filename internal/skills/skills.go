// Package skills indexes skill definitions so trigger phrases embedded in
// prompts by internal/promptcompose cause the LLM session to inject the
// matching instruction bundle. The registry's own instruction bodies are
// never embedded into a prompt directly, only trigger phrases are.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Definition is one named instruction bundle activated by any of its
// trigger phrases.
type Definition struct {
	Name           string   `yaml:"name" json:"name"`
	TriggerPhrases []string `yaml:"trigger_phrases" json:"trigger_phrases"`
	Instructions   string   `yaml:"instructions" json:"instructions"`
	ToolsHint      []string `yaml:"tools_hint,omitempty" json:"tools_hint,omitempty"`
}

// Registry indexes Definitions by trigger phrase: skills activate via a
// literal string embedded in a prompt rather than by an explicit tool
// call.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Definition
	byPhrase map[string]Definition
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]Definition),
		byPhrase: make(map[string]Definition),
	}
}

// Register adds a Definition, indexing it by every trigger phrase it
// declares. First registration wins a given phrase; a duplicate name is a
// no-op, so a later Defaults() call never clobbers user-supplied skills
// loaded first.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("skills: definition name is required")
	}
	if len(def.TriggerPhrases) == 0 {
		return fmt.Errorf("skills: definition %q needs at least one trigger phrase", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[def.Name]; exists {
		return nil
	}
	r.byName[def.Name] = def
	for _, phrase := range def.TriggerPhrases {
		key := normalize(phrase)
		if _, exists := r.byPhrase[key]; !exists {
			r.byPhrase[key] = def
		}
	}
	return nil
}

// Lookup finds the Definition whose trigger phrase is a case-insensitive
// substring of text (the literal phrase the Prompt Composer embeds at the
// start of a prompt).
func (r *Registry) Lookup(text string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lower := normalize(text)
	for phrase, def := range r.byPhrase {
		if strings.Contains(lower, phrase) {
			return def, true
		}
	}
	return Definition{}, false
}

// Get retrieves a Definition by its exact name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[name]
	return def, ok
}

// List returns all registered Definitions.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.byName))
	for _, def := range r.byName {
		out = append(out, def)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LoadDir reads one YAML skill definition per *.yaml/*.yml file in dir.
// A missing or empty dir is not an error: it simply yields no definitions.
func LoadDir(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("skills: failed to read skill directory %q: %w", dir, err)
	}

	defs := make([]Definition, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var def Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			continue
		}
		if def.Name == "" || len(def.TriggerPhrases) == 0 {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}
