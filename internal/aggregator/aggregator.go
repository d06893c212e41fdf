// Package aggregator builds an AggregatedContext from the Code Graph and
// Filesystem Services, enforcing the estimated-token budget via the
// compression pipeline when the raw context exceeds it. Progress flows
// through the streaming package's context-bound reporter.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/codesense-ai/brd-verifier/internal/fsclient"
	"github.com/codesense-ai/brd-verifier/internal/graphclient"
	"github.com/codesense-ai/brd-verifier/internal/simfeatures"
	"github.com/codesense-ai/brd-verifier/internal/streaming"
	"github.com/codesense-ai/brd-verifier/internal/types"
)

// filePatterns are the fixed glob patterns probed per component.
var filePatterns = []string{
	"**/%s/**/*.go",
	"**/%s/**/*.py",
	"**/%s/**/*.ts",
	"**/services/%s/**/*",
}

const (
	maxFilesPerComponent  = 3
	maxComponentsForFiles = 5
	maxFileBytes          = 5000
	truncateHead          = 500
	truncateTail          = 500
	truncateSentinel      = "…[truncated]…"
)

// Aggregator builds AggregatedContext values from the two external backends
// plus an optional similarity index.
type Aggregator struct {
	graph     graphclient.Service
	fs        fsclient.Service
	similar   *simfeatures.Index
	maxTokens int
}

// New builds an Aggregator. similar may be nil to disable similar-features
// lookup entirely.
func New(graphSvc graphclient.Service, fsSvc fsclient.Service, similar *simfeatures.Index, maxTokens int) *Aggregator {
	if maxTokens <= 0 {
		maxTokens = 100000
	}
	return &Aggregator{graph: graphSvc, fs: fsSvc, similar: similar, maxTokens: maxTokens}
}

// BuildContext aggregates graph and filesystem context for one request.
func (a *Aggregator) BuildContext(ctx context.Context, request string, hintedComponents []string, includeSimilar bool) (*types.AggregatedContext, error) {
	streaming.Emit(ctx, types.StepContext, "Starting context aggregation...")

	components, schema := a.architecture(ctx, hintedComponents)
	streaming.Emit(ctx, types.StepNeo4j, fmt.Sprintf("Found %d components", len(components)))

	keyFiles := a.implementation(ctx, components)
	streaming.Emit(ctx, types.StepFilesystem, fmt.Sprintf("Analyzed %d key files", len(keyFiles)))

	var similarFeatures []string
	if includeSimilar && a.similar != nil {
		streaming.Emit(ctx, types.StepNeo4j, "Searching for similar features in codebase...")
		similarFeatures = a.similar.SimilarTo(ctx, request, 5)
		if len(similarFeatures) > 0 {
			streaming.Emit(ctx, types.StepNeo4j, fmt.Sprintf("Found %d similar features", len(similarFeatures)))
		}
	}

	ac := &types.AggregatedContext{
		Request:         request,
		Components:      components,
		KeyFiles:        keyFiles,
		Schema:          schema,
		SimilarFeatures: similarFeatures,
	}
	ac.EstimatedTokens = EstimateTokens(ac)

	if ac.EstimatedTokens > a.maxTokens {
		Compress(ac, a.maxTokens)
	}
	return ac, nil
}

// architecture queries the graph for dependencies and schema, either for
// explicitly hinted components or, when none are given, top-N discovered
// components. Returns components in discovery order; the compression
// pipeline's "top 10 by order of discovery" rule depends on this ordering.
func (a *Aggregator) architecture(ctx context.Context, hinted []string) ([]types.Component, types.SchemaInfo) {
	schema := a.discoverSchema(ctx)

	if len(hinted) > 0 {
		components := make([]types.Component, 0, len(hinted))
		for _, name := range hinted {
			streaming.Emit(ctx, types.StepNeo4j, fmt.Sprintf("Querying dependencies for component: %s", name))
			components = append(components, a.componentByName(ctx, name))
		}
		return orderByDiscovery(components), schema
	}

	streaming.Emit(ctx, types.StepNeo4j, "Discovering services from code graph...")
	result, err := a.graph.Query(ctx, `MATCH (c:Service) RETURN c.name as name, c.labels as labels, c.file_path as file_path LIMIT 20`)
	if err != nil {
		return nil, schema
	}
	components := make([]types.Component, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		components = append(components, types.Component{
			Name: node.Name,
			Kind: primaryLabel(node.Labels, "service"),
			Path: node.FilePath,
		})
	}
	return orderByDiscovery(components), schema
}

func (a *Aggregator) discoverSchema(ctx context.Context) types.SchemaInfo {
	result, err := a.graph.Query(ctx, `CALL db.schema.visualization()`)
	if err != nil {
		return types.SchemaInfo{}
	}
	labelSet := map[string]bool{}
	for _, node := range result.Nodes {
		for _, l := range node.Labels {
			labelSet[l] = true
		}
	}
	relSet := map[string]bool{}
	for _, rel := range result.Relationships {
		relSet[rel.Type] = true
	}
	return types.SchemaInfo{
		NodeLabels:        sortedKeys(labelSet),
		RelationshipTypes: sortedKeys(relSet),
	}
}

func (a *Aggregator) componentByName(ctx context.Context, name string) types.Component {
	result, err := a.graph.Query(ctx, fmt.Sprintf(`MATCH (c)-[:DEPENDS_ON]->(d) WHERE c.name CONTAINS %q RETURN d.name as name`, name))
	component := types.Component{Name: name, Kind: "service", Path: fmt.Sprintf("/services/%s", name)}
	if err != nil {
		return component
	}
	for _, n := range result.Nodes {
		component.Dependencies = append(component.Dependencies, n.Name)
	}
	return component
}

// orderByDiscovery deduplicates components by name, keeping the first
// occurrence's position, and models the dependency edges with
// github.com/dominikbraun/graph so a later topological walk (if ever
// needed) has a ready-made graph.
func orderByDiscovery(components []types.Component) []types.Component {
	g := graph.New(componentHash, graph.Directed())
	seen := make(map[string]bool, len(components))
	ordered := make([]types.Component, 0, len(components))
	for _, c := range components {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		_ = g.AddVertex(c)
		ordered = append(ordered, c)
	}
	for _, c := range ordered {
		for _, dep := range c.Dependencies {
			if seen[dep] {
				_ = g.AddEdge(c.Name, dep)
			}
		}
	}
	return ordered
}

func componentHash(c types.Component) string { return c.Name }

// implementation probes the filesystem for up to maxFilesPerComponent files
// per component across a fixed glob pattern set, reading at most
// maxFileBytes of each and assigning a default relevance score.
func (a *Aggregator) implementation(ctx context.Context, components []types.Component) []types.KeyFile {
	limit := components
	if len(limit) > maxComponentsForFiles {
		limit = limit[:maxComponentsForFiles]
	}

	var keyFiles []types.KeyFile
	seen := map[string]bool{}
	for _, component := range limit {
		streaming.Emit(ctx, types.StepFilesystem, fmt.Sprintf("Searching files for component: %s", component.Name))
		for _, patternTemplate := range filePatterns {
			pattern := fmt.Sprintf(patternTemplate, component.Name)
			paths, err := a.fs.SearchFiles(ctx, pattern)
			if err != nil {
				continue
			}
			count := 0
			for _, path := range paths {
				if count >= maxFilesPerComponent {
					break
				}
				if path == "" || seen[path] {
					continue
				}
				streaming.Emit(ctx, types.StepFilesystem, fmt.Sprintf("Reading: %s", baseName(path)))
				content, err := a.fs.ReadFile(ctx, path)
				if err != nil {
					continue
				}
				seen[path] = true
				count++
				keyFiles = append(keyFiles, types.KeyFile{
					Path:             path,
					TruncatedContent: truncateBytes(content, maxFileBytes),
					Relevance:        0.8,
				})
			}
		}
	}
	return keyFiles
}

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func baseName(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

func primaryLabel(labels []string, fallback string) string {
	if len(labels) == 0 {
		return fallback
	}
	return labels[0]
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EstimateTokens roughly estimates token cost as text length / 4. The
// budget check needs a cheap stable estimate, not a tokenizer.
func EstimateTokens(ac *types.AggregatedContext) int {
	chars := len(ac.Request)
	for _, c := range ac.Components {
		chars += len(c.Name) + len(c.Kind) + len(c.Path)
		for _, d := range c.Dependencies {
			chars += len(d)
		}
		for _, d := range c.Dependents {
			chars += len(d)
		}
	}
	for _, f := range ac.KeyFiles {
		chars += len(f.Path) + len(f.TruncatedContent)
	}
	for _, l := range ac.Schema.NodeLabels {
		chars += len(l)
	}
	for _, r := range ac.Schema.RelationshipTypes {
		chars += len(r)
	}
	for _, s := range ac.SimilarFeatures {
		chars += len(s)
	}
	return chars / 4
}

// Compress applies the four-step compression pipeline in order. The first
// three steps are unconditional once compression triggers; only the final
// similar-features trim is conditioned on still being over budget.
func Compress(ac *types.AggregatedContext, maxTokens int) {
	for i := range ac.KeyFiles {
		content := ac.KeyFiles[i].TruncatedContent
		if len(content) > 1000 {
			head := content[:truncateHead]
			tail := content[len(content)-truncateTail:]
			ac.KeyFiles[i].TruncatedContent = head + truncateSentinel + tail
		}
	}

	if len(ac.Components) > 10 {
		ac.Components = ac.Components[:10]
	}

	if len(ac.KeyFiles) > 10 {
		sorted := make([]types.KeyFile, len(ac.KeyFiles))
		copy(sorted, ac.KeyFiles)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Relevance > sorted[j].Relevance })
		ac.KeyFiles = sorted[:10]
	}

	ac.EstimatedTokens = EstimateTokens(ac)
	if ac.EstimatedTokens > maxTokens && len(ac.SimilarFeatures) > 3 {
		ac.SimilarFeatures = ac.SimilarFeatures[:3]
	}
	ac.EstimatedTokens = EstimateTokens(ac)
}
