// Package simfeatures serves AggregatedContext.SimilarFeatures: a lazy,
// bounded list of names of pre-existing similar features, found by nearest-
// neighbor search over embedded component/feature descriptions.
package simfeatures

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder turns text into a vector. HashEmbedder below needs no external
// API; a real deployment may swap in an API-backed embedder without
// changing Index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const collectionName = "similar-features"

// Index wraps one chromem-go collection of feature descriptions.
type Index struct {
	db       *chromem.DB
	embedder Embedder
}

// New builds an in-memory index. persistPath, if non-empty, makes it
// durable across process restarts.
func New(persistPath string, embedder Embedder) (*Index, error) {
	var db *chromem.DB
	var err error
	if persistPath != "" {
		db, err = chromem.NewPersistentDB(persistPath, false)
		if err != nil {
			return nil, fmt.Errorf("simfeatures: failed to create persistent index: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}
	return &Index{db: db, embedder: embedder}, nil
}

// Add indexes one pre-existing feature by name and description.
func (idx *Index) Add(ctx context.Context, name, description string) error {
	collection, err := idx.collection()
	if err != nil {
		return err
	}
	embedding, err := idx.embedder.Embed(ctx, description)
	if err != nil {
		return fmt.Errorf("simfeatures: failed to embed %q: %w", name, err)
	}
	return collection.AddDocument(ctx, chromem.Document{
		ID:        name,
		Content:   description,
		Metadata:  map[string]string{"name": name},
		Embedding: embedding,
	})
}

// SimilarTo returns up to limit feature names whose description is nearest
// to request, in similarity-descending order. An empty or uninitialized
// index yields an empty, non-error result.
func (idx *Index) SimilarTo(ctx context.Context, request string, limit int) []string {
	if limit <= 0 {
		limit = 5
	}
	collection := idx.db.GetCollection(collectionName, nil)
	if collection == nil || collection.Count() == 0 {
		return nil
	}

	embedding, err := idx.embedder.Embed(ctx, request)
	if err != nil {
		return nil
	}
	n := limit
	if collection.Count() < n {
		n = collection.Count()
	}
	results, err := collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		if name, ok := r.Metadata["name"]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (idx *Index) collection() (*chromem.Collection, error) {
	if c := idx.db.GetCollection(collectionName, nil); c != nil {
		return c, nil
	}
	return idx.db.CreateCollection(collectionName, nil, nil)
}
