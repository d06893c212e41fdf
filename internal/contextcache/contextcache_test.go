package contextcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

func sampleContext() *types.AggregatedContext {
	return &types.AggregatedContext{
		Request: "describe payments",
		Components: []types.Component{
			{Name: "PaymentProcessor", Kind: "class", Path: "payments/processor.go"},
		},
		EstimatedTokens: 42,
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	a := Key("describe payments", []string{"payments"})
	b := Key("describe payments", []string{"payments"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	assert.NotEqual(t, a, Key("describe payments", nil))
	assert.NotEqual(t, a, Key("describe refunds", []string{"payments"}))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok := store.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "k", sampleContext()))
	got, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "describe payments", got.Request)
	assert.Equal(t, 42, got.EstimatedTokens)
	assert.NoError(t, store.Close())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(path, 1000)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	_, ok := store.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "k", sampleContext()))
	got, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "describe payments", got.Request)
	require.Len(t, got.Components, 1)
	assert.Equal(t, "PaymentProcessor", got.Components[0].Name)

	// Put on an existing key replaces the row.
	updated := sampleContext()
	updated.EstimatedTokens = 99
	require.NoError(t, store.Put(ctx, "k", updated))
	got, ok = store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 99, got.EstimatedTokens)
}

func TestFactoryFallsBackToMemory(t *testing.T) {
	store, err := New(Config{
		Type:     BackendSQLite,
		Fallback: BackendMemory,
		// Empty path makes SQLite init fail deterministically.
		SQLitePath: "",
	})
	require.NoError(t, err)
	_, ok := store.(*MemoryStore)
	assert.True(t, ok, "expected fallback to MemoryStore, got %T", store)
}

func TestFactoryNoFallbackSurfacesError(t *testing.T) {
	_, err := New(Config{Type: BackendSQLite, SQLitePath: ""})
	assert.Error(t, err)
}

func TestFactoryDefaultsToMemory(t *testing.T) {
	store, err := New(Config{})
	require.NoError(t, err)
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
}
