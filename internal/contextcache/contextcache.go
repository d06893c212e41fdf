// Package contextcache optionally caches AggregatedContext by request
// hash, sparing repeated aggregation of the same request. It is a
// performance cache for the input side only: it never stores BRD text.
package contextcache

import (
	"context"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

// Store is the cache contract. Get's second return is false on both a
// miss and a backend failure; callers always treat a miss as "aggregate
// fresh".
type Store interface {
	Get(ctx context.Context, key string) (*types.AggregatedContext, bool)
	Put(ctx context.Context, key string, ac *types.AggregatedContext) error
	Close() error
}

// Key derives a cache key from the request text and any hinted components,
// so the caller never has to invent one.
func Key(request string, hintedComponents []string) string {
	h := fnv1a(request)
	for _, c := range hintedComponents {
		h = fnv1aAppend(h, c)
	}
	return hexUint64(h)
}

const fnvOffset uint64 = 14695981039346656037
const fnvPrime uint64 = 1099511628211

func fnv1a(s string) uint64 {
	return fnv1aAppend(fnvOffset, s)
}

func fnv1aAppend(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

func hexUint64(v uint64) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf)
}
