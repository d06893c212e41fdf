package simfeatures

import (
	"context"
	"math"
	"math/rand"
)

// HashEmbedder generates a deterministic unit-vector embedding seeded from
// the text's content hash. No external API calls, so it has no failure
// mode beyond context cancellation.
type HashEmbedder struct {
	Dimension int
}

// NewHashEmbedder builds an embedder producing vectors of the given
// dimension. dimension <= 0 defaults to 128.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 128
	}
	return &HashEmbedder{Dimension: dimension}
}

func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	seed := int64(0)
	for _, c := range text {
		seed = seed*31 + int64(c)
	}
	rng := rand.New(rand.NewSource(seed))

	embedding := make([]float32, h.Dimension)
	var sumSquares float64
	for i := range embedding {
		embedding[i] = float32(rng.NormFloat64())
		sumSquares += float64(embedding[i] * embedding[i])
	}
	if sumSquares > 0 {
		magnitude := float32(math.Sqrt(sumSquares))
		for i := range embedding {
			embedding[i] /= magnitude
		}
	}
	return embedding, nil
}

var _ Embedder = (*HashEmbedder)(nil)
