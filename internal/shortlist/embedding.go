package shortlist

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
)

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProfileVector is a stored candidate-profile embedding.
type ProfileVector struct {
	ProfileID int64
	Vector    []float32
}

// VectorSource provides the stored profile embeddings to rank against.
type VectorSource interface {
	ProfileVectors(ctx context.Context) ([]ProfileVector, error)
}

// EmbeddingService ranks candidate profiles by cosine similarity between the
// query embedding and the stored profile embeddings.
type EmbeddingService struct {
	embedder Embedder
	vectors  VectorSource
	logger   *zap.Logger
}

// NewEmbeddingService creates the embedding-backed similarity service.
func NewEmbeddingService(embedder Embedder, vectors VectorSource, logger *zap.Logger) *EmbeddingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingService{embedder: embedder, vectors: vectors, logger: logger}
}

// Rank embeds the query and returns the topK closest profiles by cosine
// similarity, best first. Profiles whose stored vector has a different
// dimensionality are skipped with a warning instead of failing the run.
func (s *EmbeddingService) Rank(ctx context.Context, query string, topK int) ([]Ranked, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	stored, err := s.vectors.ProfileVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile vectors: %w", err)
	}

	ranked := make([]Ranked, 0, len(stored))
	for _, pv := range stored {
		if len(pv.Vector) != len(queryVec) {
			s.logger.Warn("profile embedding dimension mismatch",
				zap.Int64("profile_id", pv.ProfileID),
				zap.Int("stored", len(pv.Vector)),
				zap.Int("query", len(queryVec)),
			)
			continue
		}
		ranked = append(ranked, Ranked{ProfileID: pv.ProfileID, Score: Cosine(queryVec, pv.Vector)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

// Cosine computes cosine similarity of two equal-length vectors. Zero
// vectors score 0.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
