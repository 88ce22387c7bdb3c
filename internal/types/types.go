package types

import (
	"context"

	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/anyparse/internal/models"
)

// Parser is the call surface of the Anyparser API client. The loader
// talks to the API only through this interface so tests can swap in a
// fake without a network.
type Parser interface {
	Parse(ctx context.Context, paths ...string) (*models.ParseOutput, error)
	Crawl(ctx context.Context, startURL string) (*models.ParseOutput, error)
}

// Embedder turns text chunks into vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists loaded documents with their embeddings. Offset
// is the position of docs[0] within the full sequence being ingested,
// so batched callers keep row ids unique across calls.
type VectorStore interface {
	Store(ctx context.Context, docs []schema.Document, offset int) error
	Query(ctx context.Context, embedding []float32, limit int) ([]schema.Document, error)
	Close()
}
