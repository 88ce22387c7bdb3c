package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// EmbedderConfig represents the configuration for the embedder.
type EmbedderConfig struct {
	Model   string
	BaseURL string // Ollama server URL
}

// Embedder creates vector embeddings for text chunks via Ollama.
type Embedder struct {
	config EmbedderConfig
	llm    *ollama.LLM
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}

	emb, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: config,
		llm:    emb,
	}, nil
}

func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return e.llm.CreateEmbedding(ctx, texts)
}

// FlattenEmbeddings concatenates a batch of embeddings into one slice.
func FlattenEmbeddings(embeddings [][]float32) []float32 {
	var flattened []float32
	for _, emb := range embeddings {
		flattened = append(flattened, emb...)
	}
	return flattened
}
