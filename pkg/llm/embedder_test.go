package llm_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/anyparse/pkg/llm"
)

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   "nomic-embed-text:latest",
		BaseURL: "http://localhost:11434",
	})
	require.NoError(t, err)
	assert.NotNil(t, emb)
}

func TestCreateEmbedding(t *testing.T) {
	// This test requires a running Ollama server with the model pulled.
	if os.Getenv("OLLAMA_BASE_URL") == "" {
		t.Skip("OLLAMA_BASE_URL not set, skipping embedding test")
	}

	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		BaseURL: os.Getenv("OLLAMA_BASE_URL"),
	})
	require.NoError(t, err)

	embeddings, err := emb.CreateEmbedding(context.Background(),
		[]string{"This is the first chunk.", "And this is the second chunk."})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)

	for i := range embeddings {
		assert.NotEmpty(t, embeddings[i])
	}
}

func TestFlattenEmbeddings(t *testing.T) {
	flattened := llm.FlattenEmbeddings([][]float32{
		{1, 2},
		{3, 4},
	})
	assert.Equal(t, []float32{1, 2, 3, 4}, flattened)
}
