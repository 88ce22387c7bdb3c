package store

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/anyparse/internal/types"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
}

// VectorStore persists loaded documents with their embeddings in
// Postgres via pgvector.
type VectorStore struct {
	config   VectorStoreConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

var _ types.VectorStore = (*VectorStore)(nil)

func NewWithConfig(config VectorStoreConfig, embedder types.Embedder) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			content TEXT,
			chunk_index INTEGER,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Store embeds and upserts the given documents in one transaction.
// Offset is the position of docs[0] within the overall sequence being
// ingested; callers storing in consecutive batches pass the running
// count so row ids stay unique across calls.
func (vs *VectorStore) Store(ctx context.Context, docs []schema.Document, offset int) error {
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source, content, chunk_index, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			chunk_index = EXCLUDED.chunk_index,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	for i, doc := range docs {
		source := documentSource(doc)
		content := sanitizeUTF8(doc.PageContent)
		id := documentID(source, offset+i)

		embeddings, err := vs.embedder.CreateEmbedding(ctx, []string{content})
		if err != nil {
			return fmt.Errorf("failed to create embeddings: %v", err)
		}

		var vectorSlice []float32
		for _, emb := range embeddings {
			vectorSlice = append(vectorSlice, emb...)
		}

		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %v", err)
		}

		_, err = tx.Exec(ctx, stmt,
			id,
			source,
			content,
			offset+i,
			pgvector.NewVector(vectorSlice),
			metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to insert document: %v", err)
		}
	}

	return tx.Commit(ctx)
}

// Query returns the documents nearest to the given embedding.
func (vs *VectorStore) Query(ctx context.Context, embedding []float32, limit int) ([]schema.Document, error) {
	if limit == 0 {
		limit = vs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT source, content, metadata
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %v", err)
	}
	defer rows.Close()

	var docs []schema.Document
	for rows.Next() {
		var source, content string
		var metadata []byte

		if err := rows.Scan(&source, &content, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}

		meta := map[string]any{}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &meta); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %v", err)
			}
		}
		meta["source"] = source

		docs = append(docs, schema.Document{
			PageContent: content,
			Metadata:    meta,
		})
	}

	return docs, rows.Err()
}

func (vs *VectorStore) Close() {
	vs.pool.Close()
}

func documentSource(doc schema.Document) string {
	if source, ok := doc.Metadata["source"].(string); ok && source != "" {
		return source
	}
	return "unknown"
}

func documentID(source string, index int) string {
	return fmt.Sprintf("%s_%d", source, index)
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	valid := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			// A genuine U+FFFD decodes with its full width; only
			// undecodable bytes come back with size 1
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				continue
			}
		}
		valid = append(valid, r)
	}
	return string(valid)
}
