package repository

import (
	"context"
	"fmt"

	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChunkRepository handles persistence of embedded content chunks.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// ExistingSources returns which of the given source URLs already have at
// least one stored chunk.
func (r *ChunkRepository) ExistingSources(ctx context.Context, sources []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(sources) == 0 {
		return existing, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT source FROM chunks WHERE source = ANY($1)`,
		sources,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		existing[source] = struct{}{}
	}
	return existing, rows.Err()
}

// Insert stores all chunks in one transaction. Either every chunk of a
// source lands or none does, so a source can never be half-indexed.
func (r *ChunkRepository) Insert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i := range chunks {
		if err := domain.ValidateChunk(&chunks[i]); err != nil {
			return err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return &domain.StoreWriteError{Source: chunks[0].Source, Err: err}
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (id, source, chunk_index, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.Source, c.ChunkIndex, c.Content, pgvector.NewVector(c.Embedding), c.CreatedAt,
		)
		if err != nil {
			return &domain.StoreWriteError{Source: c.Source, Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &domain.StoreWriteError{Source: chunks[0].Source, Err: err}
	}
	return nil
}

// SearchBySources returns the topK most similar chunks whose source is in
// allowedSources, in descending score order. Score is cosine similarity in
// [0, 1] for the non-negative-angle case; candidatePool bounds the
// approximate index's search breadth.
func (r *ChunkRepository) SearchBySources(ctx context.Context, queryVector []float32, allowedSources []string, topK, candidatePool int) ([]domain.ScoredChunk, error) {
	if len(allowedSources) == 0 || topK <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if candidatePool > 0 {
		// SET LOCAL scopes the setting to this transaction.
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", candidatePool)); err != nil {
			return nil, err
		}
	}

	vec := pgvector.NewVector(queryVector)
	rows, err := tx.Query(ctx,
		`SELECT id, source, chunk_index, content, created_at,
		        1 - (embedding <=> $1) AS score
		 FROM chunks
		 WHERE source = ANY($2)
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, allowedSources, topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, topK)
	for rows.Next() {
		var sc domain.ScoredChunk
		if err := rows.Scan(&sc.Chunk.ID, &sc.Chunk.Source, &sc.Chunk.ChunkIndex, &sc.Chunk.Content, &sc.Chunk.CreatedAt, &sc.Score); err != nil {
			return nil, err
		}
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, tx.Commit(ctx)
}

// EnsureVectorIndex creates the approximate similarity index if it does not
// exist yet. Safe to call after every ingest batch.
func (r *ChunkRepository) EnsureVectorIndex(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS chunks_embedding_hnsw_idx
		 ON chunks USING hnsw (embedding vector_cosine_ops)`,
	)
	return err
}

// CountBySource returns how many chunks are stored for a source.
func (r *ChunkRepository) CountBySource(ctx context.Context, source string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE source = $1`,
		source,
	).Scan(&count)
	return count, err
}

// ListSources returns every distinct indexed source URL with its chunk count.
func (r *ChunkRepository) ListSources(ctx context.Context) ([]domain.SourceSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT source, COUNT(*) AS chunks
		 FROM chunks
		 GROUP BY source
		 ORDER BY source`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make([]domain.SourceSummary, 0)
	for rows.Next() {
		var s domain.SourceSummary
		if err := rows.Scan(&s.Source, &s.Chunks); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}
