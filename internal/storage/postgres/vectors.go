package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/werkbank/werkbank/internal/storage"
)

// UpsertProductVector stores or replaces the embedding vector for a product.
// Vectors are produced by an external embedding pipeline; this store only
// persists and queries them.
func (s *Store) UpsertProductVector(ctx context.Context, productID string, embedding []float32) error {
	if productID == "" {
		return fmt.Errorf("postgres: product ID is required: %w", storage.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("postgres: embedding vector cannot be empty: %w", storage.ErrInvalidInput)
	}
	if !s.pgvectorAvailable {
		return fmt.Errorf("postgres: pgvector extension not available: %w", storage.ErrUpstreamUnavailable)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_vectors (product_id, embedding, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (product_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_at = now()
	`, productID, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("postgres: failed to store product vector: %w", err)
	}
	return nil
}

// SimilarProducts returns cosine similarity between the anchor product and
// each candidate that has a stored vector, keyed by candidate ID. pgvector's
// <=> operator yields cosine distance; similarity is 1 - distance.
//
// Returns storage.ErrNotFound when the anchor has no stored vector, which
// the collaborative filter treats as a cue to fall back to in-process
// cosine over raw interaction vectors.
func (s *Store) SimilarProducts(ctx context.Context, anchorID string, candidateIDs []string) (map[string]float64, error) {
	if anchorID == "" {
		return nil, fmt.Errorf("postgres: anchor ID is required: %w", storage.ErrInvalidInput)
	}
	if !s.pgvectorAvailable {
		return nil, fmt.Errorf("postgres: pgvector extension not available: %w", storage.ErrUpstreamUnavailable)
	}

	result := make(map[string]float64)
	if len(candidateIDs) == 0 {
		return result, nil
	}

	var anchor pgvector.Vector
	err := s.db.QueryRowContext(ctx, `
		SELECT embedding FROM product_vectors WHERE product_id = $1
	`, anchorID).Scan(&anchor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: no vector for product %s: %w", anchorID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load anchor vector: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, 1 - (embedding <=> $1) AS similarity
		FROM product_vectors
		WHERE product_id = ANY($2)
	`, anchor, pq.Array(candidateIDs))
	if err != nil {
		return nil, fmt.Errorf("postgres: similarity query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var sim float64
		if err := rows.Scan(&id, &sim); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan similarity: %w", err)
		}
		// Cosine distance can exceed 1 for opposing vectors; clamp the
		// similarity into [0, 1] for downstream scoring.
		if sim < 0 {
			sim = 0
		}
		result[id] = sim
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: similarity iteration failed: %w", err)
	}

	return result, nil
}
