package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/werkbank/werkbank/internal/storage"
)

// InteractionsByUser returns all interactions recorded for a user, newest
// first. An empty slice means the user has no history; that is a valid
// result, not an error.
func (s *Store) InteractionsByUser(ctx context.Context, userID string) ([]storage.InteractionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, product_id, weight, created_at
		FROM interactions
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query interactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectInteractions(rows)
}

// InteractionsByProducts returns interactions for the given products, keyed
// by product ID. Products without interactions are absent from the map.
func (s *Store) InteractionsByProducts(ctx context.Context, productIDs []string) (map[string][]storage.InteractionRecord, error) {
	result := make(map[string][]storage.InteractionRecord)
	if len(productIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(productIDs)), ",")
	args := make([]interface{}, len(productIDs))
	for i, id := range productIDs {
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT user_id, product_id, weight, created_at
		FROM interactions
		WHERE product_id IN (%s)
		ORDER BY product_id, user_id
	`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query interactions by product: %w", err)
	}
	defer rows.Close()

	records, err := collectInteractions(rows)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		result[rec.ProductID] = append(result[rec.ProductID], rec)
	}

	return result, nil
}

// collectInteractions scans all rows into interaction records.
func collectInteractions(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]storage.InteractionRecord, error) {
	var result []storage.InteractionRecord
	for rows.Next() {
		var rec storage.InteractionRecord
		if err := rows.Scan(&rec.UserID, &rec.ProductID, &rec.Weight, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan interaction: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: interaction iteration failed: %w", err)
	}
	return result, nil
}
