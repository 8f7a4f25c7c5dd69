package sqlite

import (
	"context"
	"fmt"

	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

// RelationshipsBetween returns all compatibility edges connecting the pair
// (productA, productB) in either storage direction. An edge stored as A→B is
// evidence for the pair regardless of the order the caller asks about, so
// RelationshipsBetween(a, b) and RelationshipsBetween(b, a) return the same
// edge set.
//
// An empty slice means no relationship data exists for the pair; the engine
// maps that to storage.ErrNotFound at the analysis layer rather than
// treating the pair as compatible by default.
func (s *Store) RelationshipsBetween(ctx context.Context, productA, productB string) ([]types.CompatibilityRelationship, error) {
	if productA == "" || productB == "" {
		return nil, fmt.Errorf("sqlite: both product IDs are required: %w", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_a, product_b, relationship_type, confidence, safety_notes, source, created_at
		FROM compatibility_edges
		WHERE (product_a = ? AND product_b = ?)
		   OR (product_a = ? AND product_b = ?)
		ORDER BY created_at, id
	`, productA, productB, productB, productA)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query compatibility edges: %w", err)
	}
	defer rows.Close()

	var result []types.CompatibilityRelationship
	for rows.Next() {
		var rel types.CompatibilityRelationship
		var relType string
		if err := rows.Scan(&rel.ID, &rel.ProductA, &rel.ProductB, &relType,
			&rel.Confidence, &rel.SafetyNotes, &rel.Source, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan compatibility edge: %w", err)
		}
		rel.Type = types.RelationshipType(relType)
		result = append(result, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: compatibility edge iteration failed: %w", err)
	}

	return result, nil
}
