package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

// CategoryKeywords returns all category → keyword-set mappings, grouped by
// category.
func (s *Store) CategoryKeywords(ctx context.Context) ([]storage.CategoryKeywords, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, keyword
		FROM category_keywords
		ORDER BY category, keyword
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query category keywords: %w", err)
	}
	defer rows.Close()

	var result []storage.CategoryKeywords
	for rows.Next() {
		var category, keyword string
		if err := rows.Scan(&category, &keyword); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan category keyword: %w", err)
		}
		if n := len(result); n > 0 && result[n-1].Category == category {
			result[n-1].Keywords = append(result[n-1].Keywords, keyword)
		} else {
			result = append(result, storage.CategoryKeywords{
				Category: category,
				Keywords: []string{keyword},
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: category keyword iteration failed: %w", err)
	}

	return result, nil
}

// TaskKeywords returns all keyword → task-identifier mappings.
func (s *Store) TaskKeywords(ctx context.Context) ([]storage.TaskKeyword, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT keyword, task_id
		FROM task_keywords
		ORDER BY keyword
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query task keywords: %w", err)
	}
	defer rows.Close()

	var result []storage.TaskKeyword
	for rows.Next() {
		var tk storage.TaskKeyword
		if err := rows.Scan(&tk.Keyword, &tk.TaskID); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan task keyword: %w", err)
		}
		result = append(result, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: task keyword iteration failed: %w", err)
	}

	return result, nil
}

// ProductsByCategories returns all catalog products in any of the given
// categories, ordered by product ID.
func (s *Store) ProductsByCategories(ctx context.Context, categories []string) ([]types.ProductCandidate, error) {
	if len(categories) == 0 {
		return []types.ProductCandidate{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, attributes
		FROM products
		WHERE category = ANY($1)
		ORDER BY id
	`, pq.Array(categories))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query products: %w", err)
	}
	defer rows.Close()

	var result []types.ProductCandidate
	for rows.Next() {
		var p types.ProductCandidate
		var attrs []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &attrs); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan product: %w", err)
		}
		if err := unmarshalAttributes(attrs, &p); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: product iteration failed: %w", err)
	}

	return result, nil
}

// Product retrieves a single catalog product by ID.
func (s *Store) Product(ctx context.Context, id string) (*types.ProductCandidate, error) {
	var p types.ProductCandidate
	var attrs []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, attributes
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: product %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get product %s: %w", id, err)
	}
	if err := unmarshalAttributes(attrs, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// InteractionsByUser returns all interactions recorded for a user.
func (s *Store) InteractionsByUser(ctx context.Context, userID string) ([]storage.InteractionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, product_id, weight, created_at
		FROM interactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query interactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var result []storage.InteractionRecord
	for rows.Next() {
		var rec storage.InteractionRecord
		if err := rows.Scan(&rec.UserID, &rec.ProductID, &rec.Weight, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan interaction: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: interaction iteration failed: %w", err)
	}

	return result, nil
}

// InteractionsByProducts returns interactions for the given products, keyed
// by product ID.
func (s *Store) InteractionsByProducts(ctx context.Context, productIDs []string) (map[string][]storage.InteractionRecord, error) {
	result := make(map[string][]storage.InteractionRecord)
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, product_id, weight, created_at
		FROM interactions
		WHERE product_id = ANY($1)
		ORDER BY product_id, user_id
	`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query interactions by product: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec storage.InteractionRecord
		if err := rows.Scan(&rec.UserID, &rec.ProductID, &rec.Weight, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan interaction: %w", err)
		}
		result[rec.ProductID] = append(result[rec.ProductID], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: interaction iteration failed: %w", err)
	}

	return result, nil
}

// RelationshipsBetween returns all compatibility edges connecting the pair
// (productA, productB) in either storage direction.
func (s *Store) RelationshipsBetween(ctx context.Context, productA, productB string) ([]types.CompatibilityRelationship, error) {
	if productA == "" || productB == "" {
		return nil, fmt.Errorf("postgres: both product IDs are required: %w", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_a, product_b, relationship_type, confidence, safety_notes, source, created_at
		FROM compatibility_edges
		WHERE (product_a = $1 AND product_b = $2)
		   OR (product_a = $2 AND product_b = $1)
		ORDER BY created_at, id
	`, productA, productB)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query compatibility edges: %w", err)
	}
	defer rows.Close()

	var result []types.CompatibilityRelationship
	for rows.Next() {
		var rel types.CompatibilityRelationship
		var relType string
		if err := rows.Scan(&rel.ID, &rel.ProductA, &rel.ProductB, &relType,
			&rel.Confidence, &rel.SafetyNotes, &rel.Source, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan compatibility edge: %w", err)
		}
		rel.Type = types.RelationshipType(relType)
		result = append(result, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: compatibility edge iteration failed: %w", err)
	}

	return result, nil
}

func marshalAttributes(attrs map[string]interface{}) ([]byte, error) {
	if len(attrs) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to encode attributes: %w", err)
	}
	return data, nil
}

func unmarshalAttributes(data []byte, p *types.ProductCandidate) error {
	if len(data) == 0 || string(data) == "{}" {
		return nil
	}
	if err := json.Unmarshal(data, &p.Attributes); err != nil {
		return fmt.Errorf("postgres: failed to decode attributes for %s: %w", p.ID, err)
	}
	return nil
}
