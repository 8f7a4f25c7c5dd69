package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

// ProductsByCategories returns all catalog products in any of the given
// categories, ordered by product ID for deterministic downstream processing.
func (s *Store) ProductsByCategories(ctx context.Context, categories []string) ([]types.ProductCandidate, error) {
	if len(categories) == 0 {
		return []types.ProductCandidate{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(categories)), ",")
	args := make([]interface{}, len(categories))
	for i, c := range categories {
		args[i] = c
	}

	query := fmt.Sprintf(`
		SELECT id, name, category, attributes
		FROM products
		WHERE category IN (%s)
		ORDER BY id
	`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query products: %w", err)
	}
	defer rows.Close()

	var result []types.ProductCandidate
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: product iteration failed: %w", err)
	}

	return result, nil
}

// Product retrieves a single catalog product by ID.
func (s *Store) Product(ctx context.Context, id string) (*types.ProductCandidate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, attributes
		FROM products
		WHERE id = ?
	`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: product %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*types.ProductCandidate, error) {
	var p types.ProductCandidate
	var attrs string
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &attrs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: failed to scan product: %w", err)
	}
	if attrs != "" && attrs != "{}" {
		if err := json.Unmarshal([]byte(attrs), &p.Attributes); err != nil {
			return nil, fmt.Errorf("sqlite: failed to decode attributes for %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func marshalAttributes(attrs map[string]interface{}) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to encode attributes: %w", err)
	}
	return string(data), nil
}
