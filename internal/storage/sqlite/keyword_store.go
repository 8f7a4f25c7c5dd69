package sqlite

import (
	"context"
	"fmt"

	"github.com/werkbank/werkbank/internal/storage"
)

// CategoryKeywords returns all category → keyword-set mappings, grouped by
// category in alphabetical order. An empty table yields an empty slice; the
// engine decides whether that is a deployment defect.
func (s *Store) CategoryKeywords(ctx context.Context) ([]storage.CategoryKeywords, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, keyword
		FROM category_keywords
		ORDER BY category, keyword
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query category keywords: %w", err)
	}
	defer rows.Close()

	var result []storage.CategoryKeywords
	for rows.Next() {
		var category, keyword string
		if err := rows.Scan(&category, &keyword); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan category keyword: %w", err)
		}
		// Rows arrive grouped by category; extend the current group or
		// start a new one.
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
		return nil, fmt.Errorf("sqlite: category keyword iteration failed: %w", err)
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
		return nil, fmt.Errorf("sqlite: failed to query task keywords: %w", err)
	}
	defer rows.Close()

	var result []storage.TaskKeyword
	for rows.Next() {
		var tk storage.TaskKeyword
		if err := rows.Scan(&tk.Keyword, &tk.TaskID); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan task keyword: %w", err)
		}
		result = append(result, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: task keyword iteration failed: %w", err)
	}

	return result, nil
}
