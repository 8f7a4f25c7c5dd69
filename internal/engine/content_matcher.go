package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/werkbank/werkbank/internal/storage"
)

// ContentMatcher derives candidate categories, tasks, and products from
// free-text requirement strings using the cached keyword mappings.
//
// Matching is pure in-memory computation: the only storage access is the
// lazy one-time mapping load and the catalog lookup for matched categories.
type ContentMatcher struct {
	cache   *KeywordCache
	catalog storage.CatalogStore
}

// NewContentMatcher creates a content matcher over the given cache and
// catalog.
func NewContentMatcher(cache *KeywordCache, catalog storage.CatalogStore) *ContentMatcher {
	return &ContentMatcher{cache: cache, catalog: catalog}
}

// Match maps requirement texts to categories and tasks, then pulls the
// catalog products for the matched categories and assigns each a
// content-based score.
//
// An empty requirements slice is valid and yields an empty result. An empty
// keyword mapping store is not: Match fails with config.ErrInvalidConfig
// (wrapped) because an empty store is a deployment defect, not a genuine
// no-match. Genuine no-match (valid requirements, no keyword hit) returns
// empty sets without error.
func (m *ContentMatcher) Match(ctx context.Context, requirements []string) (*ContentResult, error) {
	// The snapshot load runs even for empty input so that a broken
	// deployment surfaces on the first call, not on the first non-trivial
	// request.
	snap, err := m.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	result := &ContentResult{Scores: make(map[string]float64)}
	if len(requirements) == 0 {
		return result, nil
	}

	normalized := make([]string, len(requirements))
	for i, req := range requirements {
		normalized[i] = normalizeText(req)
	}

	// categoryHits counts how many requirement strings matched each
	// category; it feeds the per-candidate content score.
	categoryHits := make(map[string]int)
	taskSet := make(map[string]bool)

	for _, req := range normalized {
		for category, keywords := range snap.CategoryKeywords {
			for _, kw := range keywords {
				if containsKeyword(req, kw) {
					categoryHits[category]++
					break
				}
			}
		}
		for kw, taskID := range snap.TaskByKeyword {
			if containsKeyword(req, kw) {
				taskSet[taskID] = true
			}
		}
	}

	for category := range categoryHits {
		result.Categories = append(result.Categories, category)
	}
	sort.Strings(result.Categories)

	for task := range taskSet {
		result.Tasks = append(result.Tasks, task)
	}
	sort.Strings(result.Tasks)

	if len(result.Categories) == 0 {
		return result, nil
	}

	candidates, err := m.catalog.ProductsByCategories(ctx, result.Categories)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to load candidates for matched categories: %w", err)
	}
	result.Candidates = candidates

	total := float64(len(requirements))
	for _, candidate := range candidates {
		// Base score: the share of requirements that matched the
		// candidate's category.
		score := float64(categoryHits[candidate.Category]) / total

		// Boost when the product name itself appears in a requirement.
		name := normalizeText(candidate.Name)
		for _, req := range normalized {
			if name != "" && strings.Contains(req, name) {
				score = minFloat(1.0, score+0.2)
				break
			}
		}

		result.Scores[candidate.ID] = score
	}

	return result, nil
}

// normalizeText lowercases the input and collapses non-alphanumeric runs to
// single spaces, so keyword matching is insensitive to punctuation.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// containsKeyword reports whether the normalized requirement text contains
// the keyword, either as a substring of a token ("lighting" matches the
// keyword "light") or as a morphological variant sharing a stem ("safely"
// matches the keyword "safety").
func containsKeyword(text, keyword string) bool {
	if strings.Contains(text, keyword) {
		return true
	}
	for _, token := range strings.Fields(text) {
		if sharesStem(token, keyword) {
			return true
		}
	}
	return false
}

// stemMinLen is the minimum shared prefix for two words to count as
// inflections of one stem; suffixes up to two characters may differ
// ("safety"/"safely" share the stem "safe").
const stemMinLen = 4

func sharesStem(a, b string) bool {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n >= stemMinLen && len(a)-n <= 2 && len(b)-n <= 2
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
