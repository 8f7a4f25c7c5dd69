package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

// mockKeywordStore is an in-memory KeywordMappingStore with load counting
// for cache tests.
type mockKeywordStore struct {
	categories []storage.CategoryKeywords
	tasks      []storage.TaskKeyword
	err        error

	loadDelay time.Duration
	loads     atomic.Int32
}

func (m *mockKeywordStore) CategoryKeywords(ctx context.Context) ([]storage.CategoryKeywords, error) {
	m.loads.Add(1)
	if m.loadDelay > 0 {
		time.Sleep(m.loadDelay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.categories, nil
}

func (m *mockKeywordStore) TaskKeywords(ctx context.Context) ([]storage.TaskKeyword, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.tasks, nil
}

// mockCatalog is an in-memory CatalogStore.
type mockCatalog struct {
	products []types.ProductCandidate
	err      error
}

func (m *mockCatalog) ProductsByCategories(ctx context.Context, categories []string) ([]types.ProductCandidate, error) {
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}
	var result []types.ProductCandidate
	for _, p := range m.products {
		if want[p.Category] {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockCatalog) Product(ctx context.Context, id string) (*types.ProductCandidate, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

// mockInteractionStore is an in-memory InteractionStore.
type mockInteractionStore struct {
	records []storage.InteractionRecord
	err     error
}

func (m *mockInteractionStore) InteractionsByUser(ctx context.Context, userID string) ([]storage.InteractionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []storage.InteractionRecord
	for _, rec := range m.records {
		if rec.UserID == userID {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *mockInteractionStore) InteractionsByProducts(ctx context.Context, productIDs []string) (map[string][]storage.InteractionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	result := make(map[string][]storage.InteractionRecord)
	for _, rec := range m.records {
		if want[rec.ProductID] {
			result[rec.ProductID] = append(result[rec.ProductID], rec)
		}
	}
	return result, nil
}

// mockVectorStore is an interaction store that also serves store-side
// similarity, like the postgres backend with pgvector.
type mockVectorStore struct {
	mockInteractionStore

	// sims maps anchor ID → candidate ID → similarity.
	sims    map[string]map[string]float64
	simErr  error
	queried atomic.Int32
}

func (m *mockVectorStore) SimilarProducts(ctx context.Context, anchorID string, candidateIDs []string) (map[string]float64, error) {
	m.queried.Add(1)
	if m.simErr != nil {
		return nil, m.simErr
	}
	anchorSims, ok := m.sims[anchorID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	result := make(map[string]float64)
	for _, id := range candidateIDs {
		if sim, found := anchorSims[id]; found {
			result[id] = sim
		}
	}
	return result, nil
}

// mockGraphStore is an in-memory GraphStore holding directed edges and
// resolving them bidirectionally, like the real backends.
type mockGraphStore struct {
	edges []types.CompatibilityRelationship
	err   error
	calls atomic.Int32
}

func (m *mockGraphStore) RelationshipsBetween(ctx context.Context, productA, productB string) ([]types.CompatibilityRelationship, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	var result []types.CompatibilityRelationship
	for _, edge := range m.edges {
		if edge.Involves(productA, productB) {
			result = append(result, edge)
		}
	}
	return result, nil
}
