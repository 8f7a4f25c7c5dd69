// Package storage provides composable storage interfaces for the Werkbank
// recommendation engine.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. The engine consumes four
// read contracts (keyword mappings, product catalog, interactions, and the
// compatibility graph); the Seeder write contract exists for the importer and
// administrative tooling only. The engine itself never writes.
package storage

import (
	"context"

	"github.com/werkbank/werkbank/pkg/types"
)

// KeywordMappingStore serves the externally maintained keyword mappings that
// drive content-based matching. Both queries return the full mapping; the
// engine caches the result for its process lifetime.
//
// An empty result is a valid response at this layer. The engine treats it as
// a deployment defect (fail fast), not as "no keywords".
type KeywordMappingStore interface {
	// CategoryKeywords returns all category → keyword-set mappings.
	CategoryKeywords(ctx context.Context) ([]CategoryKeywords, error)

	// TaskKeywords returns all keyword → task-identifier mappings.
	TaskKeywords(ctx context.Context) ([]TaskKeyword, error)
}

// CatalogStore provides read access to the product catalog.
type CatalogStore interface {
	// ProductsByCategories returns all products belonging to any of the
	// given categories. An empty category list yields an empty result.
	ProductsByCategories(ctx context.Context, categories []string) ([]types.ProductCandidate, error)

	// Product retrieves a single product by ID.
	// Returns ErrNotFound if the product doesn't exist.
	Product(ctx context.Context, id string) (*types.ProductCandidate, error)
}

// InteractionStore provides read access to historical user-product
// interactions for collaborative filtering.
type InteractionStore interface {
	// InteractionsByUser returns all interactions recorded for a user.
	// Returns an empty slice (not an error) when the user has no history.
	InteractionsByUser(ctx context.Context, userID string) ([]InteractionRecord, error)

	// InteractionsByProducts returns interactions for the given products,
	// keyed by product ID. Products without interactions are absent from
	// the map.
	InteractionsByProducts(ctx context.Context, productIDs []string) (map[string][]InteractionRecord, error)
}

// VectorSimilarityProvider is an optional capability of an InteractionStore:
// store-side item similarity over product embedding vectors. The
// collaborative filter prefers it via type assertion when the backend
// implements it (the postgres backend does, using pgvector), and falls back
// to in-process cosine over interaction vectors otherwise.
type VectorSimilarityProvider interface {
	// SimilarProducts returns cosine similarity between anchorID and each
	// candidate that has a stored vector, keyed by candidate ID.
	// Returns ErrNotFound when anchorID has no stored vector.
	SimilarProducts(ctx context.Context, anchorID string, candidateIDs []string) (map[string]float64, error)
}

// GraphStore provides read access to the product compatibility graph.
type GraphStore interface {
	// RelationshipsBetween returns all compatibility edges connecting the
	// pair (productA, productB), resolved bidirectionally: edges stored as
	// A→B and as B→A are both returned. Returns an empty slice (not an
	// error) when no edges exist for the pair; the engine maps that to
	// ErrNotFound at the analysis layer.
	RelationshipsBetween(ctx context.Context, productA, productB string) ([]types.CompatibilityRelationship, error)
}

// Seeder is the write contract used by the importer and setup tooling to
// populate a backend. Seed operations use upsert semantics so that re-running
// an import is safe; task-keyword conflicts resolve last-write-wins.
type Seeder interface {
	SeedCategoryKeyword(ctx context.Context, category, keyword string) error
	SeedTaskKeyword(ctx context.Context, keyword, taskID string) error
	SeedProduct(ctx context.Context, product *types.ProductCandidate) error
	SeedInteraction(ctx context.Context, rec InteractionRecord) error
	SeedRelationship(ctx context.Context, rel *types.CompatibilityRelationship) error
}
