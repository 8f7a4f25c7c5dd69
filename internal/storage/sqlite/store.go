// Package sqlite implements the Werkbank storage interfaces on a single
// SQLite database file. It is the default backend for development and
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

// Schema is the SQLite schema for all Werkbank read models.
const Schema = `
CREATE TABLE IF NOT EXISTS category_keywords (
    category TEXT NOT NULL,
    keyword  TEXT NOT NULL,
    PRIMARY KEY (category, keyword)
);

CREATE TABLE IF NOT EXISTS task_keywords (
    keyword TEXT PRIMARY KEY,
    task_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    category   TEXT NOT NULL,
    attributes TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

CREATE TABLE IF NOT EXISTS interactions (
    user_id    TEXT NOT NULL,
    product_id TEXT NOT NULL,
    weight     REAL NOT NULL DEFAULT 1.0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, product_id)
);
CREATE INDEX IF NOT EXISTS idx_interactions_product ON interactions(product_id);

CREATE TABLE IF NOT EXISTS compatibility_edges (
    id                TEXT PRIMARY KEY,
    product_a         TEXT NOT NULL,
    product_b         TEXT NOT NULL,
    relationship_type TEXT NOT NULL,
    confidence        REAL NOT NULL,
    safety_notes      TEXT NOT NULL DEFAULT '',
    source            TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_edges_forward ON compatibility_edges(product_a, product_b);
CREATE INDEX IF NOT EXISTS idx_edges_reverse ON compatibility_edges(product_b, product_a);
`

// Store implements the Werkbank storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// Compile-time interface checks.
var (
	_ storage.KeywordMappingStore = (*Store)(nil)
	_ storage.CatalogStore        = (*Store)(nil)
	_ storage.InteractionStore    = (*Store)(nil)
	_ storage.GraphStore          = (*Store)(nil)
	_ storage.Seeder              = (*Store)(nil)
)

// New opens a SQLite database, configures WAL mode, and creates the schema.
// The DSN is a file path or ":memory:".
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open
	// connection serialises writes and avoids SQLITE_BUSY errors under
	// concurrent load. WAL mode allows concurrent readers to proceed
	// without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Connections live for the lifetime of the store.

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	// Wait instead of returning SQLITE_BUSY when the connection is held
	// by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetDB exposes the underlying database handle for tests and tooling.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SeedCategoryKeyword upserts one category → keyword pair.
func (s *Store) SeedCategoryKeyword(ctx context.Context, category, keyword string) error {
	if category == "" || keyword == "" {
		return fmt.Errorf("sqlite: category and keyword are required: %w", storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_keywords (category, keyword)
		VALUES (?, ?)
		ON CONFLICT(category, keyword) DO NOTHING
	`, category, keyword)
	if err != nil {
		return fmt.Errorf("sqlite: failed to seed category keyword: %w", err)
	}
	return nil
}

// SeedTaskKeyword upserts one keyword → task mapping. A keyword maps to
// exactly one task; re-seeding overwrites (last-write-wins at load time).
func (s *Store) SeedTaskKeyword(ctx context.Context, keyword, taskID string) error {
	if keyword == "" || taskID == "" {
		return fmt.Errorf("sqlite: keyword and task_id are required: %w", storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_keywords (keyword, task_id)
		VALUES (?, ?)
		ON CONFLICT(keyword) DO UPDATE SET task_id = excluded.task_id
	`, keyword, taskID)
	if err != nil {
		return fmt.Errorf("sqlite: failed to seed task keyword: %w", err)
	}
	return nil
}

// SeedProduct upserts one catalog product.
func (s *Store) SeedProduct(ctx context.Context, product *types.ProductCandidate) error {
	if product == nil || product.ID == "" {
		return fmt.Errorf("sqlite: product with ID is required: %w", storage.ErrInvalidInput)
	}
	attrs, err := marshalAttributes(product.Attributes)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, attributes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			attributes = excluded.attributes
	`, product.ID, product.Name, product.Category, attrs)
	if err != nil {
		return fmt.Errorf("sqlite: failed to seed product: %w", err)
	}
	return nil
}

// SeedInteraction upserts one user-product interaction.
func (s *Store) SeedInteraction(ctx context.Context, rec storage.InteractionRecord) error {
	if rec.UserID == "" || rec.ProductID == "" {
		return fmt.Errorf("sqlite: user_id and product_id are required: %w", storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (user_id, product_id, weight)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, product_id) DO UPDATE SET weight = excluded.weight
	`, rec.UserID, rec.ProductID, rec.Weight)
	if err != nil {
		return fmt.Errorf("sqlite: failed to seed interaction: %w", err)
	}
	return nil
}

// SeedRelationship inserts one compatibility edge. Edges are append-only:
// multiple edges between the same pair are expected (different sources) and
// arbitrated at query time.
func (s *Store) SeedRelationship(ctx context.Context, rel *types.CompatibilityRelationship) error {
	if rel == nil || rel.ProductA == "" || rel.ProductB == "" {
		return fmt.Errorf("sqlite: both products are required: %w", storage.ErrInvalidInput)
	}
	if !rel.Type.Valid() {
		return fmt.Errorf("sqlite: unknown relationship type %q: %w", rel.Type, storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compatibility_edges (id, product_a, product_b, relationship_type, confidence, safety_notes, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rel.ID, rel.ProductA, rel.ProductB, string(rel.Type), rel.Confidence, rel.SafetyNotes, rel.Source)
	if err != nil {
		return fmt.Errorf("sqlite: failed to seed relationship: %w", err)
	}
	return nil
}
