// Package importer loads Werkbank seed data (keyword mappings, product
// catalog, interaction history, compatibility edges) from a YAML file into a
// storage backend. It exists for bootstrap and administrative tooling; the
// engine itself never writes.
package importer

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

// SeedFile is the YAML layout accepted by the importer.
type SeedFile struct {
	Categories []CategorySeed `yaml:"categories"`
	Tasks      []TaskSeed     `yaml:"tasks"`
	Products   []ProductSeed  `yaml:"products"`

	Interactions  []InteractionSeed  `yaml:"interactions"`
	Compatibility []CompatibilitySeed `yaml:"compatibility"`
}

// CategorySeed is one category → keyword-set mapping.
type CategorySeed struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// TaskSeed is one keyword → task mapping.
type TaskSeed struct {
	Keyword string `yaml:"keyword"`
	TaskID  string `yaml:"task_id"`
}

// ProductSeed is one catalog product.
type ProductSeed struct {
	ID         string                 `yaml:"id"`
	Name       string                 `yaml:"name"`
	Category   string                 `yaml:"category"`
	Attributes map[string]interface{} `yaml:"attributes"`
}

// InteractionSeed is one historical user-product interaction.
type InteractionSeed struct {
	UserID    string  `yaml:"user_id"`
	ProductID string  `yaml:"product_id"`
	Weight    float64 `yaml:"weight"`
}

// CompatibilitySeed is one compatibility edge. ID is optional; omitted IDs
// are generated as rel:uuid.
type CompatibilitySeed struct {
	ID          string  `yaml:"id"`
	ProductA    string  `yaml:"product_a"`
	ProductB    string  `yaml:"product_b"`
	Type        string  `yaml:"type"`
	Confidence  float64 `yaml:"confidence"`
	SafetyNotes string  `yaml:"safety_notes"`
	Source      string  `yaml:"source"`
}

// Load reads and validates a seed file.
func Load(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("importer: failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates seed data.
func Parse(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("importer: failed to parse seed file: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// validate rejects malformed seed entries before anything is written, so a
// failed import never leaves a half-broken mapping store behind.
func (s *SeedFile) validate() error {
	for _, cat := range s.Categories {
		if cat.Name == "" {
			return fmt.Errorf("importer: category with empty name: %w", storage.ErrInvalidInput)
		}
		if len(cat.Keywords) == 0 {
			return fmt.Errorf("importer: category %q has no keywords: %w", cat.Name, storage.ErrInvalidInput)
		}
	}

	for _, task := range s.Tasks {
		if task.Keyword == "" || task.TaskID == "" {
			return fmt.Errorf("importer: task mapping needs both keyword and task_id: %w", storage.ErrInvalidInput)
		}
	}

	for _, p := range s.Products {
		if p.ID == "" || p.Name == "" || p.Category == "" {
			return fmt.Errorf("importer: product needs id, name, and category: %w", storage.ErrInvalidInput)
		}
	}

	for _, rec := range s.Interactions {
		if rec.UserID == "" || rec.ProductID == "" {
			return fmt.Errorf("importer: interaction needs user_id and product_id: %w", storage.ErrInvalidInput)
		}
		if rec.Weight < 0 {
			return fmt.Errorf("importer: interaction weight must be non-negative, got %g: %w", rec.Weight, storage.ErrInvalidInput)
		}
	}

	for _, edge := range s.Compatibility {
		if edge.ProductA == "" || edge.ProductB == "" {
			return fmt.Errorf("importer: compatibility edge needs both products: %w", storage.ErrInvalidInput)
		}
		if !types.RelationshipType(edge.Type).Valid() {
			return fmt.Errorf("importer: unknown relationship type %q: %w", edge.Type, storage.ErrInvalidInput)
		}
		if edge.Confidence < 0 || edge.Confidence > 1 {
			return fmt.Errorf("importer: confidence must be in [0,1], got %g: %w", edge.Confidence, storage.ErrInvalidInput)
		}
	}

	return nil
}

// Apply writes the seed data through the given Seeder. Counts are logged per
// section. Task-keyword conflicts resolve last-write-wins, matching the
// load-time semantics of the mapping store.
func (s *SeedFile) Apply(ctx context.Context, seeder storage.Seeder) error {
	keywords := 0
	for _, cat := range s.Categories {
		for _, kw := range cat.Keywords {
			if err := seeder.SeedCategoryKeyword(ctx, cat.Name, kw); err != nil {
				return err
			}
			keywords++
		}
	}
	log.Printf("importer: seeded %d category keywords across %d categories", keywords, len(s.Categories))

	for _, task := range s.Tasks {
		if err := seeder.SeedTaskKeyword(ctx, task.Keyword, task.TaskID); err != nil {
			return err
		}
	}
	log.Printf("importer: seeded %d task keywords", len(s.Tasks))

	for _, p := range s.Products {
		product := &types.ProductCandidate{
			ID:         p.ID,
			Name:       p.Name,
			Category:   p.Category,
			Attributes: p.Attributes,
		}
		if err := seeder.SeedProduct(ctx, product); err != nil {
			return err
		}
	}
	log.Printf("importer: seeded %d products", len(s.Products))

	for _, rec := range s.Interactions {
		weight := rec.Weight
		if weight == 0 {
			weight = 1.0
		}
		if err := seeder.SeedInteraction(ctx, storage.InteractionRecord{
			UserID:    rec.UserID,
			ProductID: rec.ProductID,
			Weight:    weight,
		}); err != nil {
			return err
		}
	}
	log.Printf("importer: seeded %d interactions", len(s.Interactions))

	for _, edge := range s.Compatibility {
		id := edge.ID
		if id == "" {
			id = "rel:" + uuid.NewString()
		}
		if err := seeder.SeedRelationship(ctx, &types.CompatibilityRelationship{
			ID:          id,
			ProductA:    edge.ProductA,
			ProductB:    edge.ProductB,
			Type:        types.RelationshipType(edge.Type),
			Confidence:  edge.Confidence,
			SafetyNotes: edge.SafetyNotes,
			Source:      edge.Source,
		}); err != nil {
			return err
		}
	}
	log.Printf("importer: seeded %d compatibility edges", len(s.Compatibility))

	return nil
}
