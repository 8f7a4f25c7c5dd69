package types

import "time"

// RelationshipType classifies a compatibility edge between two products.
type RelationshipType string

const (
	CompatibleWith   RelationshipType = "COMPATIBLE_WITH"
	IncompatibleWith RelationshipType = "INCOMPATIBLE_WITH"
)

// Valid reports whether t is a known relationship type.
func (t RelationshipType) Valid() bool {
	return t == CompatibleWith || t == IncompatibleWith
}

// CompatibilityRelationship is a directed edge in the compatibility graph.
// Edges are directional in storage but resolved bidirectionally at query
// time: an edge A→B counts as evidence for the pair (A, B) in either order.
// Multiple edges may exist for the same pair (e.g. inferred from different
// sources); resolution takes the maximum confidence among same-typed edges.
type CompatibilityRelationship struct {
	// ID is the unique edge identifier (format: rel:uuid).
	ID string `json:"id"`

	ProductA string           `json:"product_a"`
	ProductB string           `json:"product_b"`
	Type     RelationshipType `json:"relationship_type"`

	// Confidence is how certain the source of this edge is (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// SafetyNotes is optional free-text safety guidance attached to the edge.
	SafetyNotes string `json:"safety_notes,omitempty"`

	// Source records where the edge came from (e.g. "manufacturer", "inferred").
	Source string `json:"source,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Involves reports whether this edge connects the pair (a, b) in either
// direction.
func (r *CompatibilityRelationship) Involves(a, b string) bool {
	return (r.ProductA == a && r.ProductB == b) || (r.ProductA == b && r.ProductB == a)
}

// CompatibilityAnalysis is the resolved verdict for a product pair after
// applying the safety-precedence and max-confidence rules.
type CompatibilityAnalysis struct {
	Status CompatibilityStatus `json:"status"`

	// Confidence is the maximum confidence among the edges of the winning
	// relationship type (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// SafetyNotes aggregates the safety notes of the contributing edges,
	// in storage order, de-duplicated.
	SafetyNotes []string `json:"safety_notes,omitempty"`
}
