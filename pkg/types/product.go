// Package types defines the shared domain types for the Werkbank
// recommendation engine: product candidates, user context, similarity
// scores, compatibility relationships, and the recommendation results
// returned to callers.
package types

// SkillLevel describes the self-reported experience level of the user
// requesting recommendations. It influences rationale wording, not scoring.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// UserContext carries per-request user information through the
// recommendation pipeline.
type UserContext struct {
	// UserID identifies the user for collaborative filtering.
	// Empty when the caller is anonymous.
	UserID string `json:"user_id,omitempty"`

	// SkillLevel is the user's experience level.
	SkillLevel SkillLevel `json:"skill_level,omitempty"`

	// AnchorProducts are products already present in the user's project or
	// quotation. They serve as anchors for item-based similarity and as the
	// reference set for compatibility checks.
	AnchorProducts []string `json:"anchor_products,omitempty"`

	// SafetyCritical marks requests where compatible products must still be
	// flagged for precautions (e.g. electrical or structural work).
	SafetyCritical bool `json:"safety_critical,omitempty"`
}

// ProductCandidate is a product surfaced by the content matcher.
// Candidates are immutable once created; every pipeline stage returns a new
// sequence rather than mutating its input.
type ProductCandidate struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Category   string                 `json:"category"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// SimilarityBasis identifies which collaborative-filtering mode produced a
// similarity score.
type SimilarityBasis string

const (
	BasisUserBased SimilarityBasis = "user_based"
	BasisItemBased SimilarityBasis = "item_based"
)

// SimilarityScore is a collaborative-filtering similarity between a source
// (anchor product or user) and a target product. Scores below the configured
// minimum threshold are discarded by the filter, never clamped to zero.
type SimilarityScore struct {
	SourceItem string          `json:"source_item"`
	TargetItem string          `json:"target_item"`
	Score      float64         `json:"score"` // 0.0 to 1.0
	Basis      SimilarityBasis `json:"basis"`
}

// CompatibilityStatus is the resolved compatibility verdict for a product
// against the user's anchor set.
type CompatibilityStatus string

const (
	CompatibilityCompatible   CompatibilityStatus = "compatible"
	CompatibilityIncompatible CompatibilityStatus = "incompatible"
	CompatibilityUnknown      CompatibilityStatus = "unknown"
)

// SafetyRating is derived from the compatibility status and the request's
// safety-critical flag. An unknown status never defaults to "safe".
type SafetyRating string

const (
	SafetySafe            SafetyRating = "safe"
	SafetyWithPrecautions SafetyRating = "safe_with_precautions"
	SafetyUnsafe          SafetyRating = "unsafe"
	SafetyUnknown         SafetyRating = "unknown"
)

// RecommendationResult is one ranked recommendation. Nil score pointers mean
// the corresponding signal produced no value for this product; they are never
// filled with fabricated defaults.
type RecommendationResult struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`

	// HybridScore is the weighted fusion of all available signals,
	// renormalized over the signals actually present for this product.
	HybridScore float64 `json:"hybrid_score"`

	// ContentScore is the content-based signal, nil when unavailable.
	ContentScore *float64 `json:"content_score,omitempty"`

	// CollaborativeScore is the collaborative signal, nil when unavailable.
	CollaborativeScore *float64 `json:"collaborative_score,omitempty"`

	CompatibilityStatus CompatibilityStatus `json:"compatibility_status"`

	// Confidence is the overall confidence for this recommendation,
	// nil when no contributing signal produced one.
	Confidence *float64 `json:"confidence,omitempty"`

	SafetyRating SafetyRating `json:"safety_rating"`

	// Rationale is an ordered list of human-readable notes explaining the
	// ranking: confidence percentage, compatibility outcome, safety notes.
	Rationale []string `json:"rationale,omitempty"`
}
