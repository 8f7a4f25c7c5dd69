package engine

import (
	"context"
	"fmt"

	"github.com/werkbank/werkbank/internal/config"
	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

// GraphAnalyzer resolves compatibility verdicts for product pairs from the
// compatibility graph.
//
// The graph is the authority on safety: when it is not configured the
// analyzer refuses to start rather than silently treating all pairs as
// compatible, and when a pair has no data the caller gets
// storage.ErrNotFound, which maps to "unknown" — never to "compatible by
// default".
type GraphAnalyzer struct {
	graph storage.GraphStore
	guard *UpstreamGuard
}

// NewGraphAnalyzer creates an analyzer over the given graph store. A nil
// store is a configuration error: connect a real knowledge graph before
// enabling compatibility checks.
func NewGraphAnalyzer(graph storage.GraphStore, guard *UpstreamGuard) (*GraphAnalyzer, error) {
	if graph == nil {
		return nil, fmt.Errorf("engine: no compatibility graph configured, connect a real knowledge graph before enabling compatibility checks: %w",
			config.ErrInvalidConfig)
	}
	if guard == nil {
		guard = NewUpstreamGuard(GuardConfig{})
	}
	return &GraphAnalyzer{graph: graph, guard: guard}, nil
}

// Analyze resolves the compatibility verdict for the pair (productA,
// productB). Both storage directions count as evidence, so Analyze(a, b)
// and Analyze(b, a) return identical results.
//
// Returns storage.ErrNotFound (wrapped) when no relationship data exists
// for the pair, and storage.ErrUpstreamUnavailable when the graph store is
// unreachable or shedding load.
func (a *GraphAnalyzer) Analyze(ctx context.Context, productA, productB string) (*types.CompatibilityAnalysis, error) {
	if productA == "" || productB == "" {
		return nil, fmt.Errorf("engine: both product IDs are required: %w", storage.ErrInvalidInput)
	}

	if err := a.guard.WaitGraphQuery(ctx); err != nil {
		return nil, err
	}

	v, err := a.guard.Do(ctx, "graph", func() (interface{}, error) {
		return a.graph.RelationshipsBetween(ctx, productA, productB)
	})
	if err != nil {
		return nil, err
	}
	rels := v.([]types.CompatibilityRelationship)

	analysis, err := ResolveRelationships(rels)
	if err != nil {
		return nil, fmt.Errorf("engine: pair (%s, %s): %w", productA, productB, err)
	}
	return analysis, nil
}

// ResolveRelationships arbitrates a set of compatibility edges for one pair
// into a single verdict. It is a pure function over the edge list:
//
//  1. Partition edges into COMPATIBLE_WITH and INCOMPATIBLE_WITH sets.
//  2. Any INCOMPATIBLE_WITH edge wins regardless of how many or how
//     confident the COMPATIBLE_WITH edges are (safety overrides
//     convenience). Confidence is the maximum within the incompatible set;
//     safety notes aggregate from all edges.
//  3. Otherwise a non-empty COMPATIBLE_WITH set yields "compatible" with
//     the maximum confidence within that set.
//  4. An empty edge list yields storage.ErrNotFound.
func ResolveRelationships(rels []types.CompatibilityRelationship) (*types.CompatibilityAnalysis, error) {
	if len(rels) == 0 {
		return nil, fmt.Errorf("no relationship data: %w", storage.ErrNotFound)
	}

	var compatible, incompatible []types.CompatibilityRelationship
	for _, rel := range rels {
		switch rel.Type {
		case types.IncompatibleWith:
			incompatible = append(incompatible, rel)
		case types.CompatibleWith:
			compatible = append(compatible, rel)
		}
	}

	if len(incompatible) > 0 {
		return &types.CompatibilityAnalysis{
			Status:      types.CompatibilityIncompatible,
			Confidence:  maxConfidence(incompatible),
			SafetyNotes: collectSafetyNotes(rels),
		}, nil
	}

	if len(compatible) > 0 {
		return &types.CompatibilityAnalysis{
			Status:      types.CompatibilityCompatible,
			Confidence:  maxConfidence(compatible),
			SafetyNotes: collectSafetyNotes(compatible),
		}, nil
	}

	// Edges existed but none carried a known type.
	return nil, fmt.Errorf("no usable relationship data: %w", storage.ErrNotFound)
}

// DeriveSafetyRating maps a compatibility status to a safety rating.
// Unknown status never defaults to "safe".
func DeriveSafetyRating(status types.CompatibilityStatus, safetyCritical bool) types.SafetyRating {
	switch status {
	case types.CompatibilityIncompatible:
		return types.SafetyUnsafe
	case types.CompatibilityCompatible:
		if safetyCritical {
			return types.SafetyWithPrecautions
		}
		return types.SafetySafe
	default:
		return types.SafetyUnknown
	}
}

// maxConfidence returns the highest confidence among the given edges.
func maxConfidence(rels []types.CompatibilityRelationship) float64 {
	max := 0.0
	for _, rel := range rels {
		if rel.Confidence > max {
			max = rel.Confidence
		}
	}
	return max
}

// collectSafetyNotes gathers non-empty safety notes in edge order,
// de-duplicated.
func collectSafetyNotes(rels []types.CompatibilityRelationship) []string {
	seen := make(map[string]bool, len(rels))
	var notes []string
	for _, rel := range rels {
		if rel.SafetyNotes == "" || seen[rel.SafetyNotes] {
			continue
		}
		seen[rel.SafetyNotes] = true
		notes = append(notes, rel.SafetyNotes)
	}
	return notes
}
