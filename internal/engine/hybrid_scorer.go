package engine

import (
	"math"
	"slices"
	"strings"

	"github.com/werkbank/werkbank/internal/config"
	"github.com/werkbank/werkbank/pkg/types"
)

// HybridScorer fuses the three signal sources into a single ranked list.
//
// Per candidate, only the signals that actually produced a value contribute;
// the configured weights are renormalized across the present signals so a
// product is never penalized merely because, say, no collaborative data
// exists for it. Weight validity (non-negative, summing to 1.0) is enforced
// at configuration load, not here.
type HybridScorer struct {
	weights config.HybridWeights
	penalty float64
}

// NewHybridScorer creates a scorer with the given validated weights and
// incompatibility penalty factor.
func NewHybridScorer(weights config.HybridWeights, penalty float64) *HybridScorer {
	return &HybridScorer{weights: weights, penalty: penalty}
}

// Fuse combines the signals into a ranked recommendation list.
//
// The compatibility map is keyed by candidate product ID; a nil or absent
// entry means the verdict is unknown for that candidate. Candidates flagged
// incompatible are demoted by the penalty factor but never dropped: the
// caller needs to know why a product ranks where it does.
func (s *HybridScorer) Fuse(
	content *ContentResult,
	collaborative map[string]types.SimilarityScore,
	compatibility map[string]*types.CompatibilityAnalysis,
	safetyCritical bool,
) []types.RecommendationResult {
	results := make([]types.RecommendationResult, 0, len(content.Candidates))

	for _, candidate := range content.Candidates {
		r := types.RecommendationResult{
			ProductID:           candidate.ID,
			Name:                candidate.Name,
			CompatibilityStatus: types.CompatibilityUnknown,
			SafetyRating:        types.SafetyUnknown,
		}

		var weightSum, weighted float64

		if score, ok := content.Scores[candidate.ID]; ok {
			r.ContentScore = ptr(score)
			weightSum += s.weights.Content
			weighted += s.weights.Content * score
		}

		if sim, ok := collaborative[candidate.ID]; ok {
			r.CollaborativeScore = ptr(sim.Score)
			weightSum += s.weights.Collaborative
			weighted += s.weights.Collaborative * sim.Score
		}

		analysis := compatibility[candidate.ID]
		if analysis != nil {
			r.CompatibilityStatus = analysis.Status
			r.Confidence = ptr(analysis.Confidence)

			// Incompatible contributes zero signal value; the penalty below
			// handles the demotion.
			value := 0.0
			if analysis.Status == types.CompatibilityCompatible {
				value = analysis.Confidence
			}
			weightSum += s.weights.Compatibility
			weighted += s.weights.Compatibility * value
		} else if sim, ok := collaborative[candidate.ID]; ok {
			// No compatibility verdict: fall back to the collaborative
			// similarity as the overall confidence.
			r.Confidence = ptr(sim.Score)
		}

		if weightSum > 0 {
			// Renormalize over the present signals so applied weights
			// still sum to 1.0 for this candidate.
			r.HybridScore = weighted / weightSum
		}

		if r.CompatibilityStatus == types.CompatibilityIncompatible {
			r.HybridScore *= s.penalty
		}

		r.SafetyRating = DeriveSafetyRating(r.CompatibilityStatus, safetyCritical)

		results = append(results, r)
	}

	slices.SortFunc(results, compareResults)
	return results
}

// compareResults orders by hybrid score descending. Scores equal within
// scoreEpsilon tie-break by compatibility confidence descending, then by
// product ID ascending for determinism.
func compareResults(a, b types.RecommendationResult) int {
	diff := a.HybridScore - b.HybridScore
	if math.Abs(diff) > scoreEpsilon {
		if diff > 0 {
			return -1
		}
		return 1
	}

	ca, cb := tieConfidence(a), tieConfidence(b)
	if ca != cb {
		if ca > cb {
			return -1
		}
		return 1
	}

	return strings.Compare(a.ProductID, b.ProductID)
}

// tieConfidence returns the compatibility confidence used for tie-breaks.
// Unknown verdicts rank below any known confidence.
func tieConfidence(r types.RecommendationResult) float64 {
	if r.CompatibilityStatus == types.CompatibilityUnknown || r.Confidence == nil {
		return -1
	}
	return *r.Confidence
}

func ptr(v float64) *float64 {
	return &v
}
