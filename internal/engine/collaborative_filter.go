package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/werkbank/werkbank/internal/config"
	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

// CollaborativeFilter scores candidate products against the user's
// interaction history.
//
// The similarity measure is cosine similarity, applied consistently in both
// modes:
//
//   - item-based (anchor products present): each candidate is compared
//     against every anchor over their user-interaction vectors, and the
//     maximum similarity wins. When the backing store implements
//     storage.VectorSimilarityProvider (the postgres backend with pgvector),
//     the comparison is pushed down to the store over product embedding
//     vectors instead.
//   - user-based (no anchors, known user): users are compared over their
//     interaction weights on the relevant product subspace; a candidate's
//     score is the similarity-weighted average of similar users' normalized
//     interaction with it.
//
// Scores below the applicable configured minimum threshold are excluded from
// the result mapping entirely — absent key, never a zero-valued entry.
type CollaborativeFilter struct {
	interactions storage.InteractionStore
	vectors      storage.VectorSimilarityProvider // nil when the backend has no vector support
	minUserSim   float64
	minItemSim   float64
}

// NewCollaborativeFilter creates a collaborative filter. Store-side vector
// similarity is used automatically when the interaction store implements
// storage.VectorSimilarityProvider.
func NewCollaborativeFilter(store storage.InteractionStore, cfg config.CollaborativeConfig) *CollaborativeFilter {
	f := &CollaborativeFilter{
		interactions: store,
		minUserSim:   cfg.MinUserSimilarity,
		minItemSim:   cfg.MinItemSimilarity,
	}
	if vp, ok := store.(storage.VectorSimilarityProvider); ok {
		f.vectors = vp
	}
	return f
}

// Score computes similarity scores for the candidate products.
//
// An empty result map is valid and means "no collaborative signal
// available" — no history for the context, or every computed score fell
// below its threshold. The hybrid scorer handles missing entries by
// renormalizing weights, never by treating them as zero.
func (f *CollaborativeFilter) Score(ctx context.Context, candidateIDs []string, uc types.UserContext) (map[string]types.SimilarityScore, error) {
	result := make(map[string]types.SimilarityScore)
	if len(candidateIDs) == 0 {
		return result, nil
	}

	if len(uc.AnchorProducts) > 0 {
		return f.scoreItemBased(ctx, candidateIDs, uc.AnchorProducts)
	}
	if uc.UserID != "" {
		return f.scoreUserBased(ctx, candidateIDs, uc.UserID)
	}

	// Anonymous request with no anchors: no collaborative signal.
	return result, nil
}

// scoreItemBased compares each candidate against the anchor products and
// keeps the maximum similarity per candidate.
func (f *CollaborativeFilter) scoreItemBased(ctx context.Context, candidateIDs, anchors []string) (map[string]types.SimilarityScore, error) {
	result := make(map[string]types.SimilarityScore)

	best := make(map[string]types.SimilarityScore)
	useVectors := f.vectors != nil

	if useVectors {
		for _, anchor := range anchors {
			sims, err := f.vectors.SimilarProducts(ctx, anchor, candidateIDs)
			if errors.Is(err, storage.ErrNotFound) {
				// No stored vector for this anchor; fall back to
				// interaction-vector cosine for the whole request so one
				// consistent measure is used throughout.
				log.Printf("engine: no embedding vector for anchor %s, falling back to interaction cosine", anchor)
				useVectors = false
				break
			}
			if err != nil {
				return nil, fmt.Errorf("engine: store-side similarity failed: %w", err)
			}
			for id, sim := range sims {
				if prev, ok := best[id]; !ok || sim > prev.Score {
					best[id] = types.SimilarityScore{
						SourceItem: anchor,
						TargetItem: id,
						Score:      sim,
						Basis:      types.BasisItemBased,
					}
				}
			}
		}
	}

	if !useVectors {
		best = make(map[string]types.SimilarityScore)

		ids := make([]string, 0, len(candidateIDs)+len(anchors))
		ids = append(ids, candidateIDs...)
		ids = append(ids, anchors...)
		byProduct, err := f.interactions.InteractionsByProducts(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("engine: failed to load interactions: %w", err)
		}

		vectors := make(map[string]map[string]float64, len(byProduct))
		for productID, records := range byProduct {
			vectors[productID] = interactionVector(records)
		}

		for _, candidate := range candidateIDs {
			cv, ok := vectors[candidate]
			if !ok {
				continue
			}
			for _, anchor := range anchors {
				av, ok := vectors[anchor]
				if !ok {
					continue
				}
				sim := cosine(cv, av)
				if prev, found := best[candidate]; !found || sim > prev.Score {
					best[candidate] = types.SimilarityScore{
						SourceItem: anchor,
						TargetItem: candidate,
						Score:      sim,
						Basis:      types.BasisItemBased,
					}
				}
			}
		}
	}

	// Threshold exclusion: below-threshold scores are absent, not zeroed.
	for id, score := range best {
		if score.Score < f.minItemSim {
			continue
		}
		result[id] = score
	}

	return result, nil
}

// scoreUserBased predicts the user's preference for each candidate from the
// interactions of similar users.
func (f *CollaborativeFilter) scoreUserBased(ctx context.Context, candidateIDs []string, userID string) (map[string]types.SimilarityScore, error) {
	result := make(map[string]types.SimilarityScore)

	history, err := f.interactions.InteractionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to load history for user %s: %w", userID, err)
	}
	if len(history) == 0 {
		// No interaction history: a valid "no collaborative signal" result.
		return result, nil
	}

	// Build the product subspace: the candidates plus everything the user
	// has touched. User-user similarity is computed over this subspace.
	subspace := make(map[string]bool, len(candidateIDs)+len(history))
	for _, id := range candidateIDs {
		subspace[id] = true
	}
	for _, rec := range history {
		subspace[rec.ProductID] = true
	}
	ids := make([]string, 0, len(subspace))
	for id := range subspace {
		ids = append(ids, id)
	}

	byProduct, err := f.interactions.InteractionsByProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to load subspace interactions: %w", err)
	}

	// Pivot to per-user vectors: userID → (productID → weight).
	userVectors := make(map[string]map[string]float64)
	for productID, records := range byProduct {
		for _, rec := range records {
			if userVectors[rec.UserID] == nil {
				userVectors[rec.UserID] = make(map[string]float64)
			}
			userVectors[rec.UserID][productID] = rec.Weight
		}
	}

	target, ok := userVectors[userID]
	if !ok {
		// History exists but touches nothing in the subspace.
		return result, nil
	}

	// Similar users, thresholded on user similarity.
	neighborSims := make(map[string]float64)
	for other, vec := range userVectors {
		if other == userID {
			continue
		}
		sim := cosine(target, vec)
		if sim < f.minUserSim {
			continue
		}
		neighborSims[other] = sim
	}
	if len(neighborSims) == 0 {
		return result, nil
	}

	// Normalize each neighbor's weights by their maximum so predicted
	// preferences land in [0, 1].
	neighborMax := make(map[string]float64, len(neighborSims))
	for other := range neighborSims {
		for _, w := range userVectors[other] {
			if w > neighborMax[other] {
				neighborMax[other] = w
			}
		}
	}

	for _, candidate := range candidateIDs {
		var weighted, simSum float64
		for other, sim := range neighborSims {
			w, interacted := userVectors[other][candidate]
			if !interacted || neighborMax[other] == 0 {
				continue
			}
			weighted += sim * (w / neighborMax[other])
			simSum += sim
		}
		if simSum == 0 {
			continue
		}
		score := weighted / simSum
		if score < f.minUserSim {
			continue
		}
		result[candidate] = types.SimilarityScore{
			SourceItem: userID,
			TargetItem: candidate,
			Score:      score,
			Basis:      types.BasisUserBased,
		}
	}

	return result, nil
}

// interactionVector pivots a product's interaction records into a
// userID → weight vector.
func interactionVector(records []storage.InteractionRecord) map[string]float64 {
	vec := make(map[string]float64, len(records))
	for _, rec := range records {
		vec[rec.UserID] = rec.Weight
	}
	return vec
}

// cosine computes cosine similarity between two sparse vectors.
// Returns 0 when either vector is empty or has zero magnitude.
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Iterate the smaller vector for the dot product.
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64
	for k, av := range a {
		if bv, ok := b[k]; ok {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}

	var magA, magB float64
	for _, v := range a {
		magA += v * v
	}
	for _, v := range b {
		magB += v * v
	}
	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
