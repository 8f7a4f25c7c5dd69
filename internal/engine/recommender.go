package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/werkbank/werkbank/internal/config"
	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

// Stores bundles the read stores the recommender depends on. All four are
// required; the engine fails to construct rather than degrading silently at
// startup.
type Stores struct {
	Keywords     storage.KeywordMappingStore
	Catalog      storage.CatalogStore
	Interactions storage.InteractionStore
	Graph        storage.GraphStore
}

// Recommender is the caller-facing entry point of the recommendation
// pipeline. It is safe for concurrent use; each Recommend call is an
// independent request-scoped computation.
type Recommender struct {
	matcher    *ContentMatcher
	filter     *CollaborativeFilter
	analyzer   *GraphAnalyzer
	scorer     *HybridScorer
	assembler  *Assembler
	cache      *KeywordCache
	maxResults int
}

// NewRecommender wires the pipeline from validated configuration and the
// provided stores. Missing stores are configuration errors.
func NewRecommender(cfg *config.Config, stores Stores) (*Recommender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine: configuration is required: %w", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stores.Keywords == nil || stores.Catalog == nil || stores.Interactions == nil {
		return nil, fmt.Errorf("engine: keyword, catalog, and interaction stores are required: %w", config.ErrInvalidConfig)
	}

	guard := NewUpstreamGuard(GuardConfig{})

	analyzer, err := NewGraphAnalyzer(stores.Graph, guard)
	if err != nil {
		return nil, err
	}

	cache := NewKeywordCache(stores.Keywords)

	return &Recommender{
		matcher:    NewContentMatcher(cache, stores.Catalog),
		filter:     NewCollaborativeFilter(stores.Interactions, cfg.Collaborative),
		analyzer:   analyzer,
		scorer:     NewHybridScorer(cfg.Hybrid, cfg.Engine.IncompatibilityPenalty),
		assembler:  NewAssembler(),
		cache:      cache,
		maxResults: cfg.Engine.MaxResults,
	}, nil
}

// InvalidateMappings discards the keyword-mapping cache so the next request
// reloads it. This is the administrative reload hook; request traffic never
// triggers it.
func (r *Recommender) InvalidateMappings() {
	r.cache.Invalidate()
}

// Recommend produces a ranked recommendation list for the given requirement
// texts and user context.
//
// Signal-source-local failures degrade only the affected signal: weights are
// renormalized over what remains and the gaps surface as unknown statuses
// and nil confidences. The request fails outright only when configuration is
// broken (empty mapping store, missing graph) or when every signal source is
// unavailable — the caller never receives recommendations that look complete
// but contain silently substituted values.
func (r *Recommender) Recommend(ctx context.Context, requirements []string, uc types.UserContext) ([]types.RecommendationResult, error) {
	content, err := r.matcher.Match(ctx, requirements)
	if err != nil {
		return nil, err
	}
	if len(content.Candidates) == 0 {
		// Genuine no-match: valid requirements, no keyword hit.
		return []types.RecommendationResult{}, nil
	}

	candidateIDs := make([]string, len(content.Candidates))
	for i, c := range content.Candidates {
		candidateIDs[i] = c.ID
	}

	collaborative, collabErr := r.filter.Score(ctx, candidateIDs, uc)
	if collabErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("engine: collaborative signal unavailable: %v", collabErr)
		collaborative = nil
	}

	compatibility, notes, compatErr := r.analyzeCandidates(ctx, candidateIDs, uc.AnchorProducts)
	if compatErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("engine: compatibility signal unavailable: %v", compatErr)
		compatibility = nil
		notes = nil
	}

	contentAvailable := len(content.Scores) > 0
	if !contentAvailable && collabErr != nil && compatErr != nil {
		return nil, fmt.Errorf("engine: all signal sources unavailable, refusing to fabricate recommendations: %w",
			storage.ErrUpstreamUnavailable)
	}

	scored := r.scorer.Fuse(content, collaborative, compatibility, uc.SafetyCritical)
	if len(scored) > r.maxResults {
		scored = scored[:r.maxResults]
	}

	return r.assembler.Assemble(scored, uc, notes), nil
}

// analyzeCandidates resolves each candidate's compatibility verdict against
// the anchor set.
//
// Per-pair gaps (storage.ErrNotFound) leave that pair out of the aggregate.
// Transient per-pair failures mark only that candidate unknown. An
// unavailable graph store (circuit open, connection refused) abandons the
// signal for the whole request and is reported to the caller via the
// returned error.
func (r *Recommender) analyzeCandidates(ctx context.Context, candidateIDs, anchors []string) (map[string]*types.CompatibilityAnalysis, map[string][]string, error) {
	compatibility := make(map[string]*types.CompatibilityAnalysis, len(candidateIDs))
	notes := make(map[string][]string)

	if len(anchors) == 0 {
		// Nothing to validate against: every candidate stays unknown.
		return compatibility, notes, nil
	}

	for _, candidate := range candidateIDs {
		var pairAnalyses []*types.CompatibilityAnalysis

		for _, anchor := range anchors {
			if candidate == anchor {
				continue
			}

			analysis, err := r.analyzer.Analyze(ctx, candidate, anchor)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if errors.Is(err, storage.ErrUpstreamUnavailable) || ctx.Err() != nil {
				return nil, nil, err
			}
			if err != nil {
				// Local failure: this candidate stays unknown, the rest of
				// the request proceeds.
				log.Printf("engine: compatibility lookup failed for (%s, %s): %v", candidate, anchor, err)
				pairAnalyses = nil
				break
			}
			pairAnalyses = append(pairAnalyses, analysis)
		}

		if aggregate := aggregatePairAnalyses(pairAnalyses); aggregate != nil {
			compatibility[candidate] = aggregate
			notes[candidate] = aggregate.SafetyNotes
		}
	}

	return compatibility, notes, nil
}

// aggregatePairAnalyses folds a candidate's per-anchor verdicts into one.
// Any incompatible pair makes the candidate incompatible (safety
// precedence); confidence is the maximum within the winning status.
// Returns nil when no pair produced a verdict.
func aggregatePairAnalyses(analyses []*types.CompatibilityAnalysis) *types.CompatibilityAnalysis {
	if len(analyses) == 0 {
		return nil
	}

	var incompatible, compatible []*types.CompatibilityAnalysis
	for _, a := range analyses {
		switch a.Status {
		case types.CompatibilityIncompatible:
			incompatible = append(incompatible, a)
		case types.CompatibilityCompatible:
			compatible = append(compatible, a)
		}
	}

	pick := func(winning []*types.CompatibilityAnalysis, status types.CompatibilityStatus, allNotes bool) *types.CompatibilityAnalysis {
		result := &types.CompatibilityAnalysis{Status: status}
		for _, a := range winning {
			if a.Confidence > result.Confidence {
				result.Confidence = a.Confidence
			}
		}
		source := winning
		if allNotes {
			source = analyses
		}
		seen := make(map[string]bool)
		for _, a := range source {
			for _, note := range a.SafetyNotes {
				if note == "" || seen[note] {
					continue
				}
				seen[note] = true
				result.SafetyNotes = append(result.SafetyNotes, note)
			}
		}
		return result
	}

	if len(incompatible) > 0 {
		return pick(incompatible, types.CompatibilityIncompatible, true)
	}
	if len(compatible) > 0 {
		return pick(compatible, types.CompatibilityCompatible, false)
	}
	return nil
}
