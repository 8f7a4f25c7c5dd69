package engine

import (
	"fmt"
	"math"

	"github.com/werkbank/werkbank/pkg/types"
)

// Assembler attaches human-readable rationale to scored recommendations.
//
// This is the output boundary of the "no fallback data" contract: when no
// signal produced a confidence the result keeps a nil confidence and gains
// an explanatory note, instead of a fabricated numeric default.
type Assembler struct{}

// NewAssembler creates an assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble returns an enriched copy of the scored results. The input slice
// is not modified; rationale ordering is stable: confidence first, then
// compatibility outcome, then safety guidance.
func (a *Assembler) Assemble(scored []types.RecommendationResult, uc types.UserContext, notes map[string][]string) []types.RecommendationResult {
	results := make([]types.RecommendationResult, len(scored))

	for i, r := range scored {
		enriched := r
		enriched.Rationale = nil

		if r.Confidence != nil {
			enriched.Rationale = append(enriched.Rationale,
				fmt.Sprintf("confidence %d%%", int(math.Round(*r.Confidence*100))))
		} else {
			enriched.Rationale = append(enriched.Rationale,
				"confidence unavailable: no signal source produced usable data for this product")
		}

		switch r.CompatibilityStatus {
		case types.CompatibilityCompatible:
			enriched.Rationale = append(enriched.Rationale,
				"compatible with your selected products")
		case types.CompatibilityIncompatible:
			enriched.Rationale = append(enriched.Rationale,
				"incompatible with at least one of your selected products; ranked down, review before purchase")
		default:
			enriched.Rationale = append(enriched.Rationale,
				"no compatibility data available for your selected products")
		}

		for _, note := range notes[r.ProductID] {
			enriched.Rationale = append(enriched.Rationale, "safety: "+note)
		}

		if r.SafetyRating == types.SafetyWithPrecautions && uc.SkillLevel == types.SkillBeginner {
			enriched.Rationale = append(enriched.Rationale,
				"safe with precautions: consider guidance from store staff for this step")
		}

		results[i] = enriched
	}

	return results
}
