package engine

import (
	"strings"
	"testing"

	"github.com/werkbank/werkbank/pkg/types"
)

func TestAssembleConfidencePercentage(t *testing.T) {
	assembler := NewAssembler()

	scored := []types.RecommendationResult{
		{
			ProductID:           "c1",
			Confidence:          ptr(0.87),
			CompatibilityStatus: types.CompatibilityCompatible,
			SafetyRating:        types.SafetySafe,
		},
	}

	results := assembler.Assemble(scored, types.UserContext{}, nil)
	if len(results[0].Rationale) == 0 {
		t.Fatal("expected rationale")
	}
	if results[0].Rationale[0] != "confidence 87%" {
		t.Errorf("expected rounded percentage first, got %q", results[0].Rationale[0])
	}
	if results[0].Rationale[1] != "compatible with your selected products" {
		t.Errorf("expected compatibility note second, got %q", results[0].Rationale[1])
	}
}

func TestAssembleNilConfidence(t *testing.T) {
	assembler := NewAssembler()

	scored := []types.RecommendationResult{
		{ProductID: "c1", CompatibilityStatus: types.CompatibilityUnknown, SafetyRating: types.SafetyUnknown},
	}

	results := assembler.Assemble(scored, types.UserContext{}, nil)
	r := results[0]

	// The contract: no numeric substitute, an explanatory note instead.
	if r.Confidence != nil {
		t.Errorf("expected nil confidence to stay nil, got %v", *r.Confidence)
	}
	if !strings.Contains(r.Rationale[0], "confidence unavailable") {
		t.Errorf("expected an unavailability note, got %q", r.Rationale[0])
	}
}

func TestAssembleSafetyNotes(t *testing.T) {
	assembler := NewAssembler()

	scored := []types.RecommendationResult{
		{ProductID: "c1", CompatibilityStatus: types.CompatibilityIncompatible, SafetyRating: types.SafetyUnsafe, Confidence: ptr(0.6)},
	}
	notes := map[string][]string{
		"c1": {"voltage mismatch, fire hazard"},
	}

	results := assembler.Assemble(scored, types.UserContext{}, notes)

	var found bool
	for _, line := range results[0].Rationale {
		if line == "safety: voltage mismatch, fire hazard" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the safety note in the rationale, got %v", results[0].Rationale)
	}
}

func TestAssembleBeginnerPrecautions(t *testing.T) {
	assembler := NewAssembler()

	scored := []types.RecommendationResult{
		{
			ProductID:           "c1",
			Confidence:          ptr(0.9),
			CompatibilityStatus: types.CompatibilityCompatible,
			SafetyRating:        types.SafetyWithPrecautions,
		},
	}

	beginner := assembler.Assemble(scored, types.UserContext{SkillLevel: types.SkillBeginner}, nil)
	last := beginner[0].Rationale[len(beginner[0].Rationale)-1]
	if !strings.Contains(last, "guidance from store staff") {
		t.Errorf("expected beginner guidance note, got %v", beginner[0].Rationale)
	}

	advanced := assembler.Assemble(scored, types.UserContext{SkillLevel: types.SkillAdvanced}, nil)
	for _, line := range advanced[0].Rationale {
		if strings.Contains(line, "guidance from store staff") {
			t.Errorf("advanced users should not get the beginner note, got %v", advanced[0].Rationale)
		}
	}
}

func TestAssembleDoesNotMutateInput(t *testing.T) {
	assembler := NewAssembler()

	scored := []types.RecommendationResult{
		{ProductID: "c1", CompatibilityStatus: types.CompatibilityUnknown},
	}

	_ = assembler.Assemble(scored, types.UserContext{}, nil)
	if scored[0].Rationale != nil {
		t.Error("input slice must not be modified")
	}
}
