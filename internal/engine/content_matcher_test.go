package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/werkbank/werkbank/internal/config"
	"github.com/werkbank/werkbank/pkg/types"
)

func testCatalog() *mockCatalog {
	return &mockCatalog{
		products: []types.ProductCandidate{
			{ID: "p_drill", Name: "Cordless Drill 18V", Category: "tools"},
			{ID: "p_hammer", Name: "Claw Hammer", Category: "tools"},
			{ID: "p_led", Name: "LED Ceiling Light", Category: "lighting"},
			{ID: "p_goggles", Name: "Safety Goggles", Category: "safety"},
			{ID: "p_paint", Name: "Wall Paint White", Category: "paint"},
		},
	}
}

func TestContentMatcherMultiCategory(t *testing.T) {
	matcher := NewContentMatcher(NewKeywordCache(testMappingStore()), testCatalog())

	result, err := matcher.Match(context.Background(),
		[]string{"I need to drill holes and install lighting safely"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	wantCategories := []string{"lighting", "safety", "tools"}
	if !reflect.DeepEqual(result.Categories, wantCategories) {
		t.Errorf("expected categories %v, got %v", wantCategories, result.Categories)
	}

	wantTasks := []string{"task_drill_hole", "task_install_lighting", "task_safety_compliance"}
	if !reflect.DeepEqual(result.Tasks, wantTasks) {
		t.Errorf("expected tasks %v, got %v", wantTasks, result.Tasks)
	}

	// Candidates come from all matched categories; paint never matched.
	ids := make(map[string]bool)
	for _, c := range result.Candidates {
		ids[c.ID] = true
	}
	for _, want := range []string{"p_drill", "p_hammer", "p_led", "p_goggles"} {
		if !ids[want] {
			t.Errorf("expected candidate %s in result", want)
		}
	}
	if ids["p_paint"] {
		t.Error("paint must not be a candidate, its category never matched")
	}
}

func TestContentMatcherEmptyRequirements(t *testing.T) {
	matcher := NewContentMatcher(NewKeywordCache(testMappingStore()), testCatalog())

	result, err := matcher.Match(context.Background(), nil)
	if err != nil {
		t.Fatalf("Match with empty input failed: %v", err)
	}
	if len(result.Categories) != 0 || len(result.Tasks) != 0 || len(result.Candidates) != 0 {
		t.Errorf("expected empty result for empty requirements, got %+v", result)
	}
}

func TestContentMatcherNoMatch(t *testing.T) {
	matcher := NewContentMatcher(NewKeywordCache(testMappingStore()), testCatalog())

	result, err := matcher.Match(context.Background(), []string{"plant a vegetable garden"})
	if err != nil {
		t.Fatalf("genuine no-match must not error: %v", err)
	}
	if len(result.Candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(result.Candidates))
	}
}

func TestContentMatcherEmptyStoreFailsFast(t *testing.T) {
	matcher := NewContentMatcher(NewKeywordCache(&mockKeywordStore{}), testCatalog())

	// Even an empty request must surface the deployment defect.
	_, err := matcher.Match(context.Background(), nil)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected config.ErrInvalidConfig for empty mapping store, got %v", err)
	}
}

func TestContentMatcherScores(t *testing.T) {
	matcher := NewContentMatcher(NewKeywordCache(testMappingStore()), testCatalog())

	result, err := matcher.Match(context.Background(),
		[]string{"drill holes in concrete", "hang a ceiling light"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	// Each category matched 1 of 2 requirements.
	if got := result.Scores["p_drill"]; got != 0.5 {
		t.Errorf("expected p_drill score 0.5, got %g", got)
	}
	if got := result.Scores["p_led"]; got != 0.5 {
		t.Errorf("expected p_led score 0.5, got %g", got)
	}
}

func TestContentMatcherNameBoost(t *testing.T) {
	matcher := NewContentMatcher(NewKeywordCache(testMappingStore()), testCatalog())

	result, err := matcher.Match(context.Background(), []string{"I want the claw hammer"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	// Both tools matched the single requirement (base 1.0); the name boost is
	// capped so the named product cannot exceed 1.0.
	if got := result.Scores["p_hammer"]; got != 1.0 {
		t.Errorf("expected capped score 1.0 for named product, got %g", got)
	}
}

func TestContentMatcherStemVariants(t *testing.T) {
	// The mapping store carries the noun form ("safety") while requirement
	// texts use inflections of it ("safely"); both must resolve to the same
	// category and task.
	matcher := NewContentMatcher(NewKeywordCache(testMappingStore()), testCatalog())

	result, err := matcher.Match(context.Background(), []string{"work safely at height"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !reflect.DeepEqual(result.Categories, []string{"safety"}) {
		t.Errorf("expected the inflected form to match safety, got %v", result.Categories)
	}
	if !reflect.DeepEqual(result.Tasks, []string{"task_safety_compliance"}) {
		t.Errorf("expected task_safety_compliance, got %v", result.Tasks)
	}
}

func TestSharesStem(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"safely", "safety", true},
		{"safety", "safely", true},
		{"light", "lights", true},
		{"drill", "drained", false}, // shared prefix too short
		{"saw", "saws", false},      // stem below the minimum length
		{"lighting", "light", false}, // suffix too long for a stem match; substring handles it
		{"hammer", "hammer", true},
		{"paint", "plant", false},
	}
	for _, tt := range tests {
		if got := sharesStem(tt.a, tt.b); got != tt.want {
			t.Errorf("sharesStem(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestContentMatcherPunctuation(t *testing.T) {
	matcher := NewContentMatcher(NewKeywordCache(testMappingStore()), testCatalog())

	result, err := matcher.Match(context.Background(), []string{"DRILL!!! (for holes)"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !reflect.DeepEqual(result.Categories, []string{"tools"}) {
		t.Errorf("expected punctuation-insensitive match on tools, got %v", result.Categories)
	}
}
