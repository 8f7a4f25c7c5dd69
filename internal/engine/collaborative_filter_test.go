package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/werkbank/werkbank/internal/config"
	"github.com/werkbank/werkbank/internal/storage"
	"github.com/werkbank/werkbank/pkg/types"
)

var testCollabConfig = config.CollaborativeConfig{
	MinUserSimilarity: 0.30,
	MinItemSimilarity: 0.30,
}

func TestCollaborativeFilterNoContext(t *testing.T) {
	filter := NewCollaborativeFilter(&mockInteractionStore{}, testCollabConfig)

	scores, err := filter.Score(context.Background(), []string{"c1", "c2"}, types.UserContext{})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("anonymous request without anchors must yield no signal, got %v", scores)
	}
}

func TestCollaborativeFilterItemBasedVectors(t *testing.T) {
	store := &mockVectorStore{
		sims: map[string]map[string]float64{
			"a1": {"c1": 0.5, "c2": 0.2},
		},
	}
	filter := NewCollaborativeFilter(store, testCollabConfig)

	scores, err := filter.Score(context.Background(), []string{"c1", "c2"},
		types.UserContext{AnchorProducts: []string{"a1"}})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	got, ok := scores["c1"]
	if !ok {
		t.Fatal("expected c1 above threshold")
	}
	if got.Score != 0.5 || got.Basis != types.BasisItemBased || got.SourceItem != "a1" {
		t.Errorf("unexpected c1 score: %+v", got)
	}

	// Threshold exclusion means an absent key, never a zero-valued entry.
	if _, present := scores["c2"]; present {
		t.Errorf("c2 at 0.2 is below the 0.3 threshold and must be absent, got %+v", scores["c2"])
	}
}

func TestCollaborativeFilterItemBasedMaxOverAnchors(t *testing.T) {
	store := &mockVectorStore{
		sims: map[string]map[string]float64{
			"a1": {"c1": 0.4},
			"a2": {"c1": 0.9},
		},
	}
	filter := NewCollaborativeFilter(store, testCollabConfig)

	scores, err := filter.Score(context.Background(), []string{"c1"},
		types.UserContext{AnchorProducts: []string{"a1", "a2"}})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	got := scores["c1"]
	if got.Score != 0.9 {
		t.Errorf("expected the maximum over anchors 0.9, got %g", got.Score)
	}
	if got.SourceItem != "a2" {
		t.Errorf("expected winning anchor a2, got %s", got.SourceItem)
	}
}

func TestCollaborativeFilterVectorFallback(t *testing.T) {
	// No stored vector for the anchor: the filter falls back to cosine over
	// interaction vectors for the whole request.
	store := &mockVectorStore{
		mockInteractionStore: mockInteractionStore{
			records: []storage.InteractionRecord{
				{UserID: "u1", ProductID: "a1", Weight: 1},
				{UserID: "u2", ProductID: "a1", Weight: 1},
				{UserID: "u1", ProductID: "c1", Weight: 1},
				{UserID: "u2", ProductID: "c1", Weight: 1},
				{UserID: "u3", ProductID: "c2", Weight: 1},
			},
		},
		sims: map[string]map[string]float64{},
	}
	filter := NewCollaborativeFilter(store, testCollabConfig)

	scores, err := filter.Score(context.Background(), []string{"c1", "c2"},
		types.UserContext{AnchorProducts: []string{"a1"}})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	got, ok := scores["c1"]
	if !ok {
		t.Fatal("expected c1 from interaction-cosine fallback")
	}
	if math.Abs(got.Score-1.0) > 1e-9 {
		t.Errorf("identical interaction vectors must have cosine 1.0, got %g", got.Score)
	}

	// c2 shares no users with the anchor: cosine 0, excluded.
	if _, present := scores["c2"]; present {
		t.Error("c2 has no user overlap with the anchor and must be absent")
	}
}

func TestCollaborativeFilterVectorStoreError(t *testing.T) {
	store := &mockVectorStore{simErr: errors.New("connection reset")}
	filter := NewCollaborativeFilter(store, testCollabConfig)

	_, err := filter.Score(context.Background(), []string{"c1"},
		types.UserContext{AnchorProducts: []string{"a1"}})
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestCollaborativeFilterUserBased(t *testing.T) {
	store := &mockInteractionStore{
		records: []storage.InteractionRecord{
			{UserID: "alice", ProductID: "p1", Weight: 5},
			{UserID: "bob", ProductID: "p1", Weight: 5},
			{UserID: "bob", ProductID: "c1", Weight: 4},
		},
	}
	filter := NewCollaborativeFilter(store, testCollabConfig)

	scores, err := filter.Score(context.Background(), []string{"c1"},
		types.UserContext{UserID: "alice"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	got, ok := scores["c1"]
	if !ok {
		t.Fatal("expected a user-based score for c1")
	}
	if got.Basis != types.BasisUserBased || got.SourceItem != "alice" {
		t.Errorf("unexpected score metadata: %+v", got)
	}
	// Bob's interaction with c1 normalized by his max weight: 4/5.
	if math.Abs(got.Score-0.8) > 1e-9 {
		t.Errorf("expected neighbor-normalized score 0.8, got %g", got.Score)
	}
}

func TestCollaborativeFilterUserBasedNoHistory(t *testing.T) {
	filter := NewCollaborativeFilter(&mockInteractionStore{}, testCollabConfig)

	scores, err := filter.Score(context.Background(), []string{"c1"},
		types.UserContext{UserID: "newcomer"})
	if err != nil {
		t.Fatalf("empty history must not error: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("expected empty scores for a user without history, got %v", scores)
	}
}

func TestCollaborativeFilterUserBasedNoSimilarUsers(t *testing.T) {
	store := &mockInteractionStore{
		records: []storage.InteractionRecord{
			{UserID: "alice", ProductID: "p1", Weight: 5},
			{UserID: "bob", ProductID: "p2", Weight: 5},
			{UserID: "bob", ProductID: "c1", Weight: 4},
		},
	}
	filter := NewCollaborativeFilter(store, testCollabConfig)

	scores, err := filter.Score(context.Background(), []string{"c1"},
		types.UserContext{UserID: "alice"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("no user overlaps with alice, expected empty scores, got %v", scores)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]float64
		want float64
	}{
		{"identical", map[string]float64{"x": 1, "y": 2}, map[string]float64{"x": 1, "y": 2}, 1.0},
		{"orthogonal", map[string]float64{"x": 1}, map[string]float64{"y": 1}, 0},
		{"empty", nil, map[string]float64{"x": 1}, 0},
		{"partial", map[string]float64{"x": 1, "y": 1}, map[string]float64{"x": 1}, 1 / math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosine = %g, want %g", got, tt.want)
			}
		})
	}
}
