package types

import "testing"

func TestRelationshipTypeValid(t *testing.T) {
	if !CompatibleWith.Valid() || !IncompatibleWith.Valid() {
		t.Error("known relationship types must be valid")
	}
	if RelationshipType("SUPERSEDED_BY").Valid() {
		t.Error("unknown relationship types must be invalid")
	}
	if RelationshipType("").Valid() {
		t.Error("the empty type must be invalid")
	}
}

func TestRelationshipInvolves(t *testing.T) {
	rel := &CompatibilityRelationship{ProductA: "p1", ProductB: "p2"}

	if !rel.Involves("p1", "p2") {
		t.Error("expected forward match")
	}
	if !rel.Involves("p2", "p1") {
		t.Error("expected reverse match")
	}
	if rel.Involves("p1", "p3") {
		t.Error("unexpected match for an unconnected pair")
	}
}
