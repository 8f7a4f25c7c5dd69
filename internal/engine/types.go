// Package engine implements the hybrid recommendation pipeline: content
// matching over keyword mappings, collaborative filtering over interaction
// history, compatibility analysis over the product graph, weighted fusion,
// and rationale assembly.
//
// The pipeline is stateless per request. The only cross-request state is the
// read-only keyword-mapping cache and the externally provisioned store
// connection pools. Every stage returns a new sequence; no stage mutates its
// input.
package engine

import (
	"github.com/werkbank/werkbank/pkg/types"
)

// scoreEpsilon is the floating-point tolerance for hybrid-score tie-breaks.
const scoreEpsilon = 1e-9

// ContentResult is the output of the content matcher: the categories and
// tasks derived from the requirement texts, the candidate products pulled
// from the catalog for those categories, and a per-candidate content score.
type ContentResult struct {
	// Categories are the matched product categories, sorted.
	Categories []string

	// Tasks are the matched task identifiers, sorted.
	Tasks []string

	// Candidates are the catalog products for the matched categories.
	Candidates []types.ProductCandidate

	// Scores maps candidate product ID → content-based score (0.0 to 1.0).
	Scores map[string]float64
}

// MappingSnapshot is an immutable, case-normalized view of the keyword
// mapping store, shared read-only across requests once loaded.
type MappingSnapshot struct {
	// CategoryKeywords maps category → de-duplicated lowercase keywords.
	CategoryKeywords map[string][]string

	// TaskByKeyword maps lowercase keyword → task identifier.
	TaskByKeyword map[string]string
}
