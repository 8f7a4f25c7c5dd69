package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that a specific query has no data, e.g. no
	// compatibility relationships exist for a product pair. Callers treat
	// the affected signal as "unavailable" for that candidate; they must
	// never treat it as "compatible by default".
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable indicates that a backing store is unreachable
	// or shedding load. The engine degrades to the remaining signals when
	// possible and fails the whole request when none remain.
	ErrUpstreamUnavailable = errors.New("upstream store unavailable")
)

// CategoryKeywords maps a product category to its matching keywords.
// Keywords are stored case-normalized; every category has at least one.
type CategoryKeywords struct {
	Category string
	Keywords []string
}

// TaskKeyword maps a single keyword to a task identifier. A keyword maps to
// exactly one task; conflicts are resolved last-write-wins at data-load time.
type TaskKeyword struct {
	Keyword string
	TaskID  string
}

// InteractionRecord is one historical user-product interaction, the raw
// material for collaborative-filtering similarity.
type InteractionRecord struct {
	UserID    string
	ProductID string

	// Weight is the interaction strength (e.g. view=0.2, purchase=1.0).
	Weight float64

	CreatedAt time.Time
}
