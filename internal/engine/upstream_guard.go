package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/werkbank/werkbank/internal/storage"
)

// GuardConfig holds the circuit-breaker and rate-limit settings shared by
// all guarded upstreams.
type GuardConfig struct {
	// MaxFailures is the number of consecutive failures required to trip
	// the circuit. Default: 3
	MaxFailures uint32

	// Timeout is the duration the circuit stays open before transitioning
	// to half-open. Default: 30 seconds
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of requests allowed through in
	// half-open state. Default: 2
	HalfOpenMaxSuccesses uint32

	// QueriesPerSecond caps the query rate against the compatibility
	// graph, which fans out per candidate×anchor pair within a single
	// request. Default: 200
	QueriesPerSecond rate.Limit

	// Burst is the rate-limiter burst size. Default: 100
	Burst int
}

// applyDefaults fills zero fields with defaults.
func (c *GuardConfig) applyDefaults() {
	if c.MaxFailures == 0 {
		c.MaxFailures = 3
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenMaxSuccesses == 0 {
		c.HalfOpenMaxSuccesses = 2
	}
	if c.QueriesPerSecond == 0 {
		c.QueriesPerSecond = 200
	}
	if c.Burst == 0 {
		c.Burst = 100
	}
}

// UpstreamGuard protects the blocking collaborators (compatibility graph and
// interaction data source) with per-upstream circuit breakers and a shared
// rate limiter on graph queries.
//
// An open circuit or exhausted limiter surfaces as
// storage.ErrUpstreamUnavailable so the recommender can degrade to the
// remaining signals instead of failing the whole request.
type UpstreamGuard struct {
	config  GuardConfig
	limiter *rate.Limiter

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewUpstreamGuard creates a guard with the given settings; zero fields get
// defaults.
func NewUpstreamGuard(cfg GuardConfig) *UpstreamGuard {
	cfg.applyDefaults()
	return &UpstreamGuard{
		config:   cfg,
		limiter:  rate.NewLimiter(cfg.QueriesPerSecond, cfg.Burst),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Do runs fn through the named upstream's circuit breaker. Context
// cancellation is honored before and inside the breaker.
func (g *UpstreamGuard) Do(ctx context.Context, name string, fn func() (interface{}, error)) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := g.breaker(name).Execute(func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("engine: circuit open for upstream %s: %w", name, storage.ErrUpstreamUnavailable)
		}
		return nil, err
	}
	return result, nil
}

// WaitGraphQuery blocks until the graph-query rate limiter admits one query
// or the context is cancelled.
func (g *UpstreamGuard) WaitGraphQuery(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("engine: graph query rate limit: %w", err)
	}
	return nil
}

// State returns the named breaker's state as a string ("closed", "open",
// "half-open"), for diagnostics.
func (g *UpstreamGuard) State(name string) string {
	switch g.breaker(name).State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker returns the circuit breaker for the named upstream, creating it on
// first use.
func (g *UpstreamGuard) breaker(name string) *gobreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: g.config.HalfOpenMaxSuccesses,
		Interval:    0, // Don't clear counts periodically.
		Timeout:     g.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= g.config.MaxFailures
		},
	})
	g.breakers[name] = cb
	return cb
}
