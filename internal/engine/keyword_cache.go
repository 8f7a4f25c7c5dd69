package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/werkbank/werkbank/internal/config"
	"github.com/werkbank/werkbank/internal/storage"
)

// mappingLoadTimeout bounds the shared mapping load. The load is detached
// from the triggering caller's context, so it needs its own deadline.
const mappingLoadTimeout = 30 * time.Second

// KeywordCache is the process-lifetime cache of the keyword mapping store.
//
// Population is lazy and single-flight: the first caller performs the load
// while concurrent callers wait for that result instead of issuing duplicate
// queries. After a successful load the snapshot is read-only. Invalidation
// is an explicit administrative operation, never triggered by request
// traffic.
type KeywordCache struct {
	store storage.KeywordMappingStore

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *MappingSnapshot
}

// NewKeywordCache creates a cache over the given mapping store.
func NewKeywordCache(store storage.KeywordMappingStore) *KeywordCache {
	return &KeywordCache{store: store}
}

// Snapshot returns the cached mapping snapshot, loading it on first use.
//
// An empty mapping store (no categories or no tasks) is a deployment defect,
// not "no matches found": the load fails with config.ErrInvalidConfig and
// nothing is cached, so a later call after the store is fixed will retry.
func (c *KeywordCache) Snapshot(ctx context.Context) (*MappingSnapshot, error) {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	v, err, _ := c.group.Do("mappings", func() (interface{}, error) {
		// Re-check under the group: another flight may have populated the
		// cache between the RLock above and entering this function.
		c.mu.RLock()
		cached := c.snapshot
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		// The result is shared by every concurrent waiter, so the load must
		// not die with whichever request happened to trigger it: detach from
		// the caller's cancellation and run under the load's own deadline.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mappingLoadTimeout)
		defer cancel()

		loaded, err := c.load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.snapshot = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MappingSnapshot), nil
}

// Invalidate discards the cached snapshot so the next Snapshot call reloads
// from the store. Intended for administrative reloads and tests.
func (c *KeywordCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}

// load fetches both mapping queries and normalizes them.
func (c *KeywordCache) load(ctx context.Context) (*MappingSnapshot, error) {
	categories, err := c.store.CategoryKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to load category keywords: %w", err)
	}
	tasks, err := c.store.TaskKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to load task keywords: %w", err)
	}

	snap := &MappingSnapshot{
		CategoryKeywords: make(map[string][]string, len(categories)),
		TaskByKeyword:    make(map[string]string, len(tasks)),
	}

	for _, ck := range categories {
		seen := make(map[string]bool, len(ck.Keywords))
		var keywords []string
		for _, kw := range ck.Keywords {
			normalized := strings.ToLower(strings.TrimSpace(kw))
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			keywords = append(keywords, normalized)
		}
		if len(keywords) == 0 {
			continue
		}
		sort.Strings(keywords)
		snap.CategoryKeywords[ck.Category] = keywords
	}

	// Last-write-wins for duplicate keywords, applied here at load time.
	for _, tk := range tasks {
		normalized := strings.ToLower(strings.TrimSpace(tk.Keyword))
		if normalized == "" || tk.TaskID == "" {
			continue
		}
		snap.TaskByKeyword[normalized] = tk.TaskID
	}

	if len(snap.CategoryKeywords) == 0 || len(snap.TaskByKeyword) == 0 {
		return nil, fmt.Errorf("engine: keyword mapping store is empty (categories=%d tasks=%d), refusing to serve matches: %w",
			len(snap.CategoryKeywords), len(snap.TaskByKeyword), config.ErrInvalidConfig)
	}

	return snap, nil
}
