// Package records owns the two record collections of the shop: scheduled
// oil changes and service warranties. Each manager loads its collection from
// a KeyValueStore on construction and rewrites it after every mutation.
package records

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/oilchange-tracker/internal/db"
	"github.com/ukydev/oilchange-tracker/internal/models"
)

// Clock returns the current instant. Managers take the calendar day from it.
type Clock func() time.Time

// collection is an ordered list of records persisted under one key.
type collection[T any] struct {
	store db.KeyValueStore
	key   string

	mu    sync.RWMutex
	items []T
}

// load replaces the in-memory list with the stored one. Absent or corrupt
// data yields an empty list; the failure is logged.
func (c *collection[T]) load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil

	data, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		log.WithError(err).WithField("key", c.key).Error("Failed to load records")
		return
	}
	if !ok || len(data) == 0 {
		return
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		log.WithError(err).WithField("key", c.key).Error("Stored records are corrupt, starting empty")
		return
	}
	c.items = items
}

// persistLocked writes the whole list. Callers hold c.mu. Write failures are
// logged and otherwise ignored; the in-memory list stays authoritative.
func (c *collection[T]) persistLocked(ctx context.Context) {
	items := c.items
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		log.WithError(err).WithField("key", c.key).Error("Failed to encode records")
		return
	}
	if err := c.store.Set(ctx, c.key, data); err != nil {
		log.WithError(err).WithField("key", c.key).Error("Failed to save records")
	}
}

// snapshot returns a copy of the list.
func (c *collection[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collection[T]) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *collection[T]) append(ctx context.Context, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	c.persistLocked(ctx)
}

// remove filters out every item matching and persists, even when nothing
// matched. It reports whether anything was removed.
func (c *collection[T]) remove(ctx context.Context, match func(T) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]T, 0, len(c.items))
	for _, it := range c.items {
		if !match(it) {
			kept = append(kept, it)
		}
	}
	removed := len(kept) != len(c.items)
	c.items = kept
	c.persistLocked(ctx)
	return removed
}

// replace swaps the whole list and persists it.
func (c *collection[T]) replace(ctx context.Context, items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]T, len(items))
	copy(c.items, items)
	c.persistLocked(ctx)
}

func today(clock Clock) models.Date {
	return models.DateOf(clock())
}
