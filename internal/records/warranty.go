package records

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/oilchange-tracker/internal/db"
	"github.com/ukydev/oilchange-tracker/internal/models"
)

// TrackedWarranty is a warranty projected onto a given day.
type TrackedWarranty struct {
	Record        models.WarrantyRecord `json:"record"`
	DaysRemaining int                   `json:"daysRemaining"`
	Status        models.WarrantyStatus `json:"status"`
}

// WarrantyManager owns the warranty collection.
type WarrantyManager struct {
	col   collection[models.WarrantyRecord]
	clock Clock
}

// NewWarrantyManager loads the warranty collection from store. A nil clock
// means time.Now.
func NewWarrantyManager(ctx context.Context, store db.KeyValueStore, clock Clock) *WarrantyManager {
	if clock == nil {
		clock = time.Now
	}
	m := &WarrantyManager{
		col:   collection[models.WarrantyRecord]{store: store, key: db.WarrantyKey},
		clock: clock,
	}
	m.col.load(ctx)
	return m
}

// Today returns the manager's current calendar day.
func (m *WarrantyManager) Today() models.Date { return today(m.clock) }

// Add validates in, derives the expiry date and appends the record.
func (m *WarrantyManager) Add(ctx context.Context, in models.WarrantyInput) (models.WarrantyRecord, error) {
	rec, err := models.NewWarrantyRecord(in, m.clock())
	if err != nil {
		return models.WarrantyRecord{}, err
	}
	m.col.append(ctx, rec)
	log.WithFields(log.Fields{
		"id":     rec.ID,
		"client": rec.ClientName,
		"expiry": rec.ExpiryDate.String(),
	}).Info("Added warranty")
	return rec, nil
}

// Delete removes the warranty with id, persisting even when none matched.
func (m *WarrantyManager) Delete(ctx context.Context, id models.RecordID) bool {
	removed := m.col.remove(ctx, func(r models.WarrantyRecord) bool { return r.ID == id })
	log.WithFields(log.Fields{"id": id, "removed": removed}).Info("Deleted warranty")
	return removed
}

// Get returns the warranty with id.
func (m *WarrantyManager) Get(id models.RecordID) (models.WarrantyRecord, error) {
	m.col.mu.RLock()
	defer m.col.mu.RUnlock()
	for _, r := range m.col.items {
		if r.ID == id {
			return r, nil
		}
	}
	return models.WarrantyRecord{}, models.ErrNotFound
}

// Records returns a copy of the collection in insertion order.
func (m *WarrantyManager) Records() []models.WarrantyRecord { return m.col.snapshot() }

// Count returns the number of warranties.
func (m *WarrantyManager) Count() int { return m.col.count() }

// Replace swaps the whole collection.
func (m *WarrantyManager) Replace(ctx context.Context, recs []models.WarrantyRecord) {
	m.col.replace(ctx, recs)
}

// Clear empties the collection.
func (m *WarrantyManager) Clear(ctx context.Context) { m.col.replace(ctx, nil) }

// Track projects a single warranty onto day.
func Track(r models.WarrantyRecord, day models.Date) TrackedWarranty {
	days := models.DaysRemaining(day, r.ExpiryDate)
	return TrackedWarranty{Record: r, DaysRemaining: days, Status: models.ClassifyWarranty(days)}
}

// Sorted projects every warranty onto day, soonest expiry first.
func (m *WarrantyManager) Sorted(day models.Date) []TrackedWarranty {
	recs := m.col.snapshot()
	out := make([]TrackedWarranty, len(recs))
	for i, r := range recs {
		out[i] = Track(r, day)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysRemaining < out[j].DaysRemaining })
	return out
}
