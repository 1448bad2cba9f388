package records

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/oilchange-tracker/internal/db"
	"github.com/ukydev/oilchange-tracker/internal/models"
)

// ScheduledMaintenance is a maintenance record projected onto a given day.
type ScheduledMaintenance struct {
	Record        models.MaintenanceRecord `json:"record"`
	DaysRemaining int                      `json:"daysRemaining"`
	Status        models.MaintenanceStatus `json:"status"`
}

// MaintenanceManager owns the oil-change collection.
type MaintenanceManager struct {
	col          collection[models.MaintenanceRecord]
	intervalDays int
	clock        Clock
}

// MaintenanceOption configures a MaintenanceManager.
type MaintenanceOption func(*MaintenanceManager)

// WithInterval overrides the number of days between oil changes.
func WithInterval(days int) MaintenanceOption {
	return func(m *MaintenanceManager) {
		if days > 0 && days <= models.MaxPeriodDays {
			m.intervalDays = days
		}
	}
}

// WithMaintenanceClock overrides time.Now.
func WithMaintenanceClock(clock Clock) MaintenanceOption {
	return func(m *MaintenanceManager) { m.clock = clock }
}

// NewMaintenanceManager loads the oil-change collection from store.
func NewMaintenanceManager(ctx context.Context, store db.KeyValueStore, opts ...MaintenanceOption) *MaintenanceManager {
	m := &MaintenanceManager{
		col:          collection[models.MaintenanceRecord]{store: store, key: db.MaintenanceKey},
		intervalDays: models.DefaultMaintenanceInterval,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.col.load(ctx)
	return m
}

// IntervalDays returns the configured days between oil changes.
func (m *MaintenanceManager) IntervalDays() int { return m.intervalDays }

// Today returns the manager's current calendar day.
func (m *MaintenanceManager) Today() models.Date { return today(m.clock) }

// Add validates in, derives the next due date and appends the record.
func (m *MaintenanceManager) Add(ctx context.Context, in models.MaintenanceInput) (models.MaintenanceRecord, error) {
	rec, err := models.NewMaintenanceRecord(in, m.intervalDays, m.clock())
	if err != nil {
		return models.MaintenanceRecord{}, err
	}
	m.col.append(ctx, rec)
	log.WithFields(log.Fields{
		"id":       rec.ID,
		"client":   rec.ClientName,
		"next_due": rec.NextDueDate.String(),
	}).Info("Added maintenance record")
	return rec, nil
}

// Delete removes the record with id. A missing id still rewrites the
// unchanged collection.
func (m *MaintenanceManager) Delete(ctx context.Context, id models.RecordID) bool {
	removed := m.col.remove(ctx, func(r models.MaintenanceRecord) bool { return r.ID == id })
	log.WithFields(log.Fields{"id": id, "removed": removed}).Info("Deleted maintenance record")
	return removed
}

// ToggleNotified flips the notified flag of the record with id and returns
// the new value.
func (m *MaintenanceManager) ToggleNotified(ctx context.Context, id models.RecordID) (bool, error) {
	m.col.mu.Lock()
	defer m.col.mu.Unlock()
	for i := range m.col.items {
		if m.col.items[i].ID == id {
			m.col.items[i].Notified = !m.col.items[i].Notified
			m.col.persistLocked(ctx)
			return m.col.items[i].Notified, nil
		}
	}
	return false, models.ErrNotFound
}

// Get returns the record with id.
func (m *MaintenanceManager) Get(id models.RecordID) (models.MaintenanceRecord, error) {
	m.col.mu.RLock()
	defer m.col.mu.RUnlock()
	for _, r := range m.col.items {
		if r.ID == id {
			return r, nil
		}
	}
	return models.MaintenanceRecord{}, models.ErrNotFound
}

// Records returns a copy of the collection in insertion order.
func (m *MaintenanceManager) Records() []models.MaintenanceRecord { return m.col.snapshot() }

// Count returns the number of records.
func (m *MaintenanceManager) Count() int { return m.col.count() }

// Replace swaps the whole collection, as a restore does.
func (m *MaintenanceManager) Replace(ctx context.Context, recs []models.MaintenanceRecord) {
	m.col.replace(ctx, recs)
}

// Clear empties the collection.
func (m *MaintenanceManager) Clear(ctx context.Context) { m.col.replace(ctx, nil) }

// Sorted projects every record onto day and orders them by days remaining,
// most urgent first. Ties keep insertion order.
func (m *MaintenanceManager) Sorted(day models.Date) []ScheduledMaintenance {
	recs := m.col.snapshot()
	out := make([]ScheduledMaintenance, len(recs))
	for i, r := range recs {
		days := models.DaysRemaining(day, r.NextDueDate)
		out[i] = ScheduledMaintenance{Record: r, DaysRemaining: days, Status: models.ClassifyMaintenance(days)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysRemaining < out[j].DaysRemaining })
	return out
}
