// Package backup serializes both record collections into a single JSON
// document and restores them from one.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/oilchange-tracker/internal/models"
	"github.com/ukydev/oilchange-tracker/internal/records"
)

// Version is written to every exported document.
const Version = "1.0"

// Totals counts the records of each collection.
type Totals struct {
	OilChanges int `json:"oilChanges"`
	Warranties int `json:"warranties"`
}

// Document is the exported backup file.
type Document struct {
	Version      string                     `json:"version"`
	BackupDate   time.Time                  `json:"backupDate"`
	Timestamp    int64                      `json:"timestamp"` // epoch milliseconds
	OilChanges   []models.MaintenanceRecord `json:"oilChanges"`
	Warranties   []models.WarrantyRecord    `json:"warranties"`
	TotalRecords Totals                     `json:"totalRecords"`
}

// Result describes a successful import.
type Result struct {
	OilChanges int    `json:"oilChanges"`
	Warranties int    `json:"warranties"`
	Message    string `json:"message"`
}

// ImportError is returned when a backup cannot be restored. Nothing has
// been changed when it is returned.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("erro ao importar backup: %s: %v", e.Reason, e.Err)
	}
	return "erro ao importar backup: " + e.Reason
}

func (e *ImportError) Unwrap() error { return e.Err }

// Info summarizes what an export taken now would contain.
type Info struct {
	GeneratedAt time.Time `json:"generatedAt"`
	OilChanges  int       `json:"oilChanges"`
	Warranties  int       `json:"warranties"`
	SizeBytes   int       `json:"sizeBytes"`
}

// SizeKB returns the estimated export size in kilobytes.
func (i Info) SizeKB() float64 { return float64(i.SizeBytes) / 1024 }

// Service exports and restores the two managers as a unit.
type Service struct {
	// mu serializes restores and clears.
	mu          sync.Mutex
	maintenance *records.MaintenanceManager
	warranties  *records.WarrantyManager
	clock       records.Clock
}

// New returns a backup service over both managers. A nil clock means time.Now.
func New(m *records.MaintenanceManager, w *records.WarrantyManager, clock records.Clock) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{maintenance: m, warranties: w, clock: clock}
}

// Snapshot builds a document from the current collections.
func (s *Service) Snapshot() Document {
	now := s.clock()
	oil := s.maintenance.Records()
	war := s.warranties.Records()
	return Document{
		Version:      Version,
		BackupDate:   now.UTC(),
		Timestamp:    now.UnixMilli(),
		OilChanges:   oil,
		Warranties:   war,
		TotalRecords: Totals{OilChanges: len(oil), Warranties: len(war)},
	}
}

// Export writes an indented snapshot to w and returns it.
func (s *Service) Export(w io.Writer) (Document, error) {
	doc := s.Snapshot()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return Document{}, fmt.Errorf("encode backup: %w", err)
	}
	log.WithFields(log.Fields{
		"oil_changes": doc.TotalRecords.OilChanges,
		"warranties":  doc.TotalRecords.Warranties,
	}).Info("Backup exported")
	return doc, nil
}

// Filename returns the download name for a backup taken at t.
func Filename(t time.Time) string {
	return "backup_" + t.Format("2006-01-02_15-04-05") + ".json"
}

// Filename returns the download name for a backup taken now.
func (s *Service) Filename() string { return Filename(s.clock()) }

// Import reads a whole backup from r, validates it and replaces both
// collections. Either both collections are replaced or neither is. Once
// validation passes, cancelling ctx no longer interrupts the writes.
// Records added through the managers while a restore runs are replaced
// like any other record.
func (s *Service) Import(ctx context.Context, r io.Reader) (Result, error) {
	data, err := io.ReadAll(&contextReader{ctx: ctx, r: r})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, err
		}
		return Result{}, &ImportError{Reason: "erro ao ler o arquivo", Err: err}
	}
	oil, war, err := Parse(data)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	writeCtx := context.WithoutCancel(ctx)
	s.maintenance.Replace(writeCtx, oil)
	s.warranties.Replace(writeCtx, war)
	s.mu.Unlock()

	res := Result{
		OilChanges: len(oil),
		Warranties: len(war),
		Message:    fmt.Sprintf("Backup restaurado: %d trocas de óleo e %d garantias", len(oil), len(war)),
	}
	log.WithFields(log.Fields{
		"oil_changes": res.OilChanges,
		"warranties":  res.Warranties,
	}).Info("Backup imported")
	return res, nil
}

// Info reports the counts and estimated size of an export taken now.
func (s *Service) Info() Info {
	doc := s.Snapshot()
	size := 0
	if data, err := json.Marshal(doc); err == nil {
		size = len(data)
	} else {
		log.WithError(err).Warn("Failed to estimate backup size")
	}
	return Info{
		GeneratedAt: s.clock(),
		OilChanges:  doc.TotalRecords.OilChanges,
		Warranties:  doc.TotalRecords.Warranties,
		SizeBytes:   size,
	}
}

// ClearAll empties both collections. Callers are responsible for
// confirming with the user first.
func (s *Service) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeCtx := context.WithoutCancel(ctx)
	s.maintenance.Clear(writeCtx)
	s.warranties.Clear(writeCtx)
	log.Warn("All records cleared")
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
