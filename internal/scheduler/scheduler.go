// Package scheduler runs the daily reminder digest.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/oilchange-tracker/internal/notify"
	"github.com/ukydev/oilchange-tracker/internal/records"
	"github.com/ukydev/oilchange-tracker/internal/render"
)

// Digest lists the records that needed attention on one run.
type Digest struct {
	Day         string
	Maintenance []records.ScheduledMaintenance
	Warranties  []records.TrackedWarranty
	Sent        int
	Failed      int
}

// Scheduler handles the periodic reminder job.
type Scheduler struct {
	cron        *cron.Cron
	spec        string
	maintenance *records.MaintenanceManager
	warranties  *records.WarrantyManager
	notifier    notify.Notifier
	timeout     time.Duration
}

// New creates a scheduler running the digest on the cron expression spec,
// evaluated in loc.
func New(spec string, loc *time.Location, m *records.MaintenanceManager, w *records.WarrantyManager, n notify.Notifier) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if n == nil {
		n = notify.Nop{}
	}
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		spec:        spec,
		maintenance: m,
		warranties:  w,
		notifier:    n,
		timeout:     2 * time.Minute,
	}
}

// Start registers the digest job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("register reminder job %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.WithField("schedule", s.spec).Info("Reminder scheduler started")
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Reminder scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.RunDigest(ctx)
}

// RunDigest collects overdue or critical oil changes whose client has not
// been notified yet and warranties about to expire, and sends one alert
// per record.
func (s *Scheduler) RunDigest(ctx context.Context) Digest {
	day := s.maintenance.Today()
	d := Digest{Day: day.String()}

	for _, sm := range s.maintenance.Sorted(day) {
		if sm.Status.Urgent() && !sm.Record.Notified {
			d.Maintenance = append(d.Maintenance, sm)
		}
	}
	for _, tw := range s.warranties.Sorted(s.warranties.Today()) {
		if tw.Status.Urgent() {
			d.Warranties = append(d.Warranties, tw)
		}
	}

	for _, sm := range d.Maintenance {
		s.send(ctx, &d, maintenanceAlert(sm))
	}
	for _, tw := range d.Warranties {
		s.send(ctx, &d, warrantyAlert(tw))
	}

	log.WithFields(log.Fields{
		"day":         d.Day,
		"maintenance": len(d.Maintenance),
		"warranties":  len(d.Warranties),
		"sent":        d.Sent,
		"failed":      d.Failed,
	}).Info("Reminder digest")
	return d
}

func (s *Scheduler) send(ctx context.Context, d *Digest, a notify.Alert) {
	if err := s.notifier.Notify(ctx, a); err != nil {
		d.Failed++
		log.WithError(err).WithField("id", a.RecordID).Warn("Failed to send reminder")
		return
	}
	d.Sent++
}

func maintenanceAlert(sm records.ScheduledMaintenance) notify.Alert {
	r := sm.Record
	return notify.Alert{
		Kind:          notify.KindMaintenanceDue,
		RecordID:      r.ID,
		Client:        r.ClientName,
		Vehicle:       r.Vehicle,
		Phone:         r.Phone,
		DueDate:       r.NextDueDate,
		DaysRemaining: sm.DaysRemaining,
		Status:        string(sm.Status),
		Message: fmt.Sprintf("Troca de óleo de %s (%s): %s",
			r.ClientName, r.Vehicle, render.DaysPhrase(sm.DaysRemaining)),
	}
}

func warrantyAlert(tw records.TrackedWarranty) notify.Alert {
	r := tw.Record
	_, label := render.WarrantyLabel(tw.Status)
	return notify.Alert{
		Kind:          notify.KindWarrantyExpiring,
		RecordID:      r.ID,
		Client:        r.ClientName,
		Vehicle:       r.Vehicle,
		Phone:         r.Phone,
		DueDate:       r.ExpiryDate,
		DaysRemaining: tw.DaysRemaining,
		Status:        string(tw.Status),
		Message: fmt.Sprintf("%s: garantia de %s (%s) até %s",
			label, r.ClientName, r.Service, render.FormatDate(r.ExpiryDate)),
	}
}
