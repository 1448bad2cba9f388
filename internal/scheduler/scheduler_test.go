package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/oilchange-tracker/internal/db"
	"github.com/ukydev/oilchange-tracker/internal/models"
	"github.com/ukydev/oilchange-tracker/internal/notify"
	"github.com/ukydev/oilchange-tracker/internal/records"
)

// MockNotifier is a mock implementation of notify.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, a notify.Alert) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockNotifier) Close() { m.Called() }

func clock() time.Time { return time.Date(2025, time.January, 28, 8, 0, 0, 0, time.UTC) }

func setup(t *testing.T) (*records.MaintenanceManager, *records.WarrantyManager) {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemoryStore()
	m := records.NewMaintenanceManager(ctx, store, records.WithMaintenanceClock(clock))
	w := records.NewWarrantyManager(ctx, store, clock)

	add := func(client, date string) models.MaintenanceRecord {
		rec, err := m.Add(ctx, models.MaintenanceInput{ClientName: client, Vehicle: "Uno", Odometer: "1", ServiceDate: date})
		require.NoError(t, err)
		return rec
	}
	add("critical", "2025-01-01") // due in 2 days
	add("overdue", "2024-12-01")  // overdue
	add("normal", "2025-01-25")
	notified := add("critical-notified", "2025-01-01")
	_, err := m.ToggleNotified(ctx, notified.ID)
	require.NoError(t, err)

	_, err = w.Add(ctx, models.WarrantyInput{ClientName: "expiring", Vehicle: "Gol", ServiceDate: "2025-01-25", WarrantyDays: "5", Service: "Freios", Value: "10"})
	require.NoError(t, err)
	_, err = w.Add(ctx, models.WarrantyInput{ClientName: "expired", Vehicle: "Gol", ServiceDate: "2024-01-01", WarrantyDays: "5", Service: "Freios", Value: "10"})
	require.NoError(t, err)
	return m, w
}

func TestRunDigest(t *testing.T) {
	m, w := setup(t)
	n := new(MockNotifier)
	n.On("Notify", mock.Anything, mock.Anything).Return(nil)

	s := New("0 8 * * *", time.UTC, m, w, n)
	d := s.RunDigest(context.Background())

	assert.Equal(t, "2025-01-28", d.Day)
	require.Len(t, d.Maintenance, 2)
	assert.Equal(t, "overdue", d.Maintenance[0].Record.ClientName)
	assert.Equal(t, "critical", d.Maintenance[1].Record.ClientName)
	require.Len(t, d.Warranties, 1)
	assert.Equal(t, "expiring", d.Warranties[0].Record.ClientName)
	assert.Equal(t, 3, d.Sent)
	assert.Equal(t, 0, d.Failed)

	n.AssertNumberOfCalls(t, "Notify", 3)
	n.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(a notify.Alert) bool {
		return a.Kind == notify.KindWarrantyExpiring && a.Message == "Vencimento Próximo: garantia de expiring (Freios) até 30 de janeiro de 2025"
	}))
	n.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(a notify.Alert) bool {
		return a.Kind == notify.KindMaintenanceDue && a.Message == "Troca de óleo de critical (Uno): Em 2 dias"
	}))
}

func TestRunDigest_NotifierFailure(t *testing.T) {
	m, w := setup(t)
	n := new(MockNotifier)
	n.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	d := New("@daily", time.UTC, m, w, n).RunDigest(context.Background())
	assert.Equal(t, 0, d.Sent)
	assert.Equal(t, 3, d.Failed)
}

func TestStart_InvalidSchedule(t *testing.T) {
	m, w := setup(t)
	s := New("not a schedule", time.UTC, m, w, nil)
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	m, w := setup(t)
	s := New("@every 1h", nil, m, w, nil)
	require.NoError(t, s.Start())
	s.Stop()
}
