package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/oilchange-tracker/internal/db"
	"github.com/ukydev/oilchange-tracker/internal/models"
	"github.com/ukydev/oilchange-tracker/internal/records"
)

var fixedNow = time.Date(2025, time.January, 28, 14, 5, 9, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newService(t *testing.T) (*Service, *records.MaintenanceManager, *records.WarrantyManager) {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemoryStore()
	m := records.NewMaintenanceManager(ctx, store, records.WithMaintenanceClock(clock))
	w := records.NewWarrantyManager(ctx, store, clock)
	return New(m, w, clock), m, w
}

func seed(t *testing.T, m *records.MaintenanceManager, w *records.WarrantyManager) {
	t.Helper()
	ctx := context.Background()
	_, err := m.Add(ctx, models.MaintenanceInput{ClientName: "Ana", Vehicle: "Uno", Odometer: "1000", ServiceDate: "2025-01-01"})
	require.NoError(t, err)
	_, err = m.Add(ctx, models.MaintenanceInput{ClientName: "Bia", Vehicle: "Gol", Odometer: "2000", ServiceDate: "2025-01-10", Phone: "9999"})
	require.NoError(t, err)
	_, err = w.Add(ctx, models.WarrantyInput{ClientName: "Caio", Vehicle: "Onix", ServiceDate: "2025-01-05", WarrantyDays: "90", Service: "Freios", Value: "350,50"})
	require.NoError(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "backup_2025-01-28_14-05-09.json", Filename(fixedNow))
}

func TestExport(t *testing.T) {
	svc, m, w := newService(t)
	seed(t, m, w)

	var buf bytes.Buffer
	doc, err := svc.Export(&buf)
	require.NoError(t, err)
	assert.Equal(t, Version, doc.Version)
	assert.Equal(t, fixedNow.UnixMilli(), doc.Timestamp)
	assert.Equal(t, Totals{OilChanges: 2, Warranties: 1}, doc.TotalRecords)
	assert.Contains(t, buf.String(), "\n  \"version\": \"1.0\"")

	var generic map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))
	for _, key := range []string{"version", "backupDate", "timestamp", "oilChanges", "warranties", "totalRecords"} {
		assert.Contains(t, generic, key)
	}
}

func TestExportEmptyCollectionsAreArrays(t *testing.T) {
	svc, _, _ := newService(t)
	var buf bytes.Buffer
	_, err := svc.Export(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"oilChanges": []`)
	assert.Contains(t, buf.String(), `"warranties": []`)
}

func TestImportRoundTrip(t *testing.T) {
	src, m, w := newService(t)
	seed(t, m, w)
	var buf bytes.Buffer
	_, err := src.Export(&buf)
	require.NoError(t, err)

	dst, dm, dw := newService(t)
	res, err := dst.Import(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.OilChanges)
	assert.Equal(t, 1, res.Warranties)
	assert.Equal(t, "Backup restaurado: 2 trocas de óleo e 1 garantias", res.Message)

	assert.Equal(t, m.Records(), dm.Records())
	assert.Equal(t, w.Records(), dw.Records())
}

func TestImportRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{oops`},
		{"missing version", `{"oilChanges": [], "warranties": []}`},
		{"empty version", `{"version": "", "oilChanges": [], "warranties": []}`},
		{"missing oil changes", `{"version": "1.0", "warranties": []}`},
		{"null warranties", `{"version": "1.0", "oilChanges": [], "warranties": null}`},
		{"wrong shape", `{"version": "1.0", "oilChanges": {}, "warranties": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m, w := newService(t)
			seed(t, m, w)
			before := m.Records()

			_, err := svc.Import(context.Background(), strings.NewReader(tt.body))
			var importErr *ImportError
			require.ErrorAs(t, err, &importErr)
			assert.Contains(t, err.Error(), "erro ao importar backup")
			assert.Equal(t, before, m.Records(), "state must be untouched")
			assert.Equal(t, 1, w.Count())
		})
	}
}

func TestImportLegacyDocument(t *testing.T) {
	legacy := `{
		"versao": "1.0",
		"dataBackup": "2025-01-20T10:00:00.000Z",
		"oilChanges": [{"id": 1735689600000, "cliente": "Ana", "veiculo": "Uno", "km": 50000,
			"data_troca": "2025-01-01", "data_proxima": "2025-01-30", "telefone": "", "endereco": "Rua A",
			"avisado": true, "criado_em": "2025-01-01"}],
		"warranties": [{"id": 1735689600001, "cliente": "Bia", "veiculo": "Gol", "telefone": "9999",
			"data_servico": "2025-01-01", "dias_garantia": 90, "data_vencimento": "2025-04-01",
			"servico": "Embreagem", "valor": 1200.5, "criado_em": "2025-01-01"}]
	}`
	svc, m, w := newService(t)
	res, err := svc.Import(context.Background(), strings.NewReader(legacy))
	require.NoError(t, err)
	assert.Equal(t, 1, res.OilChanges)

	oil := m.Records()[0]
	assert.Equal(t, models.RecordID("1735689600000"), oil.ID)
	assert.Equal(t, "Ana", oil.ClientName)
	assert.Equal(t, 50000, oil.Odometer)
	assert.True(t, oil.Notified)
	assert.Equal(t, "2025-01-30", oil.NextDueDate.String())

	war := w.Records()[0]
	assert.Equal(t, 90, war.WarrantyDays)
	assert.Equal(t, 1200.5, war.Value)
	assert.Equal(t, "2025-04-01", war.ExpiryDate.String())
}

func TestImportCancelled(t *testing.T) {
	svc, m, w := newService(t)
	seed(t, m, w)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, strings.NewReader(`{"version":"1.0","oilChanges":[],"warranties":[]}`))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, m.Count())
}

func TestInfo(t *testing.T) {
	svc, m, w := newService(t)
	seed(t, m, w)
	info := svc.Info()
	assert.Equal(t, fixedNow, info.GeneratedAt)
	assert.Equal(t, 2, info.OilChanges)
	assert.Equal(t, 1, info.Warranties)

	data, err := json.Marshal(svc.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, len(data), info.SizeBytes)
	assert.InDelta(t, float64(len(data))/1024, info.SizeKB(), 1e-9)
}

func TestClearAll(t *testing.T) {
	svc, m, w := newService(t)
	seed(t, m, w)
	svc.ClearAll(context.Background())
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, w.Count())
}

// cancelOnWriteStore cancels a context after the first write and refuses
// writes under a finished context, like FileStore.
type cancelOnWriteStore struct {
	*db.MemoryStore
	cancel context.CancelFunc
}

func (s *cancelOnWriteStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.MemoryStore.Set(ctx, key, value); err != nil {
		return err
	}
	s.cancel()
	return nil
}

func TestImportPersistsBothCollectionsWhenCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := db.NewMemoryStore()
	store := &cancelOnWriteStore{MemoryStore: mem, cancel: func() {}}

	m := records.NewMaintenanceManager(context.Background(), store, records.WithMaintenanceClock(clock))
	w := records.NewWarrantyManager(context.Background(), store, clock)
	svc := New(m, w, clock)

	src, sm, sw := newService(t)
	seed(t, sm, sw)
	var buf bytes.Buffer
	_, err := src.Export(&buf)
	require.NoError(t, err)

	store.cancel = cancel
	_, err = svc.Import(ctx, &buf)
	require.NoError(t, err)
	require.Error(t, ctx.Err(), "the first write cancelled the request")

	reloadedM := records.NewMaintenanceManager(context.Background(), mem)
	reloadedW := records.NewWarrantyManager(context.Background(), mem, nil)
	assert.Equal(t, 2, reloadedM.Count())
	assert.Equal(t, 1, reloadedW.Count())
}
