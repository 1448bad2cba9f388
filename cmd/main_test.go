package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/oilchange-tracker/internal/assetcache"
	"github.com/ukydev/oilchange-tracker/internal/backup"
	"github.com/ukydev/oilchange-tracker/internal/config"
	"github.com/ukydev/oilchange-tracker/internal/db"
	"github.com/ukydev/oilchange-tracker/internal/handlers"
	"github.com/ukydev/oilchange-tracker/internal/middleware"
)

const sampleBackup = `{
  "version": "1.0",
  "backupDate": "2025-01-28T10:00:00Z",
  "oilChanges": [{
    "id": "m1", "clientName": "Ana", "vehicle": "Fiat Uno", "odometer": 50000,
    "serviceDate": "2025-01-01", "nextDueDate": "2025-01-30",
    "phone": "", "address": "", "notified": false, "createdAt": "2025-01-01"
  }],
  "warranties": [{
    "id": "w1", "clientName": "Eva", "vehicle": "Gol", "phone": "",
    "serviceDate": "2025-01-10", "warrantyDays": 90, "expiryDate": "2025-04-10",
    "service": "Embreagem", "value": 1500, "createdAt": "2025-01-10"
  }],
  "totalRecords": {"oilChanges": 1, "warranties": 1}
}`

// setupEnv points the tracker at a fresh data directory.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("STORAGE_DRIVER", db.DriverFile)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeBackup(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleBackup), 0o600))
	return path
}

func TestListEmpty(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "TROCAS DE ÓLEO (0)")
	assert.Contains(t, out, "GARANTIAS (0)")
}

func TestListUnknownKind(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "list", "--kind", "trips")
	assert.Error(t, err)
}

func TestImportThenList(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "import", writeBackup(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Backup restaurado: 1 trocas de óleo e 1 garantias")

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "50.000 km")
	assert.Contains(t, out, "30/01/2025")
	assert.Contains(t, out, "Embreagem")
	assert.Contains(t, out, "R$ 1.500,00")

	out, err = run(t, "list", "--kind", "warranties", "--json")
	require.NoError(t, err)
	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotContains(t, doc, "oilChanges")
	require.Len(t, doc["warranties"], 1)
}

func TestImportInvalidFile(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"oilChanges":[]}`), 0o600))

	_, err := run(t, "import", path)
	var importErr *backup.ImportError
	assert.ErrorAs(t, err, &importErr)

	_, err = run(t, "import", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "import", writeBackup(t))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out.json")
	out, err := run(t, "export", "-o", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "1 trocas de óleo e 1 garantias")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	oil, war, err := backup.Parse(data)
	require.NoError(t, err)
	assert.Len(t, oil, 1)
	assert.Len(t, war, 1)

	out, err = run(t, "export", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"totalRecords"`)
}

func TestInfo(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "import", writeBackup(t))
	require.NoError(t, err)

	out, err := run(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Trocas de Óleo: 1")
	assert.Contains(t, out, "Garantias: 1")
	assert.Contains(t, out, "KB")
}

func TestClear(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "import", writeBackup(t))
	require.NoError(t, err)

	_, err = run(t, "clear")
	assert.ErrorIs(t, err, errNotConfirmed)
	out, err := run(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Trocas de Óleo: 1")

	_, err = run(t, "clear", "--yes")
	require.NoError(t, err)
	out, err = run(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Trocas de Óleo: 0")
}

func TestEphemeral(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, "--ephemeral", "import", writeBackup(t))
	require.NoError(t, err)

	out, err := run(t, "--ephemeral", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Trocas de Óleo: 0")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "memory storage leaves the data directory alone")
}

func TestProxyRequiresOrigin(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "proxy")
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Storage.Driver = db.DriverMemory
	assert.Error(t, runProxy(context.Background(), cfg, "not a url"))
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Driver = db.DriverMemory

	a, err := openApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)
	renderer, err := newRenderer(cfg)
	require.NoError(t, err)
	routes := handlers.New(a.maintenance, a.warranties, a.backup, renderer).Routes()

	cache, cleanup, err := openCache(ctx, cfg, assetcache.HandlerFetcher{Handler: routes}, renderer)
	require.NoError(t, err)
	defer cleanup()

	for _, path := range assetcache.DefaultManifest {
		_, ok := cache.Match(ctx, path)
		assert.True(t, ok, "%s should be cached", path)
	}
}

func TestOfflinePage(t *testing.T) {
	cfg := config.Default()
	renderer, err := newRenderer(cfg)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	offlinePage(renderer, cfg.Clock()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "offline-banner")
}

func TestWithMiddleware(t *testing.T) {
	h := withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), false)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}
