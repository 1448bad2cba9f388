package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/url"
	"os"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/oilchange-tracker/internal/backup"
	"github.com/ukydev/oilchange-tracker/internal/records"
	"github.com/ukydev/oilchange-tracker/internal/render"
)

//go:embed static
var embeddedStatic embed.FS

// Messages shown to the user.
const (
	msgMissingFields = "Por favor, preencha todos os campos obrigatórios!"
	msgNotFound      = "Registo não encontrado"
	msgConfirmClear  = "Confirme a limpeza de todos os dados"
	msgCleared       = "Todos os dados foram limpos"
)

// defaultMaxUpload bounds the size of an uploaded backup file.
const defaultMaxUpload = 10 << 20

// Handler serves the tracker UI and its JSON API.
type Handler struct {
	maintenance *records.MaintenanceManager
	warranties  *records.WarrantyManager
	backup      *backup.Service
	renderer    *render.Renderer
	static      fs.FS
	maxUpload   int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithAssetsDir serves static assets from dir instead of the embedded copy.
func WithAssetsDir(dir string) Option {
	return func(h *Handler) {
		if dir != "" {
			h.static = os.DirFS(dir)
		}
	}
}

// WithMaxUpload overrides the maximum accepted backup size.
func WithMaxUpload(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// New creates the HTTP handler set.
func New(m *records.MaintenanceManager, w *records.WarrantyManager, b *backup.Service, r *render.Renderer, opts ...Option) *Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		// The embedded directory is part of the binary.
		panic(err)
	}
	h := &Handler{
		maintenance: m,
		warranties:  w,
		backup:      b,
		renderer:    r,
		static:      sub,
		maxUpload:   defaultMaxUpload,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on a new router.
func (h *Handler) Routes(mws ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(mws...)

	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/maintenance", h.CreateMaintenance).Methods(http.MethodPost)
	r.HandleFunc("/maintenance/{id}/notified", h.ToggleNotified).Methods(http.MethodPost)
	r.HandleFunc("/maintenance/{id}/delete", h.DeleteMaintenance).Methods(http.MethodPost)
	r.HandleFunc("/warranties", h.CreateWarranty).Methods(http.MethodPost)
	r.HandleFunc("/warranties/{id}/delete", h.DeleteWarranty).Methods(http.MethodPost)
	r.HandleFunc("/warranties/{id}/certificate", h.Certificate).Methods(http.MethodGet)

	r.HandleFunc("/backup/export", h.ExportBackup).Methods(http.MethodGet)
	r.HandleFunc("/backup/import", h.ImportBackup).Methods(http.MethodPost)
	r.HandleFunc("/backup/info", h.BackupInfo).Methods(http.MethodGet)
	r.HandleFunc("/backup/clear", h.ClearAll).Methods(http.MethodPost)

	r.HandleFunc("/api/maintenance", h.ListMaintenance).Methods(http.MethodGet)
	r.HandleFunc("/api/warranties", h.ListWarranties).Methods(http.MethodGet)
	r.HandleFunc("/api/backup/info", h.BackupInfoJSON).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(h.static))))
	return r
}

// state collects what the page is derived from.
func (h *Handler) state(tab string) render.State {
	today := h.maintenance.Today()
	st := render.State{
		Today:        today,
		Maintenance:  h.maintenance.Sorted(today),
		Warranties:   h.warranties.Sorted(h.warranties.Today()),
		IntervalDays: h.maintenance.IntervalDays(),
		Tab:          tab,
	}
	if tab == render.TabBackup {
		info := h.backup.Info()
		st.Backup = &info
	}
	return st
}

// renderPage writes the main document with status.
func (h *Handler) renderPage(w http.ResponseWriter, status int, st render.State) {
	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, st); err != nil {
		log.WithError(err).Error("Failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// redirect sends the browser back to tab with an optional notice.
func redirect(w http.ResponseWriter, r *http.Request, tab, notice string) {
	q := url.Values{"tab": {tab}}
	if notice != "" {
		q.Set("notice", notice)
	}
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// Health reports that the service is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"oilChanges": h.maintenance.Count(),
		"warranties": h.warranties.Count(),
	})
}
