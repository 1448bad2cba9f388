package handlers

import (
	"bytes"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/oilchange-tracker/internal/backup"
	"github.com/ukydev/oilchange-tracker/internal/render"
)

// ExportBackup downloads both collections as one JSON document.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	_, err := h.backup.Export(&buf)
	if err != nil {
		log.WithError(err).Error("Failed to export backup")
		http.Error(w, "Erro ao exportar backup", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.backup.Filename()+`"`)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// ImportBackup restores both collections from an uploaded file.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		h.backupAlert(w, http.StatusBadRequest, "Selecione um arquivo de backup")
		return
	}
	defer file.Close()

	res, err := h.backup.Import(r.Context(), file)
	if err != nil {
		var importErr *backup.ImportError
		if errors.As(err, &importErr) {
			h.backupAlert(w, http.StatusBadRequest, importErr.Error())
			return
		}
		log.WithError(err).Warn("Backup import aborted")
		http.Error(w, "Import aborted", http.StatusRequestTimeout)
		return
	}
	redirect(w, r, render.TabBackup, res.Message)
}

// BackupInfo renders the backup tab.
func (h *Handler) BackupInfo(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, h.state(render.TabBackup))
}

// BackupInfoJSON reports what an export would contain.
func (h *Handler) BackupInfoJSON(w http.ResponseWriter, r *http.Request) {
	info := h.backup.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"generatedAt": info.GeneratedAt,
		"oilChanges":  info.OilChanges,
		"warranties":  info.Warranties,
		"sizeBytes":   info.SizeBytes,
		"size":        render.FormatSize(info.SizeBytes),
	})
}

// ClearAll wipes both collections. The form must carry confirm=yes.
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("confirm") != "yes" {
		h.backupAlert(w, http.StatusBadRequest, msgConfirmClear)
		return
	}
	h.backup.ClearAll(r.Context())
	redirect(w, r, render.TabBackup, msgCleared)
}

func (h *Handler) backupAlert(w http.ResponseWriter, status int, msg string) {
	st := h.state(render.TabBackup)
	st.Alert = msg
	h.renderPage(w, status, st)
}
