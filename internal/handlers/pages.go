package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/oilchange-tracker/internal/models"
	"github.com/ukydev/oilchange-tracker/internal/records"
	"github.com/ukydev/oilchange-tracker/internal/render"
)

// Index renders the main page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st := h.state(q.Get("tab"))
	st.Notice = q.Get("notice")
	h.renderPage(w, http.StatusOK, st)
}

// inputError maps a validation error to the alert shown to the user.
func inputError(err error) string {
	if errors.Is(err, models.ErrMissingFields) {
		return msgMissingFields
	}
	return "Dados inválidos: " + err.Error()
}

// CreateMaintenance handles the oil-change form.
func (h *Handler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	in := models.MaintenanceInput{
		ClientName:  r.PostForm.Get("clientName"),
		Vehicle:     r.PostForm.Get("vehicle"),
		Odometer:    r.PostForm.Get("odometer"),
		ServiceDate: r.PostForm.Get("serviceDate"),
		Phone:       r.PostForm.Get("phone"),
		Address:     r.PostForm.Get("address"),
	}
	if _, err := h.maintenance.Add(r.Context(), in); err != nil {
		st := h.state(render.TabMaintenance)
		st.Alert = inputError(err)
		st.MaintenanceForm = in
		h.renderPage(w, http.StatusBadRequest, st)
		return
	}
	redirect(w, r, render.TabMaintenance, "Troca de óleo registada")
}

// ToggleNotified flips the notified flag of a maintenance record.
func (h *Handler) ToggleNotified(w http.ResponseWriter, r *http.Request) {
	id := models.RecordID(mux.Vars(r)["id"])
	if _, err := h.maintenance.ToggleNotified(r.Context(), id); err != nil {
		http.Error(w, msgNotFound, http.StatusNotFound)
		return
	}
	redirect(w, r, render.TabMaintenance, "")
}

// DeleteMaintenance removes a maintenance record. Unknown ids are ignored.
func (h *Handler) DeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id := models.RecordID(mux.Vars(r)["id"])
	h.maintenance.Delete(r.Context(), id)
	redirect(w, r, render.TabMaintenance, "Registo excluído")
}

// CreateWarranty handles the warranty form.
func (h *Handler) CreateWarranty(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	in := models.WarrantyInput{
		ClientName:   r.PostForm.Get("clientName"),
		Vehicle:      r.PostForm.Get("vehicle"),
		Phone:        r.PostForm.Get("phone"),
		ServiceDate:  r.PostForm.Get("serviceDate"),
		WarrantyDays: r.PostForm.Get("warrantyDays"),
		Service:      r.PostForm.Get("service"),
		Value:        r.PostForm.Get("value"),
	}
	if _, err := h.warranties.Add(r.Context(), in); err != nil {
		st := h.state(render.TabWarranties)
		st.Alert = inputError(err)
		st.WarrantyForm = in
		h.renderPage(w, http.StatusBadRequest, st)
		return
	}
	redirect(w, r, render.TabWarranties, "Garantia registada")
}

// DeleteWarranty removes a warranty. Unknown ids are ignored.
func (h *Handler) DeleteWarranty(w http.ResponseWriter, r *http.Request) {
	id := models.RecordID(mux.Vars(r)["id"])
	h.warranties.Delete(r.Context(), id)
	redirect(w, r, render.TabWarranties, "Garantia excluída")
}

// Certificate renders the printable certificate of one warranty.
func (h *Handler) Certificate(w http.ResponseWriter, r *http.Request) {
	id := models.RecordID(mux.Vars(r)["id"])
	rec, err := h.warranties.Get(id)
	if err != nil {
		http.Error(w, msgNotFound, http.StatusNotFound)
		return
	}
	today := h.warranties.Today()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Certificate(w, records.Track(rec, today), today); err != nil {
		log.WithError(err).WithField("id", id).Error("Failed to render certificate")
	}
}
