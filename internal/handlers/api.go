package handlers

import (
	"net/http"
)

// ListMaintenance returns the oil changes ordered by urgency.
func (h *Handler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.maintenance.Sorted(h.maintenance.Today()))
}

// ListWarranties returns the warranties ordered by days until expiry.
func (h *Handler) ListWarranties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.warranties.Sorted(h.warranties.Today()))
}
