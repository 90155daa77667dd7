package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/taskd/internal/models"
)

func (h *Handlers) getStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, appErr := h.ctrl.GetStatuses(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (h *Handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	s, appErr := h.ctrl.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) createStatus(w http.ResponseWriter, r *http.Request) {
	var in models.StatusInput
	if appErr := decodeBody(w, r, &in); appErr != nil {
		writeError(w, appErr)
		return
	}
	s, appErr := h.ctrl.CreateStatus(r.Context(), in)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	var in models.StatusInput
	if appErr := decodeBody(w, r, &in); appErr != nil {
		writeError(w, appErr)
		return
	}
	s, appErr := h.ctrl.UpdateStatus(r.Context(), chi.URLParam(r, "id"), in)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) deleteStatus(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.DeleteStatus(r.Context(), chi.URLParam(r, "id")); appErr != nil {
		writeError(w, appErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
