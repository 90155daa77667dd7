package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/taskd/internal/models"
)

func (h *Handlers) getTasks(w http.ResponseWriter, r *http.Request) {
	tasks, appErr := h.ctrl.GetTasks(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	t, appErr := h.ctrl.GetTask(r.Context(), chi.URLParam(r, "id"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var req models.TaskCreate
	if appErr := decodeBody(w, r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}
	t, appErr := h.ctrl.CreateTask(r.Context(), req)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.DeleteTask(r.Context(), chi.URLParam(r, "id")); appErr != nil {
		writeError(w, appErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) clearTasks(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.ClearTasks(r.Context()); appErr != nil {
		writeError(w, appErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) reloadTasks(w http.ResponseWriter, r *http.Request) {
	res, appErr := h.ctrl.ReloadTasks(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
