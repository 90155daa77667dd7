package api

import "net/http"

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	info, appErr := h.ctrl.Info(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
