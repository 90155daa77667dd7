// Package api implements the taskd HTTP REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/micro-nova/taskd/internal/models"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
}

// Controller is the interface the handlers use to reach the collections.
type Controller interface {
	GetTasks(ctx context.Context) ([]models.Task, *models.AppError)
	GetTask(ctx context.Context, id string) (*models.Task, *models.AppError)
	CreateTask(ctx context.Context, req models.TaskCreate) (*models.Task, *models.AppError)
	DeleteTask(ctx context.Context, id string) *models.AppError
	ClearTasks(ctx context.Context) *models.AppError
	ReloadTasks(ctx context.Context) (*models.ReloadResult, *models.AppError)

	GetStatuses(ctx context.Context) ([]models.Status, *models.AppError)
	GetStatus(ctx context.Context, id string) (*models.Status, *models.AppError)
	CreateStatus(ctx context.Context, in models.StatusInput) (*models.Status, *models.AppError)
	UpdateStatus(ctx context.Context, id string, in models.StatusInput) (*models.Status, *models.AppError)
	DeleteStatus(ctx context.Context, id string) *models.AppError

	Info(ctx context.Context) (models.Info, *models.AppError)
}

// EventBus is the interface for subscribing to collection change events.
type EventBus interface {
	Subscribe(id string) <-chan models.ChangeEvent
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("api: failed to write response", "err", err)
	}
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.ErrInternal(err.Error())
	}
	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	writeJSON(w, appErr.Status, appErr)
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) *models.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.ErrBadRequest("invalid JSON: " + err.Error())
	}
	return nil
}
