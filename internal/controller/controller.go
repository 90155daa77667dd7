// Package controller implements the task and status operations behind the
// HTTP API and the CLI: validation, ID generation, label uniqueness, and
// translation of storage failures into application errors.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/micro-nova/taskd/internal/filelock"
	"github.com/micro-nova/taskd/internal/models"
)

// Collection is the record store a controller works against.
// *store.Store[T] implements it.
type Collection[T any] interface {
	ReadAll(ctx context.Context) ([]T, error)
	FindByID(ctx context.Context, id string) (T, bool, error)
	FindBy(ctx context.Context, pred func(T) bool) (T, bool, error)
	Save(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, rec T) (T, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Controller owns the task and status collections.
type Controller struct {
	tasks    Collection[models.Task]
	statuses Collection[models.Status]

	now       func() time.Time
	version   string
	hostname  string
	startedAt models.Timestamp
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIdentity sets the version and hostname reported by Info.
func WithIdentity(version, hostname string) Option {
	return func(c *Controller) {
		c.version = version
		c.hostname = hostname
	}
}

// New creates a Controller over the given collections.
func New(tasks Collection[models.Task], statuses Collection[models.Status], opts ...Option) *Controller {
	c := &Controller{
		tasks:    tasks,
		statuses: statuses,
		now:      time.Now,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startedAt = models.NewTimestamp(c.now())
	return c
}

// Info returns the service identity and current collection sizes.
func (c *Controller) Info(ctx context.Context) (models.Info, *models.AppError) {
	info := models.Info{
		Version:   c.version,
		Hostname:  c.hostname,
		StartedAt: c.startedAt,
	}
	var err error
	if info.Tasks, err = c.tasks.Count(ctx); err != nil {
		return models.Info{}, storeError(err, "count tasks")
	}
	if info.Statuses, err = c.statuses.Count(ctx); err != nil {
		return models.Info{}, storeError(err, "count statuses")
	}
	return info, nil
}

// storeError logs a storage failure and maps it to an AppError. Lock
// contention is reported as temporarily unavailable so clients may retry;
// everything else is an internal error.
func storeError(err error, action string) *models.AppError {
	slog.Error("controller: failed to "+action, "err", err)
	if filelock.IsRetryable(err) {
		return models.ErrUnavailable(fmt.Sprintf("Failed to %s: storage is busy, retry later", action))
	}
	if errors.Is(err, context.Canceled) {
		return models.ErrUnavailable(fmt.Sprintf("Failed to %s: request cancelled", action))
	}
	return models.ErrInternal(fmt.Sprintf("Failed to %s", action))
}

// newTaskID returns "<unix millis>-<8 hex chars>".
func newTaskID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// newStatusID returns "status-<8 hex chars>".
func newStatusID() string {
	return "status-" + uuid.NewString()[:8]
}
