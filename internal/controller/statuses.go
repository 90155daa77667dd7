package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/micro-nova/taskd/internal/models"
)

// GetStatuses returns all statuses in file order.
func (c *Controller) GetStatuses(ctx context.Context) ([]models.Status, *models.AppError) {
	statuses, err := c.statuses.ReadAll(ctx)
	if err != nil {
		return nil, storeError(err, "retrieve statuses")
	}
	return statuses, nil
}

// GetStatus returns a single status by ID.
func (c *Controller) GetStatus(ctx context.Context, id string) (*models.Status, *models.AppError) {
	s, ok, err := c.statuses.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "retrieve status")
	}
	if !ok {
		return nil, models.ErrNotFound("Status not found with ID: " + id)
	}
	return &s, nil
}

// findByLabel returns the first status whose label matches case-insensitively.
func (c *Controller) findByLabel(ctx context.Context, label string) (models.Status, bool, error) {
	return c.statuses.FindBy(ctx, func(s models.Status) bool {
		return models.SameLabel(s.Label, label)
	})
}

// CreateStatus adds a status. Labels are unique ignoring case.
func (c *Controller) CreateStatus(ctx context.Context, in models.StatusInput) (*models.Status, *models.AppError) {
	if appErr := in.Validate(); appErr != nil {
		return nil, appErr
	}
	if _, exists, err := c.findByLabel(ctx, in.Label); err != nil {
		return nil, storeError(err, "create status")
	} else if exists {
		return nil, models.ErrConflict(fmt.Sprintf("Status with label '%s' already exists", in.Label))
	}

	saved, err := c.statuses.Save(ctx, models.Status{
		ID:    newStatusID(),
		Label: in.Label,
		Color: in.Color,
	})
	if err != nil {
		return nil, storeError(err, "create status")
	}
	slog.Info("controller: created status", "id", saved.ID, "label", saved.Label)
	return &saved, nil
}

// UpdateStatus replaces the label and color of an existing status.
func (c *Controller) UpdateStatus(ctx context.Context, id string, in models.StatusInput) (*models.Status, *models.AppError) {
	if appErr := in.Validate(); appErr != nil {
		return nil, appErr
	}
	if _, ok, err := c.statuses.FindByID(ctx, id); err != nil {
		return nil, storeError(err, "update status")
	} else if !ok {
		return nil, models.ErrNotFound("Status not found with ID: " + id)
	}
	if dup, exists, err := c.findByLabel(ctx, in.Label); err != nil {
		return nil, storeError(err, "update status")
	} else if exists && dup.ID != id {
		return nil, models.ErrConflict(fmt.Sprintf("Status with label '%s' already exists", in.Label))
	}

	updated, err := c.statuses.Update(ctx, models.Status{ID: id, Label: in.Label, Color: in.Color})
	if err != nil {
		return nil, storeError(err, "update status")
	}
	slog.Info("controller: updated status", "id", id)
	return &updated, nil
}

// DeleteStatus removes a status by ID. Tasks referring to it are kept.
func (c *Controller) DeleteStatus(ctx context.Context, id string) *models.AppError {
	deleted, err := c.statuses.DeleteByID(ctx, id)
	if err != nil {
		return storeError(err, "delete status")
	}
	if !deleted {
		slog.Warn("controller: status not found", "id", id)
		return models.ErrNotFound("Status not found with ID: " + id)
	}
	slog.Info("controller: deleted status", "id", id)
	return nil
}
