package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/micro-nova/taskd/internal/models"
)

// GetTasks returns all tasks in file order.
func (c *Controller) GetTasks(ctx context.Context) ([]models.Task, *models.AppError) {
	tasks, err := c.tasks.ReadAll(ctx)
	if err != nil {
		return nil, storeError(err, "retrieve tasks")
	}
	return tasks, nil
}

// GetTask returns a single task by ID.
func (c *Controller) GetTask(ctx context.Context, id string) (*models.Task, *models.AppError) {
	t, ok, err := c.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "retrieve task")
	}
	if !ok {
		return nil, models.ErrNotFound("Task not found with ID: " + id)
	}
	return &t, nil
}

// CreateTask validates req, escapes its text, assigns an ID and creation time
// and appends the task.
func (c *Controller) CreateTask(ctx context.Context, req models.TaskCreate) (*models.Task, *models.AppError) {
	if appErr := req.Validate(); appErr != nil {
		return nil, appErr
	}
	now := c.now()
	t := models.Task{
		ID:       newTaskID(now),
		Text:     models.SanitizeHTML(req.Text),
		Created:  models.NewTimestamp(now),
		StatusID: req.StatusID,
	}
	saved, err := c.tasks.Save(ctx, t)
	if err != nil {
		return nil, storeError(err, "create task")
	}
	slog.Info("controller: created task", "id", saved.ID)
	return &saved, nil
}

// DeleteTask removes a task by ID.
func (c *Controller) DeleteTask(ctx context.Context, id string) *models.AppError {
	deleted, err := c.tasks.DeleteByID(ctx, id)
	if err != nil {
		return storeError(err, "delete task")
	}
	if !deleted {
		slog.Warn("controller: task not found", "id", id)
		return models.ErrNotFound("Task not found with ID: " + id)
	}
	slog.Info("controller: deleted task", "id", id)
	return nil
}

// ClearTasks removes every task.
func (c *Controller) ClearTasks(ctx context.Context) *models.AppError {
	if err := c.tasks.DeleteAll(ctx); err != nil {
		return storeError(err, "clear all tasks")
	}
	slog.Info("controller: cleared all tasks")
	return nil
}

// ReloadTasks re-reads the tasks file, which may have been edited by another
// process, and reports what it found.
func (c *Controller) ReloadTasks(ctx context.Context) (*models.ReloadResult, *models.AppError) {
	tasks, err := c.tasks.ReadAll(ctx)
	if err != nil {
		return nil, storeError(err, "reload tasks")
	}
	slog.Info("controller: reloaded tasks", "count", len(tasks))
	return &models.ReloadResult{
		Message: fmt.Sprintf("Reloaded %d tasks from file", len(tasks)),
		Count:   len(tasks),
		Tasks:   tasks,
	}, nil
}
