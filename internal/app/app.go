// Package app assembles the stores and controller described by a Config. It
// is shared by the daemon and the CLI so both open the collection files the
// same way.
package app

import (
	"log/slog"

	"github.com/micro-nova/taskd/internal/config"
	"github.com/micro-nova/taskd/internal/controller"
	"github.com/micro-nova/taskd/internal/identity"
	"github.com/micro-nova/taskd/internal/maintenance"
	"github.com/micro-nova/taskd/internal/models"
	"github.com/micro-nova/taskd/internal/store"
)

// App holds the opened collections and the controller over them.
type App struct {
	Config   config.Config
	Tasks    *store.Store[models.Task]
	Statuses *store.Store[models.Status]
	Ctrl     *controller.Controller
}

// New builds the stores and controller for cfg. Nothing touches the disk
// until the first operation.
func New(cfg config.Config, opts ...controller.Option) *App {
	storeOpts := []store.Option{
		store.WithLockOptions(cfg.LockOptions()...),
		store.WithLogger(slog.Default()),
	}
	if cfg.SerializeMutations {
		storeOpts = append(storeOpts, store.WithSerializedMutations())
	}

	a := &App{
		Config:   cfg,
		Tasks:    store.New(cfg.TasksPath(), models.TaskID, storeOpts...),
		Statuses: store.New(cfg.StatusesPath(), models.StatusID, storeOpts...),
	}
	opts = append([]controller.Option{controller.WithIdentity(identity.GetVersion(), identity.GetHostname())}, opts...)
	a.Ctrl = controller.New(a.Tasks, a.Statuses, opts...)
	return a
}

// Backups returns the backup service for both collections.
func (a *App) Backups(opts ...maintenance.Option) *maintenance.Service {
	return maintenance.New(a.Config.BackupPath(), a.Config.Backup.Keep, a.Config.Backup.Interval,
		[]maintenance.Source{
			maintenance.StoreSource[models.Task](models.CollectionTasks, a.Tasks),
			maintenance.StoreSource[models.Status](models.CollectionStatuses, a.Statuses),
		}, opts...)
}
