// Package maintenance runs background upkeep for taskd: periodic snapshots of
// the collection files and pruning of old snapshots.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/micro-nova/taskd/internal/codec"
)

const (
	backupPrefix = "taskd-"
	backupLayout = "20060102T150405Z"
	// maxSameSecond bounds the suffix to what %03d keeps in order.
	maxSameSecond = 999
)

// Source is one collection to include in a backup. Snapshot returns the
// encoded collection, read under the collection's shared lock.
type Source struct {
	Name     string
	Snapshot func(ctx context.Context) ([]byte, error)
}

// Reader is the part of a record store a backup needs.
type Reader[T any] interface {
	ReadAll(ctx context.Context) ([]T, error)
}

// StoreSource adapts a record store into a backup Source. The collection is
// decoded and re-encoded, so a malformed file fails the backup instead of
// being copied.
func StoreSource[T any](name string, r Reader[T]) Source {
	return Source{
		Name: name,
		Snapshot: func(ctx context.Context) ([]byte, error) {
			recs, err := r.ReadAll(ctx)
			if err != nil {
				return nil, err
			}
			return codec.Encode(recs)
		},
	}
}

// Service writes backups into a directory and prunes old ones.
type Service struct {
	dir      string
	keep     int
	interval time.Duration
	sources  []Source
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a backup Service. keep <= 0 keeps every backup; interval <= 0
// disables the scheduler in Start.
func New(dir string, keep int, interval time.Duration, sources []Source, opts ...Option) *Service {
	s := &Service{
		dir:      dir,
		keep:     keep,
		interval: interval,
		sources:  sources,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a backup every interval until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	if s.interval <= 0 {
		slog.Info("maintenance: scheduled backups disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path, err := s.RunBackupNow(ctx)
			if err != nil {
				slog.Error("maintenance: backup failed", "err", err)
				continue
			}
			slog.Info("maintenance: backup created", "dir", path)
		}
	}
}

// RunBackupNow snapshots every source into a new timestamped directory and
// returns its path. Nothing is left behind if any source fails.
func (s *Service) RunBackupNow(ctx context.Context) (string, error) {
	snaps := make(map[string][]byte, len(s.sources))
	for _, src := range s.sources {
		data, err := src.Snapshot(ctx)
		if err != nil {
			return "", fmt.Errorf("maintenance: snapshot %s: %w", src.Name, err)
		}
		snaps[src.Name] = data
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("maintenance: create backup dir: %w", err)
	}
	dest, err := s.newBackupDir()
	if err != nil {
		return "", err
	}
	for name, data := range snaps {
		if err := os.WriteFile(filepath.Join(dest, name+".json"), data, 0o644); err != nil {
			os.RemoveAll(dest)
			return "", fmt.Errorf("maintenance: write %s: %w", name, err)
		}
	}

	s.prune()
	return dest, nil
}

// newBackupDir creates a directory named after the current time, adding a
// zero-padded suffix when one already exists for the same second so that
// names keep sorting in creation order.
func (s *Service) newBackupDir() (string, error) {
	base := filepath.Join(s.dir, backupPrefix+s.now().UTC().Format(backupLayout))
	dest := base
	for i := 1; ; i++ {
		err := os.Mkdir(dest, 0o755)
		if err == nil {
			return dest, nil
		}
		if !errors.Is(err, os.ErrExist) || i > maxSameSecond {
			return "", fmt.Errorf("maintenance: create %s: %w", dest, err)
		}
		dest = fmt.Sprintf("%s-%03d", base, i)
	}
}

// ListBackups returns the backup directories in dir, oldest first.
func ListBackups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	backups := []string{}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) {
			backups = append(backups, filepath.Join(dir, e.Name()))
		}
	}
	// The timestamp layout sorts lexically.
	sort.Strings(backups)
	return backups, nil
}

// prune removes the oldest backups beyond keep.
func (s *Service) prune() {
	if s.keep <= 0 {
		return
	}
	backups, err := ListBackups(s.dir)
	if err != nil {
		slog.Warn("maintenance: failed to list backups", "err", err)
		return
	}
	for len(backups) > s.keep {
		path := backups[0]
		backups = backups[1:]
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("maintenance: failed to prune old backup", "dir", path, "err", err)
			continue
		}
		slog.Info("maintenance: pruned old backup", "dir", path)
	}
}
