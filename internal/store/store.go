package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/micro-nova/taskd/internal/codec"
	"github.com/micro-nova/taskd/internal/filelock"
)

// Store is a file-backed collection of T keyed by a caller-supplied
// identifier. It is safe for concurrent use; see the package documentation
// for what that does and does not guarantee.
type Store[T any] struct {
	path      string
	id        func(T) string
	lockOpts  []filelock.Option
	perm      fs.FileMode
	log       *slog.Logger
	serialize bool

	mu sync.Mutex // held across read-modify-write when serialize is set
}

// Option configures a Store.
type Option func(*config)

type config struct {
	lockOpts  []filelock.Option
	perm      fs.FileMode
	log       *slog.Logger
	serialize bool
}

// WithLockOptions sets the lock timeout and retry interval.
func WithLockOptions(opts ...filelock.Option) Option {
	return func(c *config) { c.lockOpts = append(c.lockOpts, opts...) }
}

// WithFileMode sets the permissions used when the file is created.
func WithFileMode(perm fs.FileMode) Option {
	return func(c *config) { c.perm = perm }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithSerializedMutations makes mutations through this Store run one at a
// time.
func WithSerializedMutations() Option {
	return func(c *config) { c.serialize = true }
}

// New returns a Store for the file at path. id extracts the identifier used
// by FindByID, Update and DeleteByID. Nothing is touched on disk until the
// first operation.
func New[T any](path string, id func(T) string, opts ...Option) *Store[T] {
	c := config{perm: 0o644}
	for _, opt := range opts {
		opt(&c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return &Store[T]{
		path:      path,
		id:        id,
		lockOpts:  c.lockOpts,
		perm:      c.perm,
		log:       c.log,
		serialize: c.serialize,
	}
}

// Path returns the file backing the store.
func (s *Store[T]) Path() string { return s.path }

// ReadAll returns the whole collection in file order.
func (s *Store[T]) ReadAll(ctx context.Context) ([]T, error) {
	return s.readAll(ctx, "readAll")
}

// WriteAll replaces the file content with c.
func (s *Store[T]) WriteAll(ctx context.Context, c []T) error {
	return s.writeAll(ctx, "writeAll", c)
}

// FindByID returns the first record whose identifier is id.
func (s *Store[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	return s.find(ctx, "findById", func(rec T) bool { return s.id(rec) == id })
}

// FindBy returns the first record matching pred.
func (s *Store[T]) FindBy(ctx context.Context, pred func(T) bool) (T, bool, error) {
	return s.find(ctx, "findBy", pred)
}

// Filter returns every record matching pred, in file order.
func (s *Store[T]) Filter(ctx context.Context, pred func(T) bool) ([]T, error) {
	all, err := s.readAll(ctx, "filter")
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, rec := range all {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Save appends rec to the collection. Uniqueness is not checked.
func (s *Store[T]) Save(ctx context.Context, rec T) (T, error) {
	err := s.mutate(ctx, "save", func(all []T) ([]T, bool) {
		return append(all, rec), true
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// Update removes every record sharing rec's identifier and appends rec. It
// does not check that such a record existed.
func (s *Store[T]) Update(ctx context.Context, rec T) (T, error) {
	id := s.id(rec)
	err := s.mutate(ctx, "update", func(all []T) ([]T, bool) {
		next := make([]T, 0, len(all)+1)
		for _, r := range all {
			if s.id(r) != id {
				next = append(next, r)
			}
		}
		return append(next, rec), true
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// DeleteByID removes the records with identifier id. It reports whether the
// collection shrank; when nothing matched the file is not written.
func (s *Store[T]) DeleteByID(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.mutate(ctx, "deleteById", func(all []T) ([]T, bool) {
		next := make([]T, 0, len(all))
		for _, r := range all {
			if s.id(r) != id {
				next = append(next, r)
			}
		}
		deleted = len(next) < len(all)
		return next, deleted
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// DeleteAll writes an empty collection. The file is kept.
func (s *Store[T]) DeleteAll(ctx context.Context) error {
	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return s.writeAll(ctx, "deleteAll", []T{})
}

// Count returns the number of records currently on disk.
func (s *Store[T]) Count(ctx context.Context) (int, error) {
	all, err := s.readAll(ctx, "count")
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *Store[T]) find(ctx context.Context, op string, pred func(T) bool) (T, bool, error) {
	var zero T
	all, err := s.readAll(ctx, op)
	if err != nil {
		return zero, false, err
	}
	for _, rec := range all {
		if pred(rec) {
			return rec, true, nil
		}
	}
	return zero, false, nil
}

// mutate runs the load-modify-store cycle. fn reports whether anything
// changed; if not, nothing is written.
func (s *Store[T]) mutate(ctx context.Context, op string, fn func([]T) ([]T, bool)) error {
	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	all, err := s.readAll(ctx, op)
	if err != nil {
		return err
	}
	next, changed := fn(all)
	if !changed {
		return nil
	}
	return s.writeAll(ctx, op, next)
}

func (s *Store[T]) readAll(ctx context.Context, op string) ([]T, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []T{}, nil
		}
		return nil, &ReadError{Path: s.path, Op: op, Err: err}
	}
	defer f.Close()

	lock, err := filelock.Acquire(ctx, f, filelock.Shared, s.lockOpts...)
	if err != nil {
		s.log.Debug("store: shared lock failed", "path", s.path, "op", op, "err", err)
		return nil, &ReadError{Path: s.path, Op: op, Err: err}
	}
	data, err := io.ReadAll(f)
	lock.Release()
	if err != nil {
		return nil, &ReadError{Path: s.path, Op: op, Err: err}
	}

	recs, err := codec.Decode[T](data)
	if err != nil {
		return nil, &ReadError{Path: s.path, Op: op, Err: err}
	}
	return recs, nil
}

func (s *Store[T]) writeAll(ctx context.Context, op string, c []T) error {
	data, err := codec.Encode(c)
	if err != nil {
		return &WriteError{Path: s.path, Op: op, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &WriteError{Path: s.path, Op: op, Err: err}
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, s.perm)
	if err != nil {
		return &WriteError{Path: s.path, Op: op, Err: err}
	}
	defer f.Close()

	lock, err := filelock.Acquire(ctx, f, filelock.Exclusive, s.lockOpts...)
	if err != nil {
		s.log.Debug("store: exclusive lock failed", "path", s.path, "op", op, "err", err)
		return &WriteError{Path: s.path, Op: op, Err: err}
	}
	defer lock.Release()

	if err := replaceContent(f, data); err != nil {
		return &WriteError{Path: s.path, Op: op, Err: err}
	}
	s.log.Debug("store: wrote collection", "path", s.path, "op", op, "records", len(c))
	return nil
}

// replaceContent truncates f and writes data from offset zero. The caller
// holds the exclusive lock.
func replaceContent(f *os.File, data []byte) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}
