// Package auth implements API-key authentication backed by a JSON keys file
// that is reloaded whenever it changes on disk.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultKeysFileName is the keys file looked up in the data directory when no
// path is configured.
const DefaultKeysFileName = "keys.json"

// Key is one named API key in the keys file.
//
//	{"ci": {"key": "s3cret", "created": "2024-01-15T10:30:00Z"}}
type Key struct {
	Key     string `json:"key"`
	Created string `json:"created,omitempty"`
}

// Service verifies API keys.
type Service struct {
	mu      sync.RWMutex
	path    string
	keys    map[string]Key
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewService loads the keys file at path and watches it for changes. A
// missing file leaves the service in open mode.
func NewService(path string) (*Service, error) {
	s := &Service{
		path: filepath.Clean(path),
		keys: make(map[string]Key),
		done: make(chan struct{}),
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("auth: could not create fsnotify watcher", "err", err)
		close(s.done)
		return s, nil
	}
	s.watcher = watcher

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		slog.Warn("auth: could not watch keys dir", "err", err)
	}

	go s.watchLoop()
	return s, nil
}

// Path returns the keys file location.
func (s *Service) Path() string { return s.path }

// Reload re-reads the keys file. A missing file clears all keys.
func (s *Service) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.keys = make(map[string]Key)
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("auth: read %s: %w", s.path, err)
	}

	var keys map[string]Key
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("auth: parse %s: %w", s.path, err)
	}
	if keys == nil {
		keys = make(map[string]Key)
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	slog.Debug("auth: reloaded keys", "count", len(keys))
	return nil
}

// IsOpenMode reports whether no usable key is configured. In open mode every
// request is allowed.
func (s *Service) IsOpenMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.Key != "" {
			return false
		}
	}
	return true
}

// VerifyKey returns the name of the key matching key, comparing in constant
// time. The empty key never matches.
func (s *Service) VerifyKey(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, k := range s.keys {
		if k.Key == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(k.Key)) == 1 {
			return name, true
		}
	}
	return "", false
}

// Close stops the file watcher.
func (s *Service) Close() {
	if s.watcher != nil {
		s.watcher.Close()
		<-s.done
	}
}

func (s *Service) watchLoop() {
	defer close(s.done)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := s.Reload(); err != nil {
					slog.Warn("auth: failed to reload keys", "err", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("auth: watcher error", "err", err)
		}
	}
}
