// Package config holds the settings shared by taskd and taskctl. Values start
// from Default, are overlaid by an optional YAML file and finally by
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/micro-nova/taskd/internal/filelock"
)

// Defaults.
const (
	DefaultAddr           = ":8080"
	DefaultDataDir        = "data"
	DefaultTasksFile      = "tasks.json"
	DefaultStatusesFile   = "statuses.json"
	DefaultBackupDir      = "backups"
	DefaultBackupKeep     = 10
	DefaultMDNSName       = "taskd"
	DefaultCORSMaxAge     = 3600
	DefaultRateLimitBurst = 20
)

// Config is the application configuration.
type Config struct {
	Addr         string `yaml:"addr"`
	DataDir      string `yaml:"data_dir"`
	TasksFile    string `yaml:"tasks_file"`
	StatusesFile string `yaml:"statuses_file"`
	Debug        bool   `yaml:"debug"`

	Lock      LockConfig      `yaml:"lock"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth"`
	Backup    BackupConfig    `yaml:"backup"`
	MDNS      MDNSConfig      `yaml:"mdns"`

	// SerializeMutations serializes read-modify-write cycles within this
	// process. It does not coordinate with other processes.
	SerializeMutations bool `yaml:"serialize_mutations"`
}

// LockConfig tunes file lock acquisition.
type LockConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// CORSConfig controls cross-origin access to the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// RateLimitConfig limits requests per client IP. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// AuthConfig points at the API keys file. An empty KeysFile means
// <data_dir>/keys.json.
type AuthConfig struct {
	KeysFile string `yaml:"keys_file"`
}

// BackupConfig schedules copies of the collection files. Interval 0 disables
// the scheduler; taskctl backup still works.
type BackupConfig struct {
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"`
	Keep     int           `yaml:"keep"`
}

// MDNSConfig controls the zeroconf advertisement.
type MDNSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:         DefaultAddr,
		DataDir:      DefaultDataDir,
		TasksFile:    DefaultTasksFile,
		StatusesFile: DefaultStatusesFile,
		Lock: LockConfig{
			Timeout:       filelock.DefaultTimeout,
			RetryInterval: filelock.DefaultRetryInterval,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-API-Key"},
			MaxAge:         DefaultCORSMaxAge,
		},
		RateLimit: RateLimitConfig{Burst: DefaultRateLimitBurst},
		Backup: BackupConfig{
			Dir:  DefaultBackupDir,
			Keep: DefaultBackupKeep,
		},
		MDNS: MDNSConfig{Name: DefaultMDNSName},
	}
}

// Load returns Default overlaid with the YAML file at path. Keys absent from
// the file keep their defaults. An empty path or a missing file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.TasksFile == "" || c.StatusesFile == "" {
		errs = append(errs, errors.New("tasks_file and statuses_file must not be empty"))
	}
	if c.resolve(c.TasksFile) == c.resolve(c.StatusesFile) {
		errs = append(errs, errors.New("tasks_file and statuses_file must differ"))
	}
	if c.Lock.Timeout <= 0 || c.Lock.RetryInterval <= 0 {
		errs = append(errs, errors.New("lock timeout and retry_interval must be positive"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit burst must be at least 1"))
	}
	if c.Backup.Keep < 0 || c.Backup.Interval < 0 {
		errs = append(errs, errors.New("backup keep and interval must not be negative"))
	}
	return errors.Join(errs...)
}

// TasksPath returns the tasks collection file path.
func (c Config) TasksPath() string { return c.resolve(c.TasksFile) }

// StatusesPath returns the statuses collection file path.
func (c Config) StatusesPath() string { return c.resolve(c.StatusesFile) }

// KeysPath returns the API keys file path.
func (c Config) KeysPath() string {
	if c.Auth.KeysFile == "" {
		return c.resolve("keys.json")
	}
	return c.resolve(c.Auth.KeysFile)
}

// BackupPath returns the backup directory.
func (c Config) BackupPath() string { return c.resolve(c.Backup.Dir) }

// LockOptions returns the filelock options matching c.Lock.
func (c Config) LockOptions() []filelock.Option {
	return []filelock.Option{
		filelock.WithTimeout(c.Lock.Timeout),
		filelock.WithRetryInterval(c.Lock.RetryInterval),
	}
}

// resolve makes relative paths relative to DataDir.
func (c Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.DataDir, p)
}
