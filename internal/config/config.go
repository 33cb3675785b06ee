// Package config assembles the notesync configuration from defaults, the
// TOML config file, environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "NOTESYNC_"

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Persisted formats for the file backend.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config is the top-level configuration container. Struct tags drive the
// environment layer: envPrefix applies to nested structs, env names scalars.
type Config struct {
	Auth   Auth   `envPrefix:"AUTH_"`
	Remote Remote `envPrefix:"REMOTE_"`
	Store  Store  `envPrefix:"STORE_"`
	Sync   Sync   `envPrefix:"SYNC_"`
	Daemon Daemon `envPrefix:"DAEMON_"`
	Log    Log    `envPrefix:"LOG_"`
}

// Auth holds the developer token passed with every remote call.
type Auth struct {
	// Env: NOTESYNC_AUTH_TOKEN or EVERNOTE_DEV_TOKEN
	Token string `env:"TOKEN"`
}

// Remote selects and tunes the remote service client.
type Remote struct {
	// Sandbox targets sandbox.evernote.com instead of www.evernote.com.
	Sandbox bool `env:"SANDBOX"`

	// BaseURL overrides the host entirely, e.g. for a local gateway.
	BaseURL string `env:"BASE_URL"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `env:"TIMEOUT"`

	// Fixture replays a recorded YAML feed instead of calling the service.
	Fixture string `env:"FIXTURE"`
}

// Store selects where the mirror is written.
type Store struct {
	// Dir is the data directory. The file backend writes under Dir/mirror.
	Dir string `env:"DIR"`

	// Backend is "file" or "sqlite".
	Backend string `env:"BACKEND"`

	// Formats lists the encodings written by the file backend.
	Formats []string `env:"FORMATS" envSeparator:","`
}

// Sync tunes the sync engine.
type Sync struct {
	MaxRetries        int           `env:"MAX_RETRIES"`
	Interval          time.Duration `env:"INTERVAL"`
	RateLimitMargin   time.Duration `env:"RATE_LIMIT_MARGIN"`
	RetryDelay        time.Duration `env:"RETRY_DELAY"`
	MaxEntries        int64         `env:"MAX_ENTRIES"`
	StartUSN          int64         `env:"START_USN"`
	NoteFailurePolicy string        `env:"NOTE_FAILURE_POLICY"`

	// Backfill also fills gaps between stored chunks on every run.
	Backfill bool `env:"BACKFILL"`
}

// Daemon configures the background scheduler.
type Daemon struct {
	Interval     time.Duration `env:"INTERVAL"`
	HistoryLimit int           `env:"HISTORY_LIMIT"`
}

// Log configures the logger.
type Log struct {
	Verbose bool   `env:"VERBOSE"`
	File    string `env:"FILE"`
	JSON    bool   `env:"JSON"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	s := domain.DefaultSyncSettings()
	sched := domain.DefaultSchedulerConfig()

	return Config{
		Remote: Remote{
			Timeout: 30 * time.Second,
		},
		Store: Store{
			Backend: BackendFile,
			Formats: []string{FormatJSON},
		},
		Sync: Sync{
			MaxRetries:        s.MaxRetries,
			Interval:          s.Interval,
			RateLimitMargin:   s.RateLimitMargin,
			RetryDelay:        s.RetryDelay,
			MaxEntries:        int64(s.MaxEntries),
			StartUSN:          int64(s.StartUSN),
			NoteFailurePolicy: string(s.NoteFailurePolicy),
		},
		Daemon: Daemon{
			Interval:     sched.GetTaskConfig(domain.TaskIDMirrorSync).Interval,
			HistoryLimit: sched.HistoryLimit,
		},
	}
}

// SyncSettings converts the sync section into engine settings.
// Call Validate first; out of range counts are clamped here.
func (c *Config) SyncSettings() domain.SyncSettings {
	s := domain.DefaultSyncSettings()
	s.MaxRetries = c.Sync.MaxRetries
	s.Interval = c.Sync.Interval
	s.RateLimitMargin = c.Sync.RateLimitMargin
	s.RetryDelay = c.Sync.RetryDelay
	s.MaxEntries = clampInt32(c.Sync.MaxEntries)
	s.StartUSN = clampInt32(c.Sync.StartUSN)
	s.NoteFailurePolicy = domain.NoteFailurePolicy(c.Sync.NoteFailurePolicy)
	return s
}

// SchedulerConfig converts the daemon section into scheduler settings.
func (c *Config) SchedulerConfig() domain.SchedulerConfig {
	sched := domain.DefaultSchedulerConfig()
	sched.HistoryLimit = c.Daemon.HistoryLimit
	sched.TaskConfigs[domain.TaskIDMirrorSync] = domain.TaskConfig{
		Enabled:  true,
		Interval: c.Daemon.Interval,
	}
	return sched
}

// DefaultDataDir returns ~/.notesync/data.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".notesync", "data"), nil
}

// ResolveDataDir fills Store.Dir with the default when it is empty.
func (c *Config) ResolveDataDir() error {
	if c.Store.Dir != "" {
		return nil
	}
	dir, err := DefaultDataDir()
	if err != nil {
		return err
	}
	c.Store.Dir = dir
	return nil
}

// RequiresToken reports whether remote calls need a developer token.
// A replayed feed needs none.
func (c *Config) RequiresToken() bool {
	return c.Remote.Fixture == ""
}

// MirrorDir is where the file backend writes resources.
func (c *Config) MirrorDir() string {
	return filepath.Join(c.Store.Dir, "mirror")
}

// WritesYAML reports whether the file backend also writes YAML copies.
func (c *Config) WritesYAML() bool {
	for _, f := range c.Store.Formats {
		if f == FormatYAML {
			return true
		}
	}
	return false
}

func clampInt32(v int64) int32 {
	switch {
	case v > 1<<31-1:
		return 1<<31 - 1
	case v < -1<<31:
		return -1 << 31
	}
	return int32(v)
}
