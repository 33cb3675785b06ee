package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notesync/internal/core/domain"
)

// noEnv keeps tests independent of the process environment.
var noEnv = map[string]string{"NOTESYNC_UNUSED": ""}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Environ: noEnv})
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, []string{FormatJSON}, cfg.Store.Formats)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Daemon.Interval)
	assert.Equal(t, 100, cfg.Daemon.HistoryLimit)
	assert.Equal(t, domain.DefaultSyncSettings(), cfg.SyncSettings())
	assert.Empty(t, cfg.Auth.Token)
}

func TestLoad_FileLayer(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeyAuthToken, "file-token"))
	require.NoError(t, store.Set(KeySyncMaxRetries, int64(3)))
	require.NoError(t, store.Set(KeySyncInterval, "250ms"))
	require.NoError(t, store.Set(KeyStoreBackend, BackendSQLite))
	require.NoError(t, store.Set(KeyStoreFormats, []any{"json", "yaml"}))
	require.NoError(t, store.Set(KeySyncNoteFailurePolicy, "abort"))
	require.NoError(t, store.Set(KeyLogVerbose, true))

	cfg, err := Load(LoadOptions{Store: store, Environ: noEnv})
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Auth.Token)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.True(t, cfg.WritesYAML())
	assert.True(t, cfg.Log.Verbose)

	s := cfg.SyncSettings()
	assert.Equal(t, 3, s.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, s.Interval)
	assert.Equal(t, domain.NoteFailureAbort, s.NoteFailurePolicy)
	// Untouched keys keep their defaults
	assert.Equal(t, 500*time.Millisecond, s.RateLimitMargin)
	assert.Equal(t, int32(math.MaxInt32), s.MaxEntries)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeySyncMaxRetries, int64(3)))
	require.NoError(t, store.Set(KeyRemoteBaseURL, "http://file.invalid"))

	cfg, err := Load(LoadOptions{
		Store: store,
		Environ: map[string]string{
			"NOTESYNC_SYNC_MAX_RETRIES": "8",
			"NOTESYNC_SYNC_RETRY_DELAY": "2s",
			"NOTESYNC_STORE_FORMATS":    "json,yaml",
			"NOTESYNC_REMOTE_SANDBOX":   "true",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Sync.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Sync.RetryDelay)
	assert.Equal(t, []string{"json", "yaml"}, cfg.Store.Formats)
	assert.True(t, cfg.Remote.Sandbox)
	assert.Equal(t, "http://file.invalid", cfg.Remote.BaseURL)
}

func TestLoad_TokenPrecedence(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeyAuthToken, "file-token"))

	tests := []struct {
		name    string
		environ map[string]string
		over    *Config
		want    string
	}{
		{"file only", noEnv, nil, "file-token"},
		{"dev token env", map[string]string{"EVERNOTE_DEV_TOKEN": "dev"}, nil, "dev"},
		{
			"prefixed env wins over dev token",
			map[string]string{"EVERNOTE_DEV_TOKEN": "dev", "NOTESYNC_AUTH_TOKEN": "prefixed"},
			nil,
			"prefixed",
		},
		{
			"flag wins over env",
			map[string]string{"EVERNOTE_DEV_TOKEN": "dev"},
			&Config{Auth: Auth{Token: "flag"}},
			"flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(LoadOptions{Store: store, Environ: tt.environ, Overrides: tt.over})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Auth.Token)
		})
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	_, err := Load(LoadOptions{Environ: map[string]string{"NOTESYNC_SYNC_INTERVAL": "soon"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading environment")
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(LoadOptions{
		Environ: map[string]string{
			"NOTESYNC_STORE_BACKEND":            "postgres",
			"NOTESYNC_SYNC_NOTE_FAILURE_POLICY": "retry",
		},
	})
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "postgres")
	assert.Contains(t, err.Error(), "retry")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"unknown format", func(c *Config) { c.Store.Formats = []string{"xml"} }, "xml"},
		{"negative timeout", func(c *Config) { c.Remote.Timeout = -time.Second }, "remote timeout"},
		{"max entries too large", func(c *Config) { c.Sync.MaxEntries = math.MaxInt32 + 1 }, "max entries"},
		{"negative start usn", func(c *Config) { c.Sync.StartUSN = -1 }, "start usn"},
		{"zero retries", func(c *Config) { c.Sync.MaxRetries = 0 }, "max retries"},
		{"zero daemon interval", func(c *Config) { c.Daemon.Interval = 0 }, "daemon interval"},
		{"zero history", func(c *Config) { c.Daemon.HistoryLimit = 0 }, "history limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSchedulerConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Daemon.Interval = 5 * time.Minute
	cfg.Daemon.HistoryLimit = 20

	sched := cfg.SchedulerConfig()
	assert.True(t, sched.Enabled)
	assert.Equal(t, 20, sched.HistoryLimit)
	task := sched.GetTaskConfig(domain.TaskIDMirrorSync)
	assert.True(t, task.Enabled)
	assert.Equal(t, 5*time.Minute, task.Interval)
}

func TestMirrorDir(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Dir = "/var/lib/notesync"
	assert.Equal(t, "/var/lib/notesync/mirror", cfg.MirrorDir())
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.Token = "S=s1:U=1"

	red := cfg.Redacted()
	assert.Equal(t, "********", red.Auth.Token)
	assert.Equal(t, "S=s1:U=1", cfg.Auth.Token)

	red.Store.Formats[0] = "changed"
	assert.Equal(t, FormatJSON, cfg.Store.Formats[0])
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		key     string
		raw     string
		want    any
		wantErr bool
	}{
		{KeySyncMaxRetries, "7", int64(7), false},
		{KeySyncMaxRetries, "seven", nil, true},
		{KeyRemoteSandbox, "true", true, false},
		{KeyRemoteSandbox, "maybe", nil, true},
		{KeySyncInterval, "1.5s", "1.5s", false},
		{KeySyncInterval, "fast", nil, true},
		{KeyStoreFormats, "json, yaml,", []string{"json", "yaml"}, false},
		{KeyStoreBackend, "sqlite", "sqlite", false},
		{"sync.unknown", "1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			got, err := ParseValue(tt.key, tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeys(t *testing.T) {
	all := Keys()
	require.NotEmpty(t, all)

	key, ok := LookupKey(KeyAuthToken)
	require.True(t, ok)
	assert.True(t, key.Secret)
	assert.Equal(t, "string", key.Kind.String())

	_, ok = LookupKey("nope")
	assert.False(t, ok)

	// Every key is readable from the file layer
	store := memory.NewConfigStore()
	for _, k := range all {
		assert.NotEmpty(t, k.Description, k.Name)
		_ = store.Set(k.Name, "x")
	}
	assert.Len(t, store.Keys(), len(all))
}

func TestResolveDataDir(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Dir = "/srv/mirror"
	require.NoError(t, cfg.ResolveDataDir())
	assert.Equal(t, "/srv/mirror", cfg.Store.Dir)

	t.Setenv("HOME", "/home/tester")
	cfg.Store.Dir = ""
	require.NoError(t, cfg.ResolveDataDir())
	assert.Equal(t, "/home/tester/.notesync/data", cfg.Store.Dir)
}

func TestRequiresToken(t *testing.T) {
	cfg := Defaults()
	assert.True(t, cfg.RequiresToken())
	cfg.Remote.Fixture = "feed.yml"
	assert.False(t, cfg.RequiresToken())
}

func TestValue(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Formats = []string{FormatJSON, FormatYAML}

	for _, k := range Keys() {
		_, ok := cfg.Value(k.Name)
		assert.True(t, ok, k.Name)
	}

	v, _ := cfg.Value(KeySyncInterval)
	assert.Equal(t, "1.5s", v)
	v, _ = cfg.Value(KeyStoreFormats)
	assert.Equal(t, "json,yaml", v)
	v, _ = cfg.Value(KeyDaemonHistoryLimit)
	assert.Equal(t, "100", v)

	_, ok := cfg.Value("sync.nope")
	assert.False(t, ok)
}
