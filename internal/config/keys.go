package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// Config file keys.
const (
	KeyAuthToken             = "auth.token"
	KeyRemoteSandbox         = "remote.sandbox"
	KeyRemoteBaseURL         = "remote.base_url"
	KeyRemoteTimeout         = "remote.timeout"
	KeyRemoteFixture         = "remote.fixture"
	KeyStoreDir              = "store.dir"
	KeyStoreBackend          = "store.backend"
	KeyStoreFormats          = "store.formats"
	KeySyncMaxRetries        = "sync.max_retries"
	KeySyncInterval          = "sync.interval"
	KeySyncRateLimitMargin   = "sync.rate_limit_margin"
	KeySyncRetryDelay        = "sync.retry_delay"
	KeySyncMaxEntries        = "sync.max_entries"
	KeySyncStartUSN          = "sync.start_usn"
	KeySyncNoteFailurePolicy = "sync.note_failure_policy"
	KeySyncBackfill          = "sync.backfill"
	KeyDaemonInterval        = "daemon.interval"
	KeyDaemonHistoryLimit    = "daemon.history_limit"
	KeyLogVerbose            = "log.verbose"
	KeyLogFile               = "log.file"
	KeyLogJSON               = "log.json"
)

// ValueKind is the type a config key holds.
type ValueKind int

const (
	KindString ValueKind = iota
	KindBool
	KindInt
	KindDuration
	KindList
)

// String returns the kind name shown in help output.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDuration:
		return "duration"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Key describes one configuration key.
type Key struct {
	Name        string
	Kind        ValueKind
	Description string
	Secret      bool
}

var keys = []Key{
	{Name: KeyAuthToken, Kind: KindString, Description: "developer token sent with every call", Secret: true},
	{Name: KeyRemoteSandbox, Kind: KindBool, Description: "use the sandbox service"},
	{Name: KeyRemoteBaseURL, Kind: KindString, Description: "override the service URL"},
	{Name: KeyRemoteTimeout, Kind: KindDuration, Description: "per request timeout"},
	{Name: KeyRemoteFixture, Kind: KindString, Description: "replay a recorded YAML feed"},
	{Name: KeyStoreDir, Kind: KindString, Description: "data directory"},
	{Name: KeyStoreBackend, Kind: KindString, Description: "file or sqlite"},
	{Name: KeyStoreFormats, Kind: KindList, Description: "file encodings: json, yaml"},
	{Name: KeySyncMaxRetries, Kind: KindInt, Description: "attempts per remote operation"},
	{Name: KeySyncInterval, Kind: KindDuration, Description: "minimum spacing between fetches"},
	{Name: KeySyncRateLimitMargin, Kind: KindDuration, Description: "added to server cooldowns"},
	{Name: KeySyncRetryDelay, Kind: KindDuration, Description: "pause after a failed attempt"},
	{Name: KeySyncMaxEntries, Kind: KindInt, Description: "entries per chunk request"},
	{Name: KeySyncStartUSN, Kind: KindInt, Description: "cursor for an empty mirror"},
	{Name: KeySyncNoteFailurePolicy, Kind: KindString, Description: "skip or abort"},
	{Name: KeySyncBackfill, Kind: KindBool, Description: "fill chunk gaps on every run"},
	{Name: KeyDaemonInterval, Kind: KindDuration, Description: "time between daemon syncs"},
	{Name: KeyDaemonHistoryLimit, Kind: KindInt, Description: "task results kept"},
	{Name: KeyLogVerbose, Kind: KindBool, Description: "debug output"},
	{Name: KeyLogFile, Kind: KindString, Description: "rotating log file"},
	{Name: KeyLogJSON, Kind: KindBool, Description: "JSON log lines"},
}

// Keys returns every known configuration key in display order.
func Keys() []Key {
	return append([]Key(nil), keys...)
}

// LookupKey finds a key by name.
func LookupKey(name string) (Key, bool) {
	for _, k := range keys {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

// ParseValue converts a command-line string into the value stored for key.
// Durations are stored as strings so the TOML file stays readable.
func ParseValue(name, raw string) (any, error) {
	key, ok := LookupKey(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, name)
	}

	switch key.Kind {
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
		return b, nil
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
		return n, nil
	case KindDuration:
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
		return raw, nil
	case KindList:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return raw, nil
	}
}

// Value formats the effective value of a key.
func (c *Config) Value(name string) (string, bool) {
	switch name {
	case KeyAuthToken:
		return c.Auth.Token, true
	case KeyRemoteSandbox:
		return strconv.FormatBool(c.Remote.Sandbox), true
	case KeyRemoteBaseURL:
		return c.Remote.BaseURL, true
	case KeyRemoteTimeout:
		return c.Remote.Timeout.String(), true
	case KeyRemoteFixture:
		return c.Remote.Fixture, true
	case KeyStoreDir:
		return c.Store.Dir, true
	case KeyStoreBackend:
		return c.Store.Backend, true
	case KeyStoreFormats:
		return strings.Join(c.Store.Formats, ","), true
	case KeySyncMaxRetries:
		return strconv.Itoa(c.Sync.MaxRetries), true
	case KeySyncInterval:
		return c.Sync.Interval.String(), true
	case KeySyncRateLimitMargin:
		return c.Sync.RateLimitMargin.String(), true
	case KeySyncRetryDelay:
		return c.Sync.RetryDelay.String(), true
	case KeySyncMaxEntries:
		return strconv.FormatInt(c.Sync.MaxEntries, 10), true
	case KeySyncStartUSN:
		return strconv.FormatInt(c.Sync.StartUSN, 10), true
	case KeySyncNoteFailurePolicy:
		return c.Sync.NoteFailurePolicy, true
	case KeySyncBackfill:
		return strconv.FormatBool(c.Sync.Backfill), true
	case KeyDaemonInterval:
		return c.Daemon.Interval.String(), true
	case KeyDaemonHistoryLimit:
		return strconv.Itoa(c.Daemon.HistoryLimit), true
	case KeyLogVerbose:
		return strconv.FormatBool(c.Log.Verbose), true
	case KeyLogFile:
		return c.Log.File, true
	case KeyLogJSON:
		return strconv.FormatBool(c.Log.JSON), true
	default:
		return "", false
	}
}

// fromStore reads the file layer. Missing keys stay zero.
func fromStore(s driven.ConfigStore) *Config {
	return &Config{
		Auth: Auth{
			Token: s.GetString(KeyAuthToken),
		},
		Remote: Remote{
			Sandbox: s.GetBool(KeyRemoteSandbox),
			BaseURL: s.GetString(KeyRemoteBaseURL),
			Timeout: s.GetDuration(KeyRemoteTimeout),
			Fixture: s.GetString(KeyRemoteFixture),
		},
		Store: Store{
			Dir:     s.GetString(KeyStoreDir),
			Backend: s.GetString(KeyStoreBackend),
			Formats: s.GetStringSlice(KeyStoreFormats),
		},
		Sync: Sync{
			MaxRetries:        s.GetInt(KeySyncMaxRetries),
			Interval:          s.GetDuration(KeySyncInterval),
			RateLimitMargin:   s.GetDuration(KeySyncRateLimitMargin),
			RetryDelay:        s.GetDuration(KeySyncRetryDelay),
			MaxEntries:        int64(s.GetInt(KeySyncMaxEntries)),
			StartUSN:          int64(s.GetInt(KeySyncStartUSN)),
			NoteFailurePolicy: s.GetString(KeySyncNoteFailurePolicy),
			Backfill:          s.GetBool(KeySyncBackfill),
		},
		Daemon: Daemon{
			Interval:     s.GetDuration(KeyDaemonInterval),
			HistoryLimit: s.GetInt(KeyDaemonHistoryLimit),
		},
		Log: Log{
			Verbose: s.GetBool(KeyLogVerbose),
			File:    s.GetString(KeyLogFile),
			JSON:    s.GetBool(KeyLogJSON),
		},
	}
}
