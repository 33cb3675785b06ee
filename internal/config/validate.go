package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrInvalidConfig is returned when the merged configuration is unusable.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the merged configuration. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Store.Backend != BackendFile && c.Store.Backend != BackendSQLite {
		errs = append(errs, fmt.Errorf("store backend must be %q or %q, got %q",
			BackendFile, BackendSQLite, c.Store.Backend))
	}
	for _, f := range c.Store.Formats {
		if f != FormatJSON && f != FormatYAML {
			errs = append(errs, fmt.Errorf("unknown store format %q", f))
		}
	}
	if c.Remote.Timeout < 0 {
		errs = append(errs, fmt.Errorf("remote timeout must not be negative, got %s", c.Remote.Timeout))
	}
	if c.Sync.MaxEntries < 1 || c.Sync.MaxEntries > math.MaxInt32 {
		errs = append(errs, fmt.Errorf("sync max entries must be in 1..%d, got %d", math.MaxInt32, c.Sync.MaxEntries))
	}
	if c.Sync.StartUSN < 0 || c.Sync.StartUSN > math.MaxInt32 {
		errs = append(errs, fmt.Errorf("sync start usn must be in 0..%d, got %d", math.MaxInt32, c.Sync.StartUSN))
	}
	if c.Daemon.Interval <= 0 {
		errs = append(errs, fmt.Errorf("daemon interval must be positive, got %s", c.Daemon.Interval))
	}
	if c.Daemon.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("daemon history limit must be at least 1, got %d", c.Daemon.HistoryLimit))
	}
	if err := c.SyncSettings().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Auth.Token != "" {
		c.Auth.Token = "********"
	}
	c.Store.Formats = slices.Clone(c.Store.Formats)
	return c
}
