// Package app wires adapters and services from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/notesync/internal/adapters/driven/remote/fixture"
	"github.com/custodia-labs/notesync/internal/adapters/driven/remote/gateway"
	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/notesync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/notesync/internal/config"
	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
	"github.com/custodia-labs/notesync/internal/core/services"
	"github.com/custodia-labs/notesync/internal/logger"
)

// App holds the services for one process.
type App struct {
	cfg    *config.Config
	store  driven.ResourceStore
	engine *services.SyncEngine

	mu sync.Mutex
	db *sqlite.Store
}

// Options tunes New.
type Options struct {
	// Version is sent in the User-Agent header.
	Version string
}

// New builds the remote, the resource store and the sync engine.
// The token is only required when talking to the real service.
func New(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.ResolveDataDir(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg}

	remote, err := newRemote(cfg, opts)
	if err != nil {
		return nil, err
	}

	store, err := a.newStore()
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	a.store = store

	a.engine = services.NewSyncEngine(remote, store, cfg.Auth.Token, cfg.SyncSettings())
	return a, nil
}

func newRemote(cfg *config.Config, opts Options) (driven.RemoteSyncClient, error) {
	if cfg.Remote.Fixture != "" {
		logger.Info("Replaying feed from %s", cfg.Remote.Fixture)
		feed, err := fixture.LoadFile(cfg.Remote.Fixture)
		if err != nil {
			return nil, err
		}
		return feed, nil
	}

	agent := "notesync"
	if opts.Version != "" {
		agent += "/" + opts.Version
	}
	gw := gateway.Config{
		BaseURL:   cfg.Remote.BaseURL,
		Sandbox:   cfg.Remote.Sandbox,
		Timeout:   cfg.Remote.Timeout,
		UserAgent: agent,
	}
	logger.Debug("Remote host: %s", gw.Host())
	return gateway.NewClient(gw), nil
}

func (a *App) newStore() (driven.ResourceStore, error) {
	switch a.cfg.Store.Backend {
	case config.BackendFile:
		store, err := file.NewOSResourceStore(a.cfg.MirrorDir(), file.WithYAML(a.cfg.WritesYAML()))
		if err != nil {
			return nil, fmt.Errorf("open mirror %s: %w", a.cfg.MirrorDir(), err)
		}
		logger.Debug("Mirror directory: %s", a.cfg.MirrorDir())
		return store, nil
	case config.BackendSQLite:
		db, err := a.database()
		if err != nil {
			return nil, err
		}
		return db.ResourceStore(), nil
	default:
		return nil, fmt.Errorf("%w: store backend %q", domain.ErrUnsupportedType, a.cfg.Store.Backend)
	}
}

// database opens the shared sqlite database on first use.
func (a *App) database() (*sqlite.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		return a.db, nil
	}
	db, err := sqlite.NewStore(a.cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Debug("Database: %s", db.Path())
	a.db = db
	return db, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Store returns the resource store the mirror is written to.
func (a *App) Store() driven.ResourceStore {
	return a.store
}

// Engine returns the sync engine.
func (a *App) Engine() driving.SyncEngine {
	return a.engine
}

// Scheduler builds the daemon scheduler. Task state lives in the sqlite
// database whichever backend holds the mirror.
func (a *App) Scheduler() (driving.Scheduler, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	opts := driving.RunOptions{Backfill: a.cfg.Sync.Backfill}
	return services.NewScheduler(a.cfg.SchedulerConfig(), db.SchedulerStore(), a.engine, opts), nil
}

// TaskHistory returns recent results of a scheduled task, newest first.
func (a *App) TaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.SchedulerStore().GetTaskHistory(ctx, taskID, limit)
}

// Close releases the database, if it was opened.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
