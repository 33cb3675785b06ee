package cli

import (
	"bytes"
	"context"
	"iter"
	"os"
	"testing"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notesync/internal/config"
	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
)

type fakeEngine struct {
	versionErr error
	notebooks  domain.NotebookList
	chunks     *driving.ChunkReport
	backfill   *driving.ChunkReport
	chunkErr   error
	notes      []*domain.Note
	notesErr   error
	report     *driving.SyncReport
	runErr     error
	status     *driving.MirrorStatus

	gotRun   driving.RunOptions
	gotSince int32
}

var _ driving.SyncEngine = (*fakeEngine)(nil)

func (e *fakeEngine) ConfirmVersion(context.Context) error { return e.versionErr }

func (e *fakeEngine) Cursor(context.Context) (int32, error) { return 0, nil }

func (e *fakeEngine) SyncNotebooks(context.Context) (domain.NotebookList, error) {
	return e.notebooks, nil
}

func (e *fakeEngine) SyncChunks(context.Context) (*driving.ChunkReport, error) {
	return e.chunks, e.chunkErr
}

func (e *fakeEngine) BackfillChunks(context.Context) (*driving.ChunkReport, error) {
	return e.backfill, e.chunkErr
}

func (e *fakeEngine) SyncModifiedNotes(_ context.Context, since int32) iter.Seq2[*domain.Note, error] {
	e.gotSince = since
	return func(yield func(*domain.Note, error) bool) {
		for _, n := range e.notes {
			if !yield(n, nil) {
				return
			}
		}
		if e.notesErr != nil {
			yield(nil, e.notesErr)
		}
	}
}

func (e *fakeEngine) Run(_ context.Context, opts driving.RunOptions) (*driving.SyncReport, error) {
	e.gotRun = opts
	return e.report, e.runErr
}

func (e *fakeEngine) Gaps(context.Context) ([]domain.USNRange, error) { return nil, nil }

func (e *fakeEngine) Status(context.Context) (*driving.MirrorStatus, error) {
	if e.status == nil {
		return &driving.MirrorStatus{}, nil
	}
	return e.status, nil
}

type fakeScheduler struct {
	result  *domain.TaskResult
	runErr  error
	gotTask string
	stopped bool
}

func (s *fakeScheduler) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *fakeScheduler) Stop() error {
	s.stopped = true
	return nil
}

func (s *fakeScheduler) RunNow(_ context.Context, taskID string) (*domain.TaskResult, error) {
	s.gotTask = taskID
	return s.result, s.runErr
}

type fakeServices struct {
	engine    *fakeEngine
	scheduler *fakeScheduler
	history   []domain.TaskResult
	gotLimit  int
	closed    bool
}

func (s *fakeServices) Engine() driving.SyncEngine { return s.engine }

func (s *fakeServices) Scheduler() (driving.Scheduler, error) { return s.scheduler, nil }

func (s *fakeServices) TaskHistory(_ context.Context, _ string, limit int) ([]domain.TaskResult, error) {
	s.gotLimit = limit
	return s.history, nil
}

func (s *fakeServices) Close() error {
	s.closed = true
	return nil
}

func newFakeServices() *fakeServices {
	return &fakeServices{engine: &fakeEngine{}, scheduler: &fakeScheduler{}}
}

// factoryFor returns a factory handing out s and recording the config it saw.
func factoryFor(s *fakeServices, seen **config.Config) ServicesFactory {
	return func(c *config.Config) (Services, error) {
		if seen != nil {
			*seen = c
		}
		return s, nil
	}
}

// runCLI executes the root command with isolated config and data directories.
func runCLI(t *testing.T, factory ServicesFactory, args ...string) (string, error) {
	t.Helper()
	return runCLIContext(t, context.Background(), factory, args...)
}

func runCLIContext(t *testing.T, ctx context.Context, factory ServicesFactory, args ...string) (string, error) {
	t.Helper()
	return runCLIIn(t, ctx, t.TempDir(), factory, args...)
}

// runCLIIn is runCLIContext with a caller owned config directory.
func runCLIIn(t *testing.T, ctx context.Context, configDir string, factory ServicesFactory, args ...string) (string, error) {
	t.Helper()
	if _, ok := os.LookupEnv("EVERNOTE_DEV_TOKEN"); !ok {
		t.Setenv("EVERNOTE_DEV_TOKEN", "")
	}
	resetCLI()
	newServices = factory
	if promptOverride != nil {
		readToken = promptOverride
	}
	t.Cleanup(resetCLI)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append(args, "--config-dir", configDir, "--data-dir", t.TempDir()))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := shutdown(); shutdownErr != nil {
		t.Errorf("shutdown: %v", shutdownErr)
	}
	return buf.String(), err
}

// promptOverride answers --prompt-token when set.
var promptOverride func(*cobra.Command) (string, error)

func resetCLI() {
	globals = globalFlags{}
	syncFlags.backfill = false
	notesFlags.since = 0
	statusFlags.history = 0
	daemonFlags.once = false
	newServices = nil
	readToken = readTokenFromTerminal
	_ = shutdown()
	resetContexts(rootCmd)
}

// resetContexts clears the context cobra caches on each command so the next
// ExecuteContext call propagates its own context to subcommands.
func resetContexts(cmd *cobra.Command) {
	cmd.SetContext(nil) //nolint:staticcheck // nil lets cobra inherit the parent context again
	for _, c := range cmd.Commands() {
		resetContexts(c)
	}
}
