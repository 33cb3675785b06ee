package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notesync/internal/config"
	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driving"
)

func sampleReport() *driving.SyncReport {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &driving.SyncReport{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Notebooks:  2,
		Chunks: &driving.ChunkReport{
			StartUSN:  0,
			EndUSN:    5,
			RemoteUSN: 5,
			Chunks:    []string{"3", "5"},
		},
		NotesRefreshed: []string{"a", "b", "c"},
	}
}

func TestSyncCmd(t *testing.T) {
	t.Setenv("EVERNOTE_DEV_TOKEN", "S=s1:U=1")
	services := newFakeServices()
	services.engine.report = sampleReport()

	out, err := runCLI(t, factoryFor(services, nil), "sync", "--backfill")

	require.NoError(t, err)
	assert.True(t, services.engine.gotRun.Backfill)
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "Notebooks: 2")
	assert.Contains(t, out, "Chunks:    2 saved, cursor 0 -> 5 of 5")
	assert.Contains(t, out, "Notes:     3 refreshed")
	assert.Contains(t, out, "Duration:  1.5s")
	assert.NotContains(t, out, "Backfill:")
	assert.True(t, services.closed)
}

func TestSyncCmd_OptionsFromConfig(t *testing.T) {
	t.Setenv("EVERNOTE_DEV_TOKEN", "S=s1:U=1")
	t.Setenv("NOTESYNC_SYNC_BACKFILL", "true")
	services := newFakeServices()
	services.engine.report = sampleReport()

	_, err := runCLI(t, factoryFor(services, nil), "sync")

	require.NoError(t, err)
	assert.True(t, services.engine.gotRun.Backfill)
}

func TestSyncCmd_Failure(t *testing.T) {
	t.Setenv("EVERNOTE_DEV_TOKEN", "S=s1:U=1")
	services := newFakeServices()
	report := sampleReport()
	report.Chunks.Incomplete = true
	report.FinishedAt = time.Time{}
	services.engine.report = report
	services.engine.runErr = domain.ErrAuthInvalid

	out, err := runCLI(t, factoryFor(services, nil), "sync")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.Contains(t, err.Error(), "sync failed")
	assert.Contains(t, out, "(incomplete)")
	assert.NotContains(t, out, "Duration")
}

func TestSyncCmd_RequiresToken(t *testing.T) {
	t.Setenv("EVERNOTE_DEV_TOKEN", "")
	t.Setenv("NOTESYNC_AUTH_TOKEN", "")
	called := false
	factory := func(*config.Config) (Services, error) {
		called = true
		return newFakeServices(), nil
	}

	_, err := runCLI(t, factory, "sync")

	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.False(t, called)
}

func TestSyncCmd_FixtureNeedsNoToken(t *testing.T) {
	t.Setenv("EVERNOTE_DEV_TOKEN", "")
	t.Setenv("NOTESYNC_AUTH_TOKEN", "")
	services := newFakeServices()
	services.engine.report = sampleReport()

	_, err := runCLI(t, factoryFor(services, nil), "sync", "--fixture", "feed.yml")

	require.NoError(t, err)
}

func TestSyncCmd_FactoryError(t *testing.T) {
	t.Setenv("EVERNOTE_DEV_TOKEN", "S=s1:U=1")
	boom := errors.New("boom")
	factory := func(*config.Config) (Services, error) { return nil, boom }

	_, err := runCLI(t, factory, "sync")

	assert.ErrorIs(t, err, boom)
}

func TestDescribeChunks(t *testing.T) {
	tests := []struct {
		name   string
		report driving.ChunkReport
		want   string
	}{
		{
			name:   "nothing new",
			report: driving.ChunkReport{StartUSN: 7, EndUSN: 7},
			want:   "0 saved, cursor 7 -> 7",
		},
		{
			name:   "caught up",
			report: driving.ChunkReport{StartUSN: 2, EndUSN: 9, RemoteUSN: 9, Chunks: []string{"9"}},
			want:   "1 saved, cursor 2 -> 9 of 9",
		},
		{
			name:   "stopped early",
			report: driving.ChunkReport{StartUSN: 2, EndUSN: 4, RemoteUSN: 9, Chunks: []string{"4"}, Incomplete: true},
			want:   "1 saved, cursor 2 -> 4 of 9 (incomplete)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeChunks(&tt.report))
		})
	}
}
