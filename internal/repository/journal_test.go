package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dlerrors "github.com/NamanBalaji/dltrack/internal/errors"
	"github.com/NamanBalaji/dltrack/internal/logger"
	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/repository"
	"github.com/NamanBalaji/dltrack/internal/status"
	"github.com/NamanBalaji/dltrack/internal/tracker"
)

func TestJournalPersistsTerminalEvents(t *testing.T) {
	repo := newRepo(t)
	journal := repository.NewJournal(repo, logger.Discard)

	m := tracker.New(tracker.WithLogger(logger.Discard))
	require.True(t, m.AddListener("journal", journal.Listener()))

	require.NoError(t, m.Register("ok", nil))
	require.NoError(t, m.Register("bad", nil))

	m.Update("ok", &progress.Info{Status: status.Downloading, DownloadedBytes: 10, TotalBytes: progress.Int64(20)})
	m.Update("ok", &progress.Info{Status: status.Completed, DownloadedBytes: 20, TotalBytes: progress.Int64(20)})
	m.Update("bad", &progress.Info{Status: status.Failed, ErrorMessage: "boom"})

	// a repeated terminal status is an update, not a second entry
	m.Update("ok", &progress.Info{Status: status.Completed, DownloadedBytes: 20, TotalBytes: progress.Int64(20)})

	assert.Equal(t, int64(2), journal.Saved())

	entries, err := repo.FindAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	ok, err := repo.FindByRequest("ok")
	require.NoError(t, err)
	require.Len(t, ok, 1)
	assert.Equal(t, status.Completed, ok[0].Status)
	assert.Equal(t, 3, ok[0].Events)
	assert.Equal(t, int64(20), ok[0].Final.DownloadedBytes)

	bad, err := repo.FindByRequest("bad")
	require.NoError(t, err)
	require.Len(t, bad, 1)
	assert.Equal(t, status.Failed, bad[0].Status)
	assert.Equal(t, 2, bad[0].Events)
	assert.Equal(t, "boom", bad[0].Final.ErrorMessage)
}

func TestJournalNewLifetimeRestartsCount(t *testing.T) {
	repo := newRepo(t)
	journal := repository.NewJournal(repo, logger.Discard)

	m := tracker.New(tracker.WithLogger(logger.Discard))
	m.AddListener("journal", journal.Listener())

	require.NoError(t, m.Register("dl", nil))
	m.Update("dl", &progress.Info{Status: status.Cancelled})

	require.NoError(t, m.Register("dl", nil))
	m.Update("dl", &progress.Info{Status: status.Downloading})
	m.Update("dl", &progress.Info{Status: status.Downloading, DownloadedBytes: 5})
	m.Update("dl", &progress.Info{Status: status.Completed, DownloadedBytes: 5})

	entries, err := repo.FindByRequest("dl")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, status.Cancelled, entries[0].Status)
	assert.Equal(t, 2, entries[0].Events)
	assert.Equal(t, status.Completed, entries[1].Status)
	assert.Equal(t, 4, entries[1].Events)
}

type brokenRepo struct{ repository.Repository }

func (brokenRepo) Save(*repository.Entry) error { return errors.New("disk full") }

func TestJournalReportsStorageErrors(t *testing.T) {
	journal := repository.NewJournal(brokenRepo{}, logger.Discard)
	listen := journal.Listener()

	err := listen(tracker.Event{
		Type:      tracker.EventFailed,
		RequestID: "dl",
		Progress:  progress.New("dl", status.Failed),
	})

	require.Error(t, err)
	assert.Equal(t, dlerrors.CategoryStorage, dlerrors.CategoryOf(err))
	assert.Zero(t, journal.Saved())

	assert.NoError(t, listen(tracker.Event{Type: tracker.EventUpdated, RequestID: "dl"}))
}

func TestJournalBehindDispatcher(t *testing.T) {
	repo := newRepo(t)
	journal := repository.NewJournal(repo, logger.Discard)

	d := tracker.NewDispatcher("journal", 8, journal.Listener(), logger.Discard)
	d.Start(context.Background())

	m := tracker.New(tracker.WithLogger(logger.Discard))
	m.AddListener("journal", d.Listener())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.Register(id, nil))
		m.Update(id, &progress.Info{Status: status.Completed})
	}

	d.Stop()

	entries, err := repo.FindAll()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestJournalCountsEventsDroppedByDispatcher(t *testing.T) {
	repo := newRepo(t)
	journal := repository.NewJournal(repo, logger.Discard)

	m := tracker.New(tracker.WithLogger(logger.Discard))
	require.True(t, m.AddListener("journal-counter", journal.Counter()))

	// Not started yet, so a queue of one overflows right away.
	d := tracker.NewDispatcher("journal", 1, journal.Listener(), logger.Discard)
	require.True(t, m.AddListener("journal", d.Listener()))

	require.NoError(t, m.Register("dl", nil))
	for i := int64(1); i <= 5; i++ {
		m.Update("dl", &progress.Info{Status: status.Downloading, DownloadedBytes: i * 10})
	}
	m.Update("dl", &progress.Info{Status: status.Completed, DownloadedBytes: 50})

	d.Start(context.Background())
	d.Stop()

	require.Positive(t, d.Dropped())

	entries, err := repo.FindByRequest("dl")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 7, entries[0].Events)
}
