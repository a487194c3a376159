package repository

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/status"
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// Entry is the journal record of one finished download lifetime. Events is
// the number of manager events of that lifetime, counted by the Journal.
type Entry struct {
	ID         ulid.ULID      `json:"id"`
	RequestID  string         `json:"requestId"`
	Status     status.Status  `json:"status"`
	Final      *progress.Info `json:"final"`
	Events     int            `json:"events"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// NewEntry builds an entry for the final snapshot of a download. IDs sort by
// finishedAt.
func NewEntry(final *progress.Info, events int, finishedAt time.Time) (*Entry, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(finishedAt), entropy)
	entropyMu.Unlock()

	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:         id,
		Events:     events,
		Final:      final.Clone(),
		FinishedAt: finishedAt,
	}

	if final != nil {
		e.RequestID = final.RequestID
		e.Status = final.Status
	}

	return e, nil
}
