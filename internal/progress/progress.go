package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/NamanBalaji/dltrack/internal/status"
)

// ErrInvalidProgress is returned by Validate for out-of-range fields.
var ErrInvalidProgress = errors.New("invalid progress")

// Info is a point-in-time snapshot of one download.
// Optional metrics are pointers; nil means the downloader did not report them.
type Info struct {
	RequestID string        `json:"requestId"`
	Status    status.Status `json:"status"`

	DownloadedBytes    int64  `json:"downloadedBytes"`
	TotalBytes         *int64 `json:"totalBytes,omitempty"`
	TotalBytesEstimate *int64 `json:"totalBytesEstimate,omitempty"`

	Speed      *float64      `json:"speed,omitempty"` // bytes/sec
	ETA        *float64      `json:"eta,omitempty"`   // seconds
	Percentage *float64      `json:"percentage,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`

	Filename         string `json:"filename,omitempty"`
	CurrentOperation string `json:"currentOperation,omitempty"`
	FragmentIndex    *int   `json:"fragmentIndex,omitempty"`
	FragmentCount    *int   `json:"fragmentCount,omitempty"`
	ErrorMessage     string `json:"errorMessage,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates a snapshot with only an id and a status.
func New(requestID string, s status.Status) *Info {
	return &Info{
		RequestID: requestID,
		Status:    s,
		UpdatedAt: time.Now(),
	}
}

// Clone returns a deep copy of i.
func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}

	c := *i
	c.TotalBytes = clonePtr(i.TotalBytes)
	c.TotalBytesEstimate = clonePtr(i.TotalBytesEstimate)
	c.Speed = clonePtr(i.Speed)
	c.ETA = clonePtr(i.ETA)
	c.Percentage = clonePtr(i.Percentage)
	c.FragmentIndex = clonePtr(i.FragmentIndex)
	c.FragmentCount = clonePtr(i.FragmentCount)

	return &c
}

// ExpectedBytes returns the known total size, falling back to the estimate.
func (i *Info) ExpectedBytes() (int64, bool) {
	if i.TotalBytes != nil {
		return *i.TotalBytes, true
	}

	if i.TotalBytesEstimate != nil {
		return *i.TotalBytesEstimate, true
	}

	return 0, false
}

// ComputedPercentage returns the reported percentage or derives one from the
// expected size. Without a positive size no percentage is derived.
func (i *Info) ComputedPercentage() (float64, bool) {
	if i.Percentage != nil {
		return *i.Percentage, true
	}

	total, ok := i.ExpectedBytes()
	if !ok || total <= 0 {
		return 0, false
	}

	pct := float64(i.DownloadedBytes) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}

	return pct, true
}

// Validate checks the ranges a downloader is expected to respect.
func (i *Info) Validate() error {
	switch {
	case i.DownloadedBytes < 0:
		return fmt.Errorf("%w: downloadedBytes %d is negative", ErrInvalidProgress, i.DownloadedBytes)
	case i.TotalBytes != nil && *i.TotalBytes < 0:
		return fmt.Errorf("%w: totalBytes %d is negative", ErrInvalidProgress, *i.TotalBytes)
	case i.TotalBytesEstimate != nil && *i.TotalBytesEstimate < 0:
		return fmt.Errorf("%w: totalBytesEstimate %d is negative", ErrInvalidProgress, *i.TotalBytesEstimate)
	case i.Speed != nil && *i.Speed < 0:
		return fmt.Errorf("%w: speed %f is negative", ErrInvalidProgress, *i.Speed)
	case i.ETA != nil && *i.ETA < 0:
		return fmt.Errorf("%w: eta %f is negative", ErrInvalidProgress, *i.ETA)
	case i.Percentage != nil && (*i.Percentage < 0 || *i.Percentage > 100):
		return fmt.Errorf("%w: percentage %f out of range", ErrInvalidProgress, *i.Percentage)
	}

	return nil
}

func Int64(v int64) *int64       { return &v }
func Float64(v float64) *float64 { return &v }
func Int(v int) *int             { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
