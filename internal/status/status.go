package status

import (
	"errors"
	"fmt"
)

// ErrUnknownStatus is returned when a status name cannot be parsed.
var ErrUnknownStatus = errors.New("unknown status")

type Status int32

const (
	Pending Status = iota
	FetchingInfo
	Downloading
	Processing
	Paused
	Queued
	Completed
	Failed
	Cancelled
)

var names = map[Status]string{
	Pending:      "pending",
	FetchingInfo: "fetching_info",
	Downloading:  "downloading",
	Processing:   "processing",
	Paused:       "paused",
	Queued:       "queued",
	Completed:    "completed",
	Failed:       "failed",
	Cancelled:    "cancelled",
}

func (s Status) String() string {
	if name, ok := names[s]; ok {
		return name
	}

	return fmt.Sprintf("unknown(%d)", int32(s))
}

// IsTerminal reports whether s is a status a download cannot leave.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Parse converts a status name back into a Status.
func Parse(name string) (Status, error) {
	for s, n := range names {
		if n == name {
			return s, nil
		}
	}

	return Pending, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if _, ok := names[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int32(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
