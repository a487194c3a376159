package tracker

import (
	"math"
	"time"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/status"
)

// EventType classifies what changed in an update.
type EventType string

const (
	EventStarted      EventType = "started"
	EventUpdated      EventType = "updated"
	EventCompleted    EventType = "completed"
	EventFailed       EventType = "failed"
	EventCancelled    EventType = "cancelled"
	EventSpeedUpdated EventType = "speed_updated"
	EventETAUpdated   EventType = "eta_updated"
)

// IsTerminal reports whether the event ends a download's lifetime.
func (t EventType) IsTerminal() bool {
	return t == EventCompleted || t == EventFailed || t == EventCancelled
}

// Event is handed to every listener, once per Register or Update.
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"requestId"`
	Progress  *progress.Info `json:"progress"`
	Timestamp time.Time      `json:"timestamp"`
	Data      EventData      `json:"data"`
}

// EventData carries the deltas between the previous and current snapshot.
// Every block whose field changed is present, whichever type won.
type EventData struct {
	SpeedChange    *SpeedChange   `json:"speedChange,omitempty"`
	ProgressChange *PercentChange `json:"progressChange,omitempty"`
	ETAChange      *ETAChange     `json:"etaChange,omitempty"`
}

// Empty reports whether no block is present.
func (d EventData) Empty() bool {
	return d.SpeedChange == nil && d.ProgressChange == nil && d.ETAChange == nil
}

type SpeedChange struct {
	Previous   *float64 `json:"previous"`
	Current    *float64 `json:"current"`
	Difference float64  `json:"difference"`
}

type PercentChange struct {
	Previous   *float64 `json:"previous"`
	Current    *float64 `json:"current"`
	Difference float64  `json:"difference"`
}

type ETAChange struct {
	Previous *float64 `json:"previous"`
	Current  *float64 `json:"current"`
}

// classify picks the event type for prev -> cur. Terminal status changes win,
// then speed, then ETA.
func (o Options) classify(prev, cur *progress.Info) EventType {
	if cur.Status != prev.Status {
		switch cur.Status {
		case status.Completed:
			return EventCompleted
		case status.Failed:
			return EventFailed
		case status.Cancelled:
			return EventCancelled
		}
	}

	if prev.Speed != nil && cur.Speed != nil && math.Abs(*cur.Speed-*prev.Speed) > o.SpeedEventThreshold {
		return EventSpeedUpdated
	}

	if prev.ETA != nil && cur.ETA != nil && math.Abs(*cur.ETA-*prev.ETA) > o.ETAEventThreshold.Seconds() {
		return EventETAUpdated
	}

	return EventUpdated
}

func diff(prev, cur *progress.Info) EventData {
	var data EventData

	if changed(prev.Speed, cur.Speed) {
		data.SpeedChange = &SpeedChange{
			Previous:   cloneFloat(prev.Speed),
			Current:    cloneFloat(cur.Speed),
			Difference: valueOrZero(cur.Speed) - valueOrZero(prev.Speed),
		}
	}

	if changed(prev.Percentage, cur.Percentage) {
		data.ProgressChange = &PercentChange{
			Previous:   cloneFloat(prev.Percentage),
			Current:    cloneFloat(cur.Percentage),
			Difference: valueOrZero(cur.Percentage) - valueOrZero(prev.Percentage),
		}
	}

	if changed(prev.ETA, cur.ETA) {
		data.ETAChange = &ETAChange{
			Previous: cloneFloat(prev.ETA),
			Current:  cloneFloat(cur.ETA),
		}
	}

	return data
}

func changed(a, b *float64) bool {
	if a == nil || b == nil {
		return a != b
	}

	return *a != *b
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}

	return *v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}

	return progress.Float64(*v)
}
