package tracker

import (
	"time"

	"github.com/NamanBalaji/dltrack/internal/progress"
)

// Statistics aggregates every tracked download of the session.
type Statistics struct {
	TotalDownloads     int `json:"totalDownloads"`
	ActiveDownloads    int `json:"activeDownloads"`
	CompletedDownloads int `json:"completedDownloads"`
	FailedDownloads    int `json:"failedDownloads"`
	CancelledDownloads int `json:"cancelledDownloads"`

	TotalBytesDownloaded int64   `json:"totalBytesDownloaded"`
	TotalBytesToDownload int64   `json:"totalBytesToDownload"`
	OverallProgress      float64 `json:"overallProgress"`

	AverageSpeed           float64       `json:"averageSpeed"`
	PeakSpeed              float64       `json:"peakSpeed"`
	EstimatedTimeRemaining time.Duration `json:"estimatedTimeRemaining"`

	SessionStart    time.Time     `json:"sessionStart"`
	SessionDuration time.Duration `json:"sessionDuration"`
}

func newStatistics(start time.Time) Statistics {
	return Statistics{SessionStart: start}
}

// aggregate recomputes the byte, speed and ETA fields from the tracked
// snapshots. Counters are maintained by the caller.
func (s *Statistics) aggregate(tracked map[string]*progress.Info, now time.Time) {
	s.TotalBytesDownloaded = 0
	s.TotalBytesToDownload = 0

	var (
		speedSum float64
		speeds   int
		fastest  float64
	)

	for _, info := range tracked {
		s.TotalBytesDownloaded += info.DownloadedBytes

		if total, ok := info.ExpectedBytes(); ok {
			s.TotalBytesToDownload += total
		}

		if info.Speed != nil && *info.Speed > 0 {
			speedSum += *info.Speed
			speeds++
			if *info.Speed > fastest {
				fastest = *info.Speed
			}
		}
	}

	if s.TotalBytesToDownload > 0 {
		s.OverallProgress = float64(s.TotalBytesDownloaded) / float64(s.TotalBytesToDownload) * 100
	} else {
		s.OverallProgress = 0
	}

	if speeds > 0 {
		s.AverageSpeed = speedSum / float64(speeds)
		if fastest > s.PeakSpeed {
			s.PeakSpeed = fastest
		}

		remaining := s.TotalBytesToDownload - s.TotalBytesDownloaded
		if remaining > 0 && s.AverageSpeed > 0 {
			s.EstimatedTimeRemaining = time.Duration(float64(remaining) / s.AverageSpeed * float64(time.Second))
		} else {
			s.EstimatedTimeRemaining = 0
		}
	} else {
		s.AverageSpeed = 0
		s.EstimatedTimeRemaining = 0
	}

	s.SessionDuration = now.Sub(s.SessionStart)
}
