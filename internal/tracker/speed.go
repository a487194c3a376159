package tracker

import (
	"math"
	"time"
)

type speedSample struct {
	at    time.Time
	bytes int64
}

// speedRing holds the recent (time, downloaded bytes) samples of one download.
type speedRing struct {
	samples  []speedSample
	smoothed *float64
}

// add appends a sample and drops those at or before now-window, keeping at
// most limit samples. A drop in downloaded bytes (a new stream started)
// restarts the ring from the new sample.
func (r *speedRing) add(now time.Time, bytes int64, window time.Duration, limit int) {
	if n := len(r.samples); n > 0 && bytes < r.samples[n-1].bytes {
		r.samples = r.samples[:0]
	}

	r.samples = append(r.samples, speedSample{at: now, bytes: bytes})

	cutoff := now.Add(-window)
	keep := 0
	for keep < len(r.samples) && !r.samples[keep].at.After(cutoff) {
		keep++
	}

	if over := len(r.samples) - keep - limit; over > 0 {
		keep += over
	}

	if keep > 0 {
		r.samples = append(r.samples[:0], r.samples[keep:]...)
	}
}

// rate is bytes/sec between the oldest and newest retained samples.
func (r *speedRing) rate() (float64, bool) {
	if len(r.samples) < 2 {
		return 0, false
	}

	oldest, newest := r.samples[0], r.samples[len(r.samples)-1]

	elapsed := newest.at.Sub(oldest.at).Seconds()
	if elapsed <= 0 {
		return 0, false
	}

	return float64(newest.bytes-oldest.bytes) / elapsed, true
}

// smooth folds a freshly computed rate into the smoothed value. It reports
// whether the smoothed value moved, which happens when there was none or the
// new rate differs from it by more than threshold (relative).
func (r *speedRing) smooth(calc, threshold float64) bool {
	if r.smoothed != nil && math.Abs(calc-*r.smoothed) <= threshold*(*r.smoothed) {
		return false
	}

	r.smoothed = &calc

	return true
}
