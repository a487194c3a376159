// Package sysinfo samples host-level counters to put tracked download speeds
// in context.
package sysinfo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/NamanBalaji/dltrack/internal/tracker"
)

// CountersFunc returns the total number of bytes the host has received.
type CountersFunc func(ctx context.Context) (uint64, error)

// Sampler turns successive receive counters into a rate.
type Sampler struct {
	counters CountersFunc
	clock    tracker.Clock

	mu     sync.Mutex
	primed bool
	last   uint64
	lastAt time.Time
	rate   float64
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithCounters replaces the gopsutil counter source.
func WithCounters(fn CountersFunc) Option {
	return func(s *Sampler) {
		if fn != nil {
			s.counters = fn
		}
	}
}

// WithSamplerClock sets the clock used to time samples.
func WithSamplerClock(c tracker.Clock) Option {
	return func(s *Sampler) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewSampler creates a sampler reading all interfaces through gopsutil.
func NewSampler(opts ...Option) *Sampler {
	s := &Sampler{
		counters: hostBytesReceived,
		clock:    tracker.SystemClock{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Sample returns the receive rate in bytes/sec since the previous call. The
// first call only records a baseline and reports false.
func (s *Sampler) Sample(ctx context.Context) (float64, bool, error) {
	received, err := s.counters(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read network counters: %w", err)
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// A counter going backwards means the interface was reset.
	if !s.primed || received < s.last {
		s.primed = true
		s.last = received
		s.lastAt = now
		s.rate = 0

		return 0, false, nil
	}

	elapsed := now.Sub(s.lastAt).Seconds()
	if elapsed <= 0 {
		return s.rate, true, nil
	}

	s.rate = float64(received-s.last) / elapsed
	s.last = received
	s.lastAt = now

	return s.rate, true, nil
}

func hostBytesReceived(ctx context.Context) (uint64, error) {
	stats, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return 0, err
	}

	if len(stats) == 0 {
		return 0, nil
	}

	return stats[0].BytesRecv, nil
}
