package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedRing(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(d time.Duration) time.Time { return t0.Add(d) }

	t.Run("single sample has no rate", func(t *testing.T) {
		var r speedRing
		r.add(t0, 100, 10*time.Second, 64)

		_, ok := r.rate()
		assert.False(t, ok)
	})

	t.Run("zero elapsed has no rate", func(t *testing.T) {
		var r speedRing
		r.add(t0, 100, 10*time.Second, 64)
		r.add(t0, 500, 10*time.Second, 64)

		_, ok := r.rate()
		assert.False(t, ok)
	})

	t.Run("rate spans oldest to newest", func(t *testing.T) {
		var r speedRing
		r.add(t0, 0, 10*time.Second, 64)
		r.add(at(time.Second), 300, 10*time.Second, 64)
		r.add(at(4*time.Second), 1200, 10*time.Second, 64)

		rate, ok := r.rate()
		require.True(t, ok)
		assert.InDelta(t, 300, rate, 1e-9)
	})

	t.Run("samples at the window edge are pruned", func(t *testing.T) {
		var r speedRing
		r.add(t0, 0, 10*time.Second, 64)
		r.add(at(10*time.Second), 1000, 10*time.Second, 64)

		assert.Len(t, r.samples, 1)
		assert.Equal(t, int64(1000), r.samples[0].bytes)
	})

	t.Run("byte drop restarts the ring", func(t *testing.T) {
		var r speedRing
		r.add(t0, 5000, 10*time.Second, 64)
		r.add(at(time.Second), 9000, 10*time.Second, 64)
		r.add(at(2*time.Second), 100, 10*time.Second, 64)

		require.Len(t, r.samples, 1)
		assert.Equal(t, int64(100), r.samples[0].bytes)
	})

	t.Run("sample count is capped", func(t *testing.T) {
		var r speedRing
		for i := 0; i < 10; i++ {
			r.add(at(time.Duration(i)*time.Millisecond), int64(i*10), 10*time.Second, 4)
		}

		require.Len(t, r.samples, 4)
		assert.Equal(t, int64(60), r.samples[0].bytes)
		assert.Equal(t, int64(90), r.samples[3].bytes)
	})
}

func TestSpeedRingSmooth(t *testing.T) {
	var r speedRing

	assert.True(t, r.smooth(1000, 0.25))
	assert.InDelta(t, 1000, *r.smoothed, 1e-9)

	assert.False(t, r.smooth(1250, 0.25))
	assert.False(t, r.smooth(750, 0.25))
	assert.InDelta(t, 1000, *r.smoothed, 1e-9)

	assert.True(t, r.smooth(1251, 0.25))
	assert.InDelta(t, 1251, *r.smoothed, 1e-9)
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{SpeedWindow: 5 * time.Second}.withDefaults()

	def := DefaultOptions()
	assert.Equal(t, 5*time.Second, opts.SpeedWindow)
	assert.Equal(t, def.SmoothingThreshold, opts.SmoothingThreshold)
	assert.Equal(t, def.SpeedEventThreshold, opts.SpeedEventThreshold)
	assert.Equal(t, def.ETAEventThreshold, opts.ETAEventThreshold)
	assert.Equal(t, def.MaxSpeedSamples, opts.MaxSpeedSamples)
}
