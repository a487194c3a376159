package tracker

import (
	"time"

	"github.com/NamanBalaji/dltrack/internal/logger"
)

const (
	// DefaultSpeedWindow is how far back speed samples are kept.
	DefaultSpeedWindow = 10 * time.Second
	// DefaultSmoothingThreshold is the relative change a freshly computed
	// speed needs before it replaces the previous smoothed value.
	DefaultSmoothingThreshold = 0.25
	// DefaultSpeedEventThreshold is the absolute speed change (bytes/sec)
	// that classifies an update as a speed event (0.5 MB/s).
	DefaultSpeedEventThreshold = 500_000.0
	// DefaultETAEventThreshold is the ETA change that classifies an update
	// as an ETA event.
	DefaultETAEventThreshold = 5 * time.Second
	// DefaultMaxSpeedSamples caps the per-download sample ring.
	DefaultMaxSpeedSamples = 64
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Logger is the leveled logger the manager reports through.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// Options holds the tunable thresholds. Zero fields take the defaults.
type Options struct {
	SpeedWindow         time.Duration
	SmoothingThreshold  float64
	SpeedEventThreshold float64
	ETAEventThreshold   time.Duration
	MaxSpeedSamples     int
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		SpeedWindow:         DefaultSpeedWindow,
		SmoothingThreshold:  DefaultSmoothingThreshold,
		SpeedEventThreshold: DefaultSpeedEventThreshold,
		ETAEventThreshold:   DefaultETAEventThreshold,
		MaxSpeedSamples:     DefaultMaxSpeedSamples,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()

	if o.SpeedWindow <= 0 {
		o.SpeedWindow = def.SpeedWindow
	}
	if o.SmoothingThreshold <= 0 {
		o.SmoothingThreshold = def.SmoothingThreshold
	}
	if o.SpeedEventThreshold <= 0 {
		o.SpeedEventThreshold = def.SpeedEventThreshold
	}
	if o.ETAEventThreshold <= 0 {
		o.ETAEventThreshold = def.ETAEventThreshold
	}
	if o.MaxSpeedSamples < 2 {
		o.MaxSpeedSamples = def.MaxSpeedSamples
	}

	return o
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger replaces the package file logger.
func WithLogger(l Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithOptions sets the thresholds.
func WithOptions(o Options) Option {
	return func(m *Manager) {
		m.opts = o.withDefaults()
	}
}

func defaultLogger() Logger {
	return logger.Default()
}
