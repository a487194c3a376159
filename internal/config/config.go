package config

import (
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/NamanBalaji/dltrack/internal/tracker"
)

const (
	appName        = "dltrack"
	configFileName = "dltrack.yaml"
)

// Config holds the configuration options for the application.
type Config struct {
	Tracker  *TrackerConfig  `yaml:"tracker,omitempty"`
	Dispatch *DispatchConfig `yaml:"dispatch,omitempty"`
	Feeder   *FeederConfig   `yaml:"feeder,omitempty"`
	Journal  *JournalConfig  `yaml:"journal,omitempty"`
	Metrics  *MetricsConfig  `yaml:"metrics,omitempty"`
	Log      *LogConfig      `yaml:"log,omitempty"`
}

// TrackerConfig holds the progress manager thresholds.
type TrackerConfig struct {
	SpeedWindow         time.Duration `yaml:"speedWindow,omitempty"`
	SmoothingThreshold  float64       `yaml:"smoothingThreshold,omitempty"`
	SpeedEventThreshold float64       `yaml:"speedEventThreshold,omitempty"`
	ETAEventThreshold   time.Duration `yaml:"etaEventThreshold,omitempty"`
	MaxSpeedSamples     int           `yaml:"maxSpeedSamples,omitempty"`
}

// DispatchConfig controls whether listeners run behind a queue.
type DispatchConfig struct {
	Async      bool `yaml:"async,omitempty"`
	BufferSize int  `yaml:"bufferSize,omitempty"`
}

// FeederConfig holds options for reading yt-dlp output.
type FeederConfig struct {
	MaxUpdatesPerSecond float64 `yaml:"maxUpdatesPerSecond,omitempty"`
}

// JournalConfig holds options for the finished-download journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// MetricsConfig holds options for the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
}

// LogConfig holds options for the debug log file.
type LogConfig struct {
	Debug bool   `yaml:"debug,omitempty"`
	Path  string `yaml:"path,omitempty"`
}

// Options converts the thresholds for tracker.New.
func (t *TrackerConfig) Options() tracker.Options {
	return tracker.Options{
		SpeedWindow:         t.SpeedWindow,
		SmoothingThreshold:  t.SmoothingThreshold,
		SpeedEventThreshold: t.SpeedEventThreshold,
		ETAEventThreshold:   t.ETAEventThreshold,
		MaxSpeedSamples:     t.MaxSpeedSamples,
	}
}

// Path returns the default configuration file location.
func Path() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// GetConfig reads the configuration file and returns a Config struct.
// If the configuration file does not exist, it returns the default configuration.
func GetConfig() (*Config, error) {
	return Load(Path())
}

// Load reads the configuration at path, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	defaults := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &defaults, nil
		}

		return nil, err
	}

	if len(b) == 0 {
		return &defaults, nil
	}

	var cfg Config

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, err
	}

	trackerCfg := zeroOr(cfg.Tracker, defaults.Tracker)
	dispatchCfg := zeroOr(cfg.Dispatch, defaults.Dispatch)
	feederCfg := zeroOr(cfg.Feeder, defaults.Feeder)
	journalCfg := zeroOr(cfg.Journal, defaults.Journal)
	metricsCfg := zeroOr(cfg.Metrics, defaults.Metrics)
	logCfg := zeroOr(cfg.Log, defaults.Log)

	return &Config{
		Tracker: &TrackerConfig{
			SpeedWindow:         zeroOr(trackerCfg.SpeedWindow, defaults.Tracker.SpeedWindow),
			SmoothingThreshold:  zeroOr(trackerCfg.SmoothingThreshold, defaults.Tracker.SmoothingThreshold),
			SpeedEventThreshold: zeroOr(trackerCfg.SpeedEventThreshold, defaults.Tracker.SpeedEventThreshold),
			ETAEventThreshold:   zeroOr(trackerCfg.ETAEventThreshold, defaults.Tracker.ETAEventThreshold),
			MaxSpeedSamples:     zeroOr(trackerCfg.MaxSpeedSamples, defaults.Tracker.MaxSpeedSamples),
		},
		Dispatch: &DispatchConfig{
			Async:      zeroOr(dispatchCfg.Async, defaults.Dispatch.Async),
			BufferSize: zeroOr(dispatchCfg.BufferSize, defaults.Dispatch.BufferSize),
		},
		Feeder: &FeederConfig{
			MaxUpdatesPerSecond: zeroOr(feederCfg.MaxUpdatesPerSecond, defaults.Feeder.MaxUpdatesPerSecond),
		},
		Journal: &JournalConfig{
			Enabled: zeroOr(journalCfg.Enabled, defaults.Journal.Enabled),
			Path:    zeroOr(journalCfg.Path, defaults.Journal.Path),
		},
		Metrics: &MetricsConfig{
			Enabled: zeroOr(metricsCfg.Enabled, defaults.Metrics.Enabled),
			Addr:    zeroOr(metricsCfg.Addr, defaults.Metrics.Addr),
		},
		Log: &LogConfig{
			Debug: zeroOr(logCfg.Debug, defaults.Log.Debug),
			Path:  zeroOr(logCfg.Path, defaults.Log.Path),
		},
	}, nil
}

func DefaultConfig() Config {
	return Config{
		Tracker: &TrackerConfig{
			SpeedWindow:         speedWindow,
			SmoothingThreshold:  smoothingThreshold,
			SpeedEventThreshold: speedEventThreshold,
			ETAEventThreshold:   etaEventThreshold,
			MaxSpeedSamples:     maxSpeedSamples,
		},
		Dispatch: &DispatchConfig{
			BufferSize: dispatchBufferSize,
		},
		Feeder: &FeederConfig{
			MaxUpdatesPerSecond: maxUpdatesPerSecond,
		},
		Journal: &JournalConfig{
			Path: journalPath,
		},
		Metrics: &MetricsConfig{
			Addr: metricsAddr,
		},
		Log: &LogConfig{
			Path: logPath,
		},
	}
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}
