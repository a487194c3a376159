package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/NamanBalaji/dltrack/internal/tracker"
)

const (
	speedWindow         = tracker.DefaultSpeedWindow
	smoothingThreshold  = tracker.DefaultSmoothingThreshold
	speedEventThreshold = tracker.DefaultSpeedEventThreshold
	etaEventThreshold   = tracker.DefaultETAEventThreshold
	maxSpeedSamples     = tracker.DefaultMaxSpeedSamples
	dispatchBufferSize  = 256
	maxUpdatesPerSecond = 10
	metricsAddr         = "127.0.0.1:9464"
)

var (
	journalPath = filepath.Join(xdg.DataHome, appName, "journal.db")
	logPath     = filepath.Join(xdg.StateHome, appName, appName+".log")
)
