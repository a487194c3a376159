package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NamanBalaji/dltrack/internal/tracker"
)

const namespace = "dltrack"

// StatsSource is the part of the manager the collector reads.
type StatsSource interface {
	Statistics() tracker.Statistics
}

// Collector exports the manager's statistics as gauges, read at scrape time.
type Collector struct {
	source StatsSource

	downloads       *prometheus.Desc
	activeDownloads *prometheus.Desc
	bytesDownloaded *prometheus.Desc
	bytesExpected   *prometheus.Desc
	overallProgress *prometheus.Desc
	averageSpeed    *prometheus.Desc
	peakSpeed       *prometheus.Desc
	eta             *prometheus.Desc
	sessionDuration *prometheus.Desc
}

// NewCollector creates a collector over source.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		downloads: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "downloads"),
			"Downloads tracked this session by outcome", []string{"state"}, nil),
		activeDownloads: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "active_downloads"),
			"Downloads not yet in a terminal status", nil, nil),
		bytesDownloaded: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "bytes_downloaded"),
			"Bytes downloaded across tracked downloads", nil, nil),
		bytesExpected: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "bytes_expected"),
			"Expected bytes across tracked downloads with a known or estimated size", nil, nil),
		overallProgress: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "overall_progress_percent"),
			"Downloaded bytes as a percentage of expected bytes", nil, nil),
		averageSpeed: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "average_speed_bytes_per_second"),
			"Mean speed of downloads reporting a positive speed", nil, nil),
		peakSpeed: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "peak_speed_bytes_per_second"),
			"Highest speed seen this session", nil, nil),
		eta: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "estimated_time_remaining_seconds"),
			"Estimated time until all expected bytes are downloaded", nil, nil),
		sessionDuration: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "session_duration_seconds"),
			"Time since the session started", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.downloads
	ch <- c.activeDownloads
	ch <- c.bytesDownloaded
	ch <- c.bytesExpected
	ch <- c.overallProgress
	ch <- c.averageSpeed
	ch <- c.peakSpeed
	ch <- c.eta
	ch <- c.sessionDuration
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Statistics()

	ch <- prometheus.MustNewConstMetric(c.downloads, prometheus.GaugeValue, float64(s.TotalDownloads), "total")
	ch <- prometheus.MustNewConstMetric(c.downloads, prometheus.GaugeValue, float64(s.CompletedDownloads), "completed")
	ch <- prometheus.MustNewConstMetric(c.downloads, prometheus.GaugeValue, float64(s.FailedDownloads), "failed")
	ch <- prometheus.MustNewConstMetric(c.downloads, prometheus.GaugeValue, float64(s.CancelledDownloads), "cancelled")
	ch <- prometheus.MustNewConstMetric(c.activeDownloads, prometheus.GaugeValue, float64(s.ActiveDownloads))
	ch <- prometheus.MustNewConstMetric(c.bytesDownloaded, prometheus.GaugeValue, float64(s.TotalBytesDownloaded))
	ch <- prometheus.MustNewConstMetric(c.bytesExpected, prometheus.GaugeValue, float64(s.TotalBytesToDownload))
	ch <- prometheus.MustNewConstMetric(c.overallProgress, prometheus.GaugeValue, s.OverallProgress)
	ch <- prometheus.MustNewConstMetric(c.averageSpeed, prometheus.GaugeValue, s.AverageSpeed)
	ch <- prometheus.MustNewConstMetric(c.peakSpeed, prometheus.GaugeValue, s.PeakSpeed)
	ch <- prometheus.MustNewConstMetric(c.eta, prometheus.GaugeValue, s.EstimatedTimeRemaining.Seconds())
	ch <- prometheus.MustNewConstMetric(c.sessionDuration, prometheus.GaugeValue, s.SessionDuration.Seconds())
}

// EventCounter counts manager events by type and times each download from
// started to its terminal event.
type EventCounter struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

func NewEventCounter() *EventCounter {
	return &EventCounter{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of progress events by type",
		}, []string{"type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Histogram of download durations in seconds by outcome",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s up to ~1h
		}, []string{"outcome"}),
		started: make(map[string]time.Time),
	}
}

// Describe implements prometheus.Collector.
func (e *EventCounter) Describe(ch chan<- *prometheus.Desc) {
	e.events.Describe(ch)
	e.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (e *EventCounter) Collect(ch chan<- prometheus.Metric) {
	e.events.Collect(ch)
	e.duration.Collect(ch)
}

// Listener returns the function to register with the manager.
func (e *EventCounter) Listener() tracker.Listener {
	return func(ev tracker.Event) error {
		e.events.WithLabelValues(string(ev.Type)).Inc()

		e.mu.Lock()
		defer e.mu.Unlock()

		switch {
		case ev.Type == tracker.EventStarted:
			e.started[ev.RequestID] = ev.Timestamp
		case ev.Type.IsTerminal():
			if start, ok := e.started[ev.RequestID]; ok {
				e.duration.WithLabelValues(string(ev.Type)).Observe(ev.Timestamp.Sub(start).Seconds())
				delete(e.started, ev.RequestID)
			}
		}

		return nil
	}
}

// NewRegistry returns a registry holding the collector, the event counter and
// the standard Go and process collectors.
func NewRegistry(source StatsSource, events *EventCounter) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(source),
		events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// Handler serves the metrics in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
