package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanBalaji/dltrack/internal/logger"
	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/status"
	"github.com/NamanBalaji/dltrack/internal/tracker"
)

type staticStats tracker.Statistics

func (s staticStats) Statistics() tracker.Statistics { return tracker.Statistics(s) }

func TestCollector(t *testing.T) {
	c := NewCollector(staticStats{
		TotalDownloads:         4,
		ActiveDownloads:        1,
		CompletedDownloads:     2,
		FailedDownloads:        1,
		TotalBytesDownloaded:   500,
		TotalBytesToDownload:   1000,
		OverallProgress:        50,
		AverageSpeed:           250,
		PeakSpeed:              400,
		EstimatedTimeRemaining: 2 * time.Second,
		SessionDuration:        time.Minute,
	})

	assert.Equal(t, 12, testutil.CollectAndCount(c))

	expected := `
# HELP dltrack_downloads Downloads tracked this session by outcome
# TYPE dltrack_downloads gauge
dltrack_downloads{state="cancelled"} 0
dltrack_downloads{state="completed"} 2
dltrack_downloads{state="failed"} 1
dltrack_downloads{state="total"} 4
# HELP dltrack_overall_progress_percent Downloaded bytes as a percentage of expected bytes
# TYPE dltrack_overall_progress_percent gauge
dltrack_overall_progress_percent 50
# HELP dltrack_estimated_time_remaining_seconds Estimated time until all expected bytes are downloaded
# TYPE dltrack_estimated_time_remaining_seconds gauge
dltrack_estimated_time_remaining_seconds 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"dltrack_downloads", "dltrack_overall_progress_percent", "dltrack_estimated_time_remaining_seconds")
	assert.NoError(t, err)
}

func TestEventCounter(t *testing.T) {
	ec := NewEventCounter()
	listen := ec.Listener()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []tracker.Event{
		{Type: tracker.EventStarted, RequestID: "a", Timestamp: start},
		{Type: tracker.EventUpdated, RequestID: "a", Timestamp: start.Add(time.Second)},
		{Type: tracker.EventSpeedUpdated, RequestID: "a", Timestamp: start.Add(2 * time.Second)},
		{Type: tracker.EventCompleted, RequestID: "a", Timestamp: start.Add(3 * time.Second)},
		{Type: tracker.EventFailed, RequestID: "never-started", Timestamp: start},
	}

	for _, ev := range events {
		require.NoError(t, listen(ev))
	}

	assert.InDelta(t, 1, testutil.ToFloat64(ec.events.WithLabelValues("started")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(ec.events.WithLabelValues("updated")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(ec.events.WithLabelValues("completed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(ec.events.WithLabelValues("failed")), 0)

	assert.Equal(t, 1, testutil.CollectAndCount(ec.duration))
	assert.Empty(t, ec.started)
}

func TestHandlerServesManagerMetrics(t *testing.T) {
	m := tracker.New(tracker.WithLogger(logger.Discard))
	ec := NewEventCounter()
	m.AddListener("metrics", ec.Listener())

	require.NoError(t, m.Register("dl", nil))
	m.Update("dl", &progress.Info{Status: status.Downloading, DownloadedBytes: 10, TotalBytes: progress.Int64(40)})

	reg := NewRegistry(m, ec)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dltrack_active_downloads 1")
	assert.Contains(t, string(body), "dltrack_overall_progress_percent 25")
	assert.Contains(t, string(body), `dltrack_events_total{type="started"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
