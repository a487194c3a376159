package progress_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/status"
)

func TestCloneIsDeep(t *testing.T) {
	orig := &progress.Info{
		RequestID:       "dl1",
		Status:          status.Downloading,
		DownloadedBytes: 10,
		TotalBytes:      progress.Int64(100),
		Speed:           progress.Float64(5),
		ETA:             progress.Float64(18),
		Percentage:      progress.Float64(10),
		FragmentIndex:   progress.Int(1),
	}

	c := orig.Clone()
	require.Equal(t, orig, c)

	*c.TotalBytes = 1
	*c.Speed = 1
	*c.FragmentIndex = 9
	c.DownloadedBytes = 99

	assert.Equal(t, int64(100), *orig.TotalBytes)
	assert.Equal(t, 5.0, *orig.Speed)
	assert.Equal(t, 1, *orig.FragmentIndex)
	assert.Equal(t, int64(10), orig.DownloadedBytes)

	var nilInfo *progress.Info
	assert.Nil(t, nilInfo.Clone())
}

func TestExpectedBytes(t *testing.T) {
	i := progress.New("x", status.Pending)
	_, ok := i.ExpectedBytes()
	assert.False(t, ok)

	i.TotalBytesEstimate = progress.Int64(50)
	n, ok := i.ExpectedBytes()
	assert.True(t, ok)
	assert.Equal(t, int64(50), n)

	i.TotalBytes = progress.Int64(80)
	n, _ = i.ExpectedBytes()
	assert.Equal(t, int64(80), n)
}

func TestComputedPercentage(t *testing.T) {
	tests := []struct {
		name   string
		info   progress.Info
		want   float64
		wantOK bool
	}{
		{"no size", progress.Info{DownloadedBytes: 10}, 0, false},
		{"zero size", progress.Info{DownloadedBytes: 10, TotalBytes: progress.Int64(0)}, 0, false},
		{"derived", progress.Info{DownloadedBytes: 25, TotalBytes: progress.Int64(100)}, 25, true},
		{"estimate", progress.Info{DownloadedBytes: 50, TotalBytesEstimate: progress.Int64(200)}, 25, true},
		{"clamped", progress.Info{DownloadedBytes: 300, TotalBytes: progress.Int64(100)}, 100, true},
		{"explicit wins", progress.Info{DownloadedBytes: 1, TotalBytes: progress.Int64(100), Percentage: progress.Float64(42)}, 42, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.info.ComputedPercentage()
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		info    progress.Info
		wantErr bool
	}{
		{"ok", progress.Info{DownloadedBytes: 1, Percentage: progress.Float64(100)}, false},
		{"negative bytes", progress.Info{DownloadedBytes: -1}, true},
		{"negative total", progress.Info{TotalBytes: progress.Int64(-1)}, true},
		{"negative estimate", progress.Info{TotalBytesEstimate: progress.Int64(-5)}, true},
		{"negative speed", progress.Info{Speed: progress.Float64(-1)}, true},
		{"negative eta", progress.Info{ETA: progress.Float64(-1)}, true},
		{"percentage above range", progress.Info{Percentage: progress.Float64(100.5)}, true},
		{"percentage below range", progress.Info{Percentage: progress.Float64(-0.1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, progress.ErrInvalidProgress)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "999 B", progress.FormatSize(999))
	assert.Equal(t, "1.5 kB", progress.FormatSize(1500))
	assert.Equal(t, "2.0 MB", progress.FormatSize(2_000_000))
	assert.Equal(t, "Unknown", progress.FormatSize(-1))

	assert.Equal(t, "--/s", progress.FormatSpeed(nil))
	assert.Equal(t, "2.0 MB/s", progress.FormatSpeed(progress.Float64(2_000_000)))

	assert.Equal(t, "--", progress.FormatETA(nil))
	assert.Equal(t, "45s", progress.FormatETA(progress.Float64(45)))
	assert.Equal(t, "2m 5s", progress.FormatETA(progress.Float64(125)))
	assert.Equal(t, "1h 1m", progress.FormatDuration(time.Hour+time.Minute+10*time.Second))
}
