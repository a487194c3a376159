package components_test

import (
	"strings"
	"testing"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/status"
	"github.com/NamanBalaji/dltrack/internal/tui/components"
)

func TestDownloadItem(t *testing.T) {
	longFilename := "this-is-a-very-long-filename-that-will-definitely-be-truncated.mp4"

	testCases := []struct {
		name           string
		info           *progress.Info
		width          int
		selected       bool
		expectedChecks []string
		forbidden      []string
	}{
		{
			name: "downloading",
			info: &progress.Info{
				RequestID:       "a",
				Filename:        "clip.mp4",
				Status:          status.Downloading,
				DownloadedBytes: 500,
				TotalBytes:      progress.Int64(1000),
				Speed:           progress.Float64(100),
				ETA:             progress.Float64(5),
			},
			width: 80,
			expectedChecks: []string{
				"clip.mp4",
				"downloading",
				"50.0%",
				"500 B / 1.0 kB",
				"100 B/s",
				"ETA: 5s",
			},
		},
		{
			name: "selected paused falls back to request id",
			info: &progress.Info{
				RequestID:       "req-42",
				Status:          status.Paused,
				DownloadedBytes: 1000,
				TotalBytes:      progress.Int64(2000),
				Speed:           progress.Float64(300),
			},
			width:          80,
			selected:       true,
			expectedChecks: []string{"req-42", "paused", "--/s", "ETA: --"},
			forbidden:      []string{"300 B/s"},
		},
		{
			name: "completed fills the bar",
			info: &progress.Info{
				RequestID:       "c",
				Filename:        "done.mkv",
				Status:          status.Completed,
				DownloadedBytes: 4_000_000,
				TotalBytes:      progress.Int64(5_000_000),
			},
			width:          100,
			expectedChecks: []string{"done.mkv", "completed", "100.0%", "5.0 MB / 5.0 MB", "ETA: Done"},
		},
		{
			name: "estimated total",
			info: &progress.Info{
				RequestID:          "e",
				Status:             status.Downloading,
				DownloadedBytes:    2500,
				TotalBytesEstimate: progress.Int64(10_000),
			},
			width:          80,
			expectedChecks: []string{"25.0%", "2.5 kB / ~10.0 kB"},
		},
		{
			name: "unknown size",
			info: &progress.Info{
				RequestID:       "u",
				Status:          status.FetchingInfo,
				DownloadedBytes: 0,
			},
			width:          80,
			expectedChecks: []string{"fetching info", "--", "0 B / Unknown"},
		},
		{
			name: "failed shows error",
			info: &progress.Info{
				RequestID:    "f",
				Filename:     "broken.webm",
				Status:       status.Failed,
				TotalBytes:   progress.Int64(1000),
				Percentage:   progress.Float64(10),
				ErrorMessage: "HTTP Error 403",
			},
			width:          80,
			expectedChecks: []string{"broken.webm", "failed", "10.0%", "HTTP Error 403"},
		},
		{
			name: "fragments and operation",
			info: &progress.Info{
				RequestID:        "h",
				Status:           status.Processing,
				CurrentOperation: "Merging formats",
				FragmentIndex:    progress.Int(3),
				FragmentCount:    progress.Int(40),
			},
			width:          80,
			expectedChecks: []string{"processing", "frag 3/40", "Merging formats"},
		},
		{
			name: "long filename is truncated",
			info: &progress.Info{
				RequestID: "l",
				Filename:  longFilename,
				Status:    status.Downloading,
			},
			width:          80,
			expectedChecks: []string{"..."},
			forbidden:      []string{longFilename},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output := components.DownloadItem(tc.info, tc.width, tc.selected)

			for _, check := range tc.expectedChecks {
				if !strings.Contains(output, check) {
					t.Errorf("expected output to contain %q, but it did not.\nOutput:\n%s", check, output)
				}
			}

			for _, check := range tc.forbidden {
				if strings.Contains(output, check) {
					t.Errorf("expected output not to contain %q.\nOutput:\n%s", check, output)
				}
			}
		})
	}
}

func TestDownloadItemHeight(t *testing.T) {
	info := &progress.Info{
		RequestID:       "a",
		Status:          status.Failed,
		DownloadedBytes: 10,
		TotalBytes:      progress.Int64(100),
		ErrorMessage:    strings.Repeat("very long error message ", 20),
	}

	for _, selected := range []bool{false, true} {
		output := components.DownloadItem(info, 60, selected)
		if got := strings.Count(output, "\n") + 1; got != components.ItemHeight {
			t.Errorf("selected=%v: expected %d rows, got %d\n%s", selected, components.ItemHeight, got, output)
		}
	}
}
