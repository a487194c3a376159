package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/tracker"
)

// plainReporter prints one line per status event and keeps an overall
// progress bar below them. It queries the manager, so it must run behind a
// dispatcher.
type plainReporter struct {
	out   io.Writer
	stats func() tracker.Statistics
	bar   *progressbar.ProgressBar
}

func newPlainReporter(out io.Writer, stats func() tracker.Statistics) *plainReporter {
	bar := progressbar.NewOptions64(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("overall"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	return &plainReporter{
		out:   out,
		stats: stats,
		bar:   bar,
	}
}

func (p *plainReporter) handle(ev tracker.Event) error {
	if line := statusLine(ev); line != "" {
		if err := p.bar.Clear(); err != nil {
			return err
		}

		fmt.Fprintln(p.out, line)
	}

	s := p.stats()
	p.bar.Describe(fmt.Sprintf("%d active, %s", s.ActiveDownloads, progress.FormatSpeed(&s.AverageSpeed)))

	return p.bar.Set64(int64(s.OverallProgress))
}

func (p *plainReporter) finish() {
	_ = p.bar.Finish()
	fmt.Fprintln(p.out)
}

// statusLine describes lifecycle events; other events print nothing.
func statusLine(ev tracker.Event) string {
	info := ev.Progress
	if info == nil {
		info = &progress.Info{RequestID: ev.RequestID}
	}

	label := fmt.Sprintf("%-11s %s", "["+string(ev.Type)+"]", ev.RequestID)

	switch ev.Type {
	case tracker.EventStarted:
		return label
	case tracker.EventCompleted:
		line := label
		if info.Filename != "" {
			line += "  " + info.Filename
		}

		return line + "  " + progress.FormatSize(info.DownloadedBytes)
	case tracker.EventFailed:
		if info.ErrorMessage != "" {
			return label + "  " + info.ErrorMessage
		}

		return label
	case tracker.EventCancelled:
		return label
	default:
		return ""
	}
}

// printStats writes the final session statistics. hostRate is omitted when nil.
func printStats(out io.Writer, s tracker.Statistics, hostRate *float64) {
	eta := "--"
	if s.EstimatedTimeRemaining > 0 {
		eta = progress.FormatDuration(s.EstimatedTimeRemaining)
	}

	fmt.Fprintf(out, "%-10s %d total, %d active, %d completed, %d failed, %d cancelled\n", "Downloads:",
		s.TotalDownloads, s.ActiveDownloads, s.CompletedDownloads, s.FailedDownloads, s.CancelledDownloads)
	fmt.Fprintf(out, "%-10s %s of %s (%.1f%%)\n", "Bytes:",
		progress.FormatSize(s.TotalBytesDownloaded), progress.FormatSize(s.TotalBytesToDownload), s.OverallProgress)
	fmt.Fprintf(out, "%-10s avg %s, peak %s\n", "Speed:",
		progress.FormatSpeed(&s.AverageSpeed), progress.FormatSpeed(&s.PeakSpeed))
	fmt.Fprintf(out, "%-10s %s\n", "ETA:", eta)
	fmt.Fprintf(out, "%-10s %s\n", "Session:", progress.FormatDuration(s.SessionDuration))

	if hostRate != nil {
		fmt.Fprintf(out, "%-10s %s\n", "Host rx:", progress.FormatSpeed(hostRate))
	}
}
