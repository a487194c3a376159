package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/status"
	"github.com/NamanBalaji/dltrack/internal/tui/styles"
)

const maxNameLen = 30

// StatusLabel renders a status with its icon and color.
func StatusLabel(s status.Status) string {
	switch s {
	case status.Pending:
		return styles.StatusPending.Render("○ pending")
	case status.Queued:
		return styles.StatusPending.Render("○ queued")
	case status.FetchingInfo:
		return styles.StatusFetching.Render("… fetching info")
	case status.Downloading:
		return styles.StatusDownloading.Render("● downloading")
	case status.Processing:
		return styles.StatusProcessing.Render("⚙ processing")
	case status.Paused:
		return styles.StatusPaused.Render("❚❚ paused")
	case status.Completed:
		return styles.StatusCompleted.Render("✔ completed")
	case status.Cancelled:
		return styles.StatusCancelled.Render("⊘ cancelled")
	case status.Failed:
		return styles.StatusFailed.Render("✖ failed")
	default:
		return styles.StatusFailed.Render("unknown")
	}
}

// DownloadItem renders one tracked download in three lines: name, status and
// percentage; a progress bar; sizes, speed and ETA.
func DownloadItem(info *progress.Info, width int, selected bool) string {
	name := info.Filename
	if name == "" {
		name = info.RequestID
	}

	name = truncate(name, maxNameLen)

	fraction, known := info.ComputedPercentage()
	fraction /= 100

	if info.Status == status.Completed {
		fraction, known = 1, true
	}

	percent := "--"
	if known {
		percent = fmt.Sprintf("%.1f%%", fraction*100)
	}

	statusLabel := StatusLabel(info.Status)
	formattedPercent := lipgloss.NewStyle().Width(10).Align(lipgloss.Right).Render(percent)

	remainingSpace := width - maxNameLen - lipgloss.Width(statusLabel) - lipgloss.Width(formattedPercent) - 3
	if remainingSpace < 2 {
		remainingSpace = 2
	}

	line1 := fmt.Sprintf("%-*s %s%s%s",
		maxNameLen,
		name,
		statusLabel,
		strings.Repeat(" ", remainingSpace),
		formattedPercent)

	// Item padding takes two columns on each side of the bar and details.
	barWidth := width - 4
	if barWidth < 10 {
		barWidth = 10
	}

	line2 := ProgressBar(barWidth, fraction, info.Status)
	line3 := lipgloss.NewStyle().Faint(true).Render(truncate(details(info), barWidth))

	item := lipgloss.JoinVertical(lipgloss.Left, line1, line2, line3)
	if selected {
		return styles.SelectedItemStyle.Width(width).Render(item)
	}

	return styles.ListItemStyle.Width(width).Render(item)
}

func details(info *progress.Info) string {
	downloaded := info.DownloadedBytes

	totalText := "Unknown"
	if total, ok := info.ExpectedBytes(); ok {
		totalText = progress.FormatSize(total)
		if info.TotalBytes == nil {
			totalText = "~" + totalText
		}

		if info.Status == status.Completed {
			downloaded = total
		}
	}

	speed := "--/s"
	if info.Status == status.Downloading {
		speed = progress.FormatSpeed(info.Speed)
	}

	eta := "--"
	switch {
	case info.Status == status.Downloading && info.ETA != nil:
		eta = progress.FormatETA(info.ETA)
	case info.Status == status.Completed:
		eta = "Done"
	}

	parts := []string{
		fmt.Sprintf("%s / %s", progress.FormatSize(downloaded), totalText),
		speed,
		"ETA: " + eta,
	}

	if info.FragmentIndex != nil && info.FragmentCount != nil {
		parts = append(parts, fmt.Sprintf("frag %d/%d", *info.FragmentIndex, *info.FragmentCount))
	}

	switch {
	case info.Status == status.Failed && info.ErrorMessage != "":
		parts = append(parts, info.ErrorMessage)
	case info.CurrentOperation != "":
		parts = append(parts, info.CurrentOperation)
	}

	return strings.Join(parts, "  ")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if limit < 4 || len(r) <= limit {
		return s
	}

	return string(r[:limit-3]) + "..."
}
