package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/dltrack/internal/status"
	"github.com/NamanBalaji/dltrack/internal/tui/styles"
)

// ProgressBar returns a bar filled to fraction (0..1), colored by status.
func ProgressBar(width int, fraction float64, s status.Status) string {
	if width <= 0 {
		return ""
	}

	if fraction < 0 {
		fraction = 0
	}

	if fraction > 1.0 {
		fraction = 1.0
	}

	filledWidth := int(float64(width) * fraction)
	emptyWidth := width - filledWidth

	filled := lipgloss.NewStyle().Foreground(statusColor(s)).Render(strings.Repeat("█", filledWidth))

	return filled + styles.ProgressBarEmptyStyle.Render(strings.Repeat("░", emptyWidth))
}

func statusColor(s status.Status) lipgloss.Color {
	switch s {
	case status.Downloading:
		return styles.Teal
	case status.FetchingInfo:
		return styles.Blue
	case status.Processing:
		return styles.Sapphire
	case status.Paused:
		return styles.Peach
	case status.Completed:
		return styles.Green
	case status.Cancelled:
		return styles.Mauve
	case status.Failed:
		return styles.Red
	default: // Pending or Queued
		return styles.Yellow
	}
}
