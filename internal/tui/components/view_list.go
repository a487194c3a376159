package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/tui/styles"
)

// ItemHeight is the number of rows DownloadItem renders.
const ItemHeight = 3

// RenderDownloadList renders as many downloads as fit in height, keeping the
// selected one roughly centered.
func RenderDownloadList(downloads []*progress.Info, selected int, width, height int) string {
	if len(downloads) == 0 {
		return renderEmptyView(width, height)
	}

	if height <= 0 {
		return lipgloss.NewStyle().Width(width).Height(height).Render("")
	}

	visibleCount := height / ItemHeight
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := selected - (visibleCount / 2)
	if start < 0 {
		start = 0
	}

	end := start + visibleCount
	if end > len(downloads) {
		end = len(downloads)
		start = end - visibleCount
		if start < 0 {
			start = 0
		}
	}

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, DownloadItem(downloads[i], width, i == selected))
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, rows...)

	return lipgloss.NewStyle().Width(width).Height(height).Render(listContent)
}

func renderEmptyView(width, height int) string {
	colors := []lipgloss.Color{
		styles.Blue, styles.Mauve, styles.Red, styles.Peach,
		styles.Yellow, styles.Green, styles.Teal,
	}

	var title string
	for i, r := range "dltrack" {
		title += lipgloss.NewStyle().Bold(true).Foreground(colors[i%len(colors)]).Render(string(r))
	}

	subtitle := lipgloss.NewStyle().Foreground(styles.Text).Italic(true).Render("Download progress tracker")
	instruction := lipgloss.NewStyle().Foreground(styles.Subtext0).Render("Waiting for downloads, press 'q' to quit")
	content := lipgloss.JoinVertical(lipgloss.Center, title, "", subtitle, "", instruction)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
