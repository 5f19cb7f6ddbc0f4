package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/okvist/sessync/internal/syncer"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	labelStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	costStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	errStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	okStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(44).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderSummary renders the result block of a bulk sync run.
func RenderSummary(sum syncer.Summary) string {
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			labelStyle.Render(fmt.Sprintf("%-18s", label)),
			value,
		))
	}

	b.WriteString("\n")
	row("Sessions found", valueStyle.Render(FormatCount(sum.SessionsTotal)))
	row("Synced", okStyle.Render(FormatCount(sum.SessionsSynced)))
	if sum.SessionsSkipped > 0 {
		row("Skipped", mutedStyle.Render(FormatCount(sum.SessionsSkipped)))
	}
	if sum.SessionsFailed > 0 {
		row("Failed", errStyle.Render(FormatCount(sum.SessionsFailed)))
	}
	row("Messages", valueStyle.Render(FormatCount(sum.MessagesSynced)))
	row("Total cost", costStyle.Render(FormatCost(sum.CostUSD)))

	return b.String()
}

// RenderProgress renders a single-line text progress bar for in-place
// updates during a bulk run.
func RenderProgress(done, total, width int) string {
	if total <= 0 {
		return ""
	}

	pct := float64(done) / float64(total)
	if pct > 1 {
		pct = 1
	}

	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("\r[%s] %d/%d", mutedStyle.Render(bar), done, total)
}

// RenderStatusLine renders one aligned key/value line for the status command.
func RenderStatusLine(label, value string) string {
	return fmt.Sprintf("  %s %s",
		labelStyle.Render(fmt.Sprintf("%-18s", label)),
		valueStyle.Render(value),
	)
}

// Warn renders a warning line.
func Warn(msg string) string {
	return warnStyle.Render("! ") + msg
}
