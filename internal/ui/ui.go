// Package ui renders faucetctl output with lipgloss.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	ColorSuccess = lipgloss.Color("#00D26A")
	ColorWarning = lipgloss.Color("#FFB800")
	ColorError   = lipgloss.Color("#FF4444")
	ColorAccount = lipgloss.Color("#00B4D8")
	ColorValue   = lipgloss.Color("#FFFFFF")
	ColorMeta    = lipgloss.Color("#555555")
	ColorBorder  = lipgloss.Color("#1E3A5F")
	ColorTitle   = lipgloss.Color("#9B5DE5")
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAccount = lipgloss.NewStyle().Foreground(ColorAccount)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorTitle).
			Bold(true).
			MarginBottom(1)

	styleHeader = lipgloss.NewStyle().Foreground(ColorTitle).Bold(true)
)

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Account formats an account id.
func Account(a string) string { return StyleAccount.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// KeyValueBlock renders key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-22s", p[0]+":"))
		sb.WriteString("  " + key + " " + p[1] + "\n")
	}
	return StyleBorder.Render(sb.String())
}

// Table renders rows under headers. Column widths fit the widest cell.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := range headers {
			if i < len(row) && len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	pad := func(s string, width int) string {
		return s + strings.Repeat(" ", width-len(s))
	}

	var sb strings.Builder
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = styleHeader.Render(pad(h, widths[i]))
	}
	sb.WriteString(strings.Join(cells, "  ") + "\n")

	for i := range headers {
		cells[i] = StyleMeta.Render(strings.Repeat("-", widths[i]))
	}
	sb.WriteString(strings.Join(cells, "  ") + "\n")

	for _, row := range rows {
		for i := range headers {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			cells[i] = pad(val, widths[i])
		}
		sb.WriteString(strings.Join(cells, "  ") + "\n")
	}
	return sb.String()
}
