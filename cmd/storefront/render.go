// ABOUTME: Terminal rendering helpers for tables and markdown receipts
// ABOUTME: Styles follow the stored light/dark theme preference

package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/2389/storefront/internal/theme"
)

// palette returns the accent and muted colors for mode.
func palette(mode theme.Mode) (accent, muted lipgloss.Color) {
	if mode == theme.Dark {
		return lipgloss.Color("#7DCFFF"), lipgloss.Color("#565F89")
	}
	return lipgloss.Color("#1D4ED8"), lipgloss.Color("#6B7280")
}

// printTable writes rows under headers with the theme's border and header colors.
func printTable(w io.Writer, mode theme.Mode, headers []string, rows [][]string) {
	accent, muted := palette(mode)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(muted)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintln(w, t.Render())
}

// renderMarkdown renders md for the terminal in the theme's glamour style.
// If the renderer cannot be built the markdown is returned unchanged.
func renderMarkdown(mode theme.Mode, md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(string(mode)),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
