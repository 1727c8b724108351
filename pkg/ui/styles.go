package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderCard renders a titled box of key/value lines, in the order given.
// Empty values are skipped.
func RenderCard(title string, fields [][2]string) string {
	boxStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")). // Purple border
		Padding(0, 2).
		Width(60)

	cardTitleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("86")). // Cyan
		Bold(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")) // Gray

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")) // White

	var content strings.Builder
	content.WriteString(cardTitleStyle.Render(title))

	written := false
	for _, kv := range fields {
		if kv[1] == "" {
			continue
		}
		if !written {
			content.WriteString("\n")
			written = true
		}
		val := kv[1]
		if len(val) > 200 {
			val = val[:197] + "..."
		}
		content.WriteString(fmt.Sprintf("\n%s: %s", keyStyle.Render(kv[0]), valueStyle.Render(val)))
	}

	return boxStyle.Render(content.String()) + "\n"
}
