package formstudio

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Version information
const (
	Version = "0.4.0"
	Name    = "Form Studio"
	GitHub  = "https://github.com/schardosin/formstudio"
)

var asciiLogo = `
    ______                        _____ __            ___
   / ____/___  _________ ___     / ___// /___  ______/ (_)___
  / /_  / __ \/ ___/ __ '__ \    \__ \/ __/ / / / __  / / __ \
 / __/ / /_/ / /  / / / / / /   ___/ / /_/ /_/ / /_/ / / /_/ /
/_/    \____/_/  /_/ /_/ /_/   /____/\__/\__,_/\__,_/_/\____/
`

func printVersion(out io.Writer) {
	logoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")). // Pink/Magenta
		Bold(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("63")). // Purple
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")) // White/Grey

	linkStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")). // Blue
		Underline(true)

	fmt.Fprintln(out, logoStyle.Render(asciiLogo))
	fmt.Fprintln(out)

	fmt.Fprintln(out, labelStyle.Render(Name))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Version:"), valueStyle.Render(Version))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("GitHub:"), linkStyle.Render(GitHub))
	fmt.Fprintln(out)
}
