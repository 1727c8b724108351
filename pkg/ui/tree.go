package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/schardosin/formstudio/pkg/form"
)

var (
	colorLayout = lipgloss.Color("63")  // Blueish
	colorField  = lipgloss.Color("86")  // Cyan
	colorStatic = lipgloss.Color("214") // Orange
	colorMuted  = lipgloss.Color("240")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(colorLayout).
			Padding(0, 1)

	layoutStyle = lipgloss.NewStyle().Foreground(colorLayout).Bold(true)
	fieldStyle  = lipgloss.NewStyle().Foreground(colorField)
	staticStyle = lipgloss.NewStyle().Foreground(colorStatic)
	idStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Italic(true)
)

// RenderTree renders the component tree as an outline under title, one
// line per component: type, id and label.
func RenderTree(title string, t form.Tree) string {
	root := tree.Root(titleStyle.Render(fmt.Sprintf("%s (%d components)", title, t.Count()))).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(idStyle)
	for _, n := range t.Nodes() {
		root.Child(outline(n))
	}
	return root.String()
}

func outline(n *form.Component) any {
	line := describeNode(n)
	if len(n.Children) == 0 {
		return line
	}
	sub := tree.Root(line).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(idStyle)
	for _, c := range n.Children {
		sub.Child(outline(c))
	}
	return sub
}

func describeNode(n *form.Component) string {
	var style lipgloss.Style
	switch {
	case n.Type.IsLayout():
		style = layoutStyle
	case isStatic(n.Type):
		style = staticStyle
	default:
		style = fieldStyle
	}

	parts := []string{style.Render(string(n.Type)), idStyle.Render(n.ID)}
	if label := n.Label(); label != "" {
		parts = append(parts, labelStyle.Render(fmt.Sprintf("%q", label)))
	}
	for _, r := range n.Validation {
		if r.Type == "required" {
			parts = append(parts, staticStyle.Render("*"))
			break
		}
	}
	return strings.Join(parts, " ")
}

func isStatic(t form.ComponentType) bool {
	switch t {
	case form.TypeHeading, form.TypeParagraph, form.TypeDivider, form.TypePicture, form.TypeButton:
		return true
	}
	return false
}
