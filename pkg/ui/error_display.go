package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/schardosin/formstudio/pkg/ferrors"
)

var (
	// --- COLORS ---
	colorRed    = lipgloss.Color("196")
	colorOrange = lipgloss.Color("#FFA500")
	colorYellow = lipgloss.Color("226")
	colorWhite  = lipgloss.Color("252")
	colorGrey   = lipgloss.Color("240")

	// --- STYLES ---

	// 1. Retry Badge
	retryBadgeStyle = lipgloss.NewStyle().
			Foreground(colorOrange).
			Bold(true)

	retryMessageStyle = lipgloss.NewStyle().
			Foreground(colorGrey).
			PaddingLeft(1)

	// 2. Error Components
	headerStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	// Indentation wrapper
	indentStyle = lipgloss.NewStyle().
			PaddingLeft(3)

	// Section Text Styles
	reasonTextStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	suggestionTitleStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	suggestionTextStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	rawErrorTitleStyle = lipgloss.NewStyle().
			Foreground(colorGrey).
			Bold(true)

	rawErrorTextStyle = lipgloss.NewStyle().
			Foreground(colorGrey)
)

// RenderRetryBadge renders a one-line retry notice.
func RenderRetryBadge(attempt, maxRetries int, oneLiner string) string {
	badge := retryBadgeStyle.Render(fmt.Sprintf("⟳ Retry %d/%d:", attempt, maxRetries))
	message := retryMessageStyle.Render(oneLiner)
	return lipgloss.JoinHorizontal(lipgloss.Left, badge, message)
}

// RenderErrorBox renders an indented error block wrapped to the terminal
// width. Empty sections are left out.
func RenderErrorBox(title, reason, suggestion, details string) string {
	// indent of 3 plus a margin of 2
	width := wrapWidth() - 5

	var sections []string
	section := func(heading lipgloss.Style, name string, body lipgloss.Style, text string) {
		if text == "" {
			return
		}
		if len(sections) > 0 {
			sections = append(sections, "")
		}
		if name != "" {
			sections = append(sections, heading.Render(name))
		}
		sections = append(sections, body.Width(width).Render(strings.TrimSpace(text)))
	}
	section(lipgloss.Style{}, "", reasonTextStyle, reason)
	section(suggestionTitleStyle, "Suggestion:", suggestionTextStyle, suggestion)
	section(rawErrorTitleStyle, "Details:", rawErrorTextStyle, details)

	header := indentStyle.Render(headerStyle.Render("✕ " + title))
	body := indentStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return fmt.Sprintf("\n%s\n%s\n", header, body)
}

// RenderError renders err as an error box. Coded errors get a title and
// a suggestion for their code; the raw error is only shown for failures the
// user cannot act on.
func RenderError(err error) string {
	code := ferrors.GetCode(err)
	title, suggestion := describe(code)
	raw := ""
	if code == "" || code == ferrors.CodeInternal {
		raw = err.Error()
	}
	return RenderErrorBox(title, ferrors.UserMessage(err), suggestion, raw)
}

func describe(code ferrors.Code) (title, suggestion string) {
	switch code {
	case ferrors.CodeNotFound:
		return "Not Found", "Run 'formstudio forms list' to see the saved forms."
	case ferrors.CodeInvalidTarget:
		return "Drop Rejected", "The target does not exist or cannot hold children. The form was not changed."
	case ferrors.CodeUnsupportedNesting:
		return "Nesting Not Supported", "Place the component next to the row instead, or enable builder.allow_nested_rows."
	case ferrors.CodeNetwork:
		return "Connection Failed", "Check that the studio is running ('formstudio studio') and the provider settings are correct."
	case ferrors.CodeParse:
		return "Invalid Document", "The file must be a form schema with a components list, in JSON or YAML."
	case ferrors.CodeAborted:
		return "Cancelled", ""
	case ferrors.CodeInvalidInput:
		return "Invalid Input", ""
	}
	return "Unexpected Error", ""
}
