package ui

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const maxWrap = 100

// SmartRender renders assistant replies as terminal markdown. A reply that
// is a bare JSON document is shown as a highlighted code block; rendering
// failures fall back to the input.
func SmartRender(input string) string {
	text := strings.TrimSpace(input)
	if text == "" {
		return ""
	}
	if json.Valid([]byte(text)) && (text[0] == '{' || text[0] == '[') {
		text = "```json\n" + text + "\n```"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth()),
	)
	if err != nil {
		return input
	}
	out, err := r.Render(text)
	if err != nil {
		return input
	}
	return out
}

// wrapWidth is the terminal width capped at maxWrap, or maxWrap when
// stdout is not a terminal.
func wrapWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || w > maxWrap {
		return maxWrap
	}
	return w
}
