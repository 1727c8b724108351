package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// Option is a selectable value with a display label.
type Option struct {
	Label string
	Value string
}

// ReadSelection prompts the user to select one of options using huh.
func ReadSelection(options []Option, title string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options provided")
	}

	var selected string

	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt.Label, opt.Value)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(huhOptions...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

// ReadInput prompts for a single line. secret hides the typed value.
// An empty answer keeps current.
func ReadInput(title, current string, secret bool) (string, error) {
	value := ""
	input := huh.NewInput().
		Title(title).
		Value(&value)
	if secret {
		input = input.EchoMode(huh.EchoModePassword)
		if current != "" {
			input = input.Placeholder("leave empty to keep the current value")
		}
	} else {
		input = input.Placeholder(current)
	}

	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", err
	}
	if value == "" {
		return current, nil
	}
	return value, nil
}

// Confirm asks a yes/no question.
func Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Value(&ok),
	)).Run()
	return ok, err
}
