package ui

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

// taskDoneMsg tells the spinner that the background task returned.
type taskDoneMsg struct{}

// busyModel shows a spinner next to a status line until the task is done
// or the user gives up.
type busyModel struct {
	spin      spinner.Model
	status    string
	cancelled bool
	done      bool
}

func newBusyModel(status string) busyModel {
	return busyModel{
		spin:   spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(spinnerStyle)),
		status: status,
	}
}

func (m busyModel) Init() tea.Cmd { return m.spin.Tick }

func (m busyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		// raw mode delivers ctrl+c as a key
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.spin, cmd = m.spin.Update(msg)
	return m, cmd
}

func (m busyModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return m.spin.View() + " " + m.status
}

// RunWithSpinner runs fn while a spinner shows text on stderr. Pressing
// ctrl+c or esc cancels the context passed to fn; RunWithSpinner always
// waits for fn to return. Without a terminal fn runs without a spinner.
func RunWithSpinner(ctx context.Context, text string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return fn(ctx)
	}

	p := tea.NewProgram(newBusyModel(text), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	result := make(chan error, 1)
	go func() {
		result <- fn(ctx)
		p.Send(taskDoneMsg{})
	}()

	_, _ = p.Run()
	cancel()
	return <-result
}
