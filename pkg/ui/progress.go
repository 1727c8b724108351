package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressModel shows a spinner, a bar and a counter while a batch of
// items (imported files, backed up forms) is processed.
type ProgressModel struct {
	total     int
	processed int
	failed    int
	label     string
	spinner   spinner.Model
	progress  progress.Model
	done      bool
	lastLog   string
}

// ItemDoneMsg reports one finished item. A non-nil Err counts as a failure.
type ItemDoneMsg struct {
	Name string
	Err  error
}

// NewProgressProgram creates a tea.Program tracking total items.
func NewProgressProgram(total int, label string, opts ...tea.ProgramOption) *tea.Program {
	return tea.NewProgram(NewProgressModel(total, label), opts...)
}

func NewProgressModel(total int, label string) ProgressModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(20),
		progress.WithoutPercentage(),
	)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")) // Purple

	return ProgressModel{
		total:    total,
		label:    label,
		spinner:  s,
		progress: p,
		done:     total == 0,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) View() string {
	if m.done {
		check := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).SetString("✓")
		text := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		summary := fmt.Sprintf("%s (%d of %d done)", m.label, m.processed-m.failed, m.total)
		if m.failed > 0 {
			check = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).SetString("✕")
			summary += fmt.Sprintf(", %d failed", m.failed)
		}
		view := fmt.Sprintf("%s %s\n", check, text.Render(summary))
		if m.lastLog != "" && m.failed > 0 {
			view += "  " + lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(m.lastLog) + "\n"
		}
		return view
	}

	countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	count := countStyle.Render(fmt.Sprintf("( %d/%d )", m.processed, m.total))
	view := fmt.Sprintf("%s %s %s %s", m.spinner.View(), m.label, m.progress.View(), count)

	if m.lastLog != "" {
		logStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
		line := m.lastLog
		if len(line) > 80 {
			line = line[:77] + "..."
		}
		view += "\n  " + logStyle.Render(line)
	}
	return view
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ItemDoneMsg:
		m.processed++
		if msg.Err != nil {
			m.failed++
			m.lastLog = fmt.Sprintf("%s: %v", msg.Name, msg.Err)
		} else {
			m.lastLog = msg.Name
		}
		if m.processed >= m.total {
			m.done = true
			return m, tea.Quit
		}
		return m, m.progress.SetPercent(float64(m.processed) / float64(m.total))

	// Required for the progress bar animation
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// Processed returns how many items finished and how many of them failed.
func (m ProgressModel) Processed() (done, failed int) {
	return m.processed, m.failed
}
