package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbr9/organizer/internal/ui"
)

// progressMsg carries one ui.Progress update into the Bubble Tea event
// loop via tea.Program.Send.
type progressMsg ui.Progress

// logMsg carries one ui.Message call into the event loop.
type logMsg struct {
	level ui.Level
	text  string
}

type model struct {
	bar      progress.Model
	current  ui.Progress
	log      []logMsg
	quitting bool
}

func newModel() model {
	return model{bar: progress.New(progress.WithDefaultGradient())}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		return m, nil

	case progressMsg:
		m.current = ui.Progress(msg)
		if m.current.Total > 0 {
			cmd := m.bar.SetPercent(float64(m.current.Processed) / float64(m.current.Total))
			return m, cmd
		}
		return m, nil

	case logMsg:
		m.log = append(m.log, msg)
		if len(m.log) > 8 {
			m.log = m.log[len(m.log)-8:]
		}
		return m, nil

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}

	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// doneMsg signals the run completed and the program should exit.
type doneMsg struct{}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	header := TitleStyle.Render(fmt.Sprintf("%s — %s", m.current.RuleName, m.current.Stage))
	body := header + "\n" + m.bar.View() + "\n"
	body += fmt.Sprintf("%s %d  %s %d  %s %d\n",
		LabelStyle.Render("processed"), m.current.Processed,
		LabelStyle.Render("skipped"), m.current.Skipped,
		LabelStyle.Render("errored"), m.current.Errored,
	)
	for _, l := range m.log {
		style := ValueStyle
		switch l.level {
		case ui.LevelSuccess:
			style = SuccessStyle
		case ui.LevelWarning:
			style = WarningStyle
		case ui.LevelError:
			style = ErrorStyle
		}
		body += style.Render(l.text) + "\n"
	}
	return body + HelpStyle.Render("press q to quit")
}
