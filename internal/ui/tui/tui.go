package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbr9/organizer/internal/ui"
	"github.com/cbr9/organizer/internal/ui/plain"
)

// UI runs a Bubble Tea progress view in the background and delegates
// prompts/confirmations to a plain fallback after releasing the terminal,
// since a prompt needs a normal line-editing readline, not an alt-screen
// render loop.
type UI struct {
	program  *tea.Program
	fallback *plain.UI
	done     chan struct{}
}

// New starts the Bubble Tea program in its own goroutine and returns
// immediately; Progress/Message calls feed it via Program.Send.
func New() *UI {
	p := tea.NewProgram(newModel(), tea.WithAltScreen())
	u := &UI{program: p, fallback: plain.NewStdio(), done: make(chan struct{})}
	go func() {
		defer close(u.done)
		_, _ = p.Run()
	}()
	return u
}

func (u *UI) Message(level ui.Level, format string, args ...any) {
	u.program.Send(logMsg{level: level, text: fmt.Sprintf(format, args...)})
}

func (u *UI) Progress(p ui.Progress) {
	u.program.Send(progressMsg(p))
}

// withTerminal releases the alt-screen program's hold on the terminal for
// the duration of fn, restoring it afterward — used for any prompt, which
// needs ordinary line input.
func (u *UI) withTerminal(fn func() error) error {
	u.program.ReleaseTerminal()
	defer u.program.RestoreTerminal()
	return fn()
}

func (u *UI) Prompt(prompt string) (string, error) {
	var out string
	err := u.withTerminal(func() error {
		var err error
		out, err = u.fallback.Prompt(prompt)
		return err
	})
	return out, err
}

func (u *UI) Confirm(prompt string) (bool, error) {
	var out bool
	err := u.withTerminal(func() error {
		var err error
		out, err = u.fallback.Confirm(prompt)
		return err
	})
	return out, err
}

func (u *UI) Select(prompt string, options []string) (int, error) {
	var out int
	err := u.withTerminal(func() error {
		var err error
		out, err = u.fallback.Select(prompt, options)
		return err
	})
	return out, err
}

func (u *UI) Close() error {
	u.program.Send(doneMsg{})
	<-u.done
	return nil
}

var _ ui.Interface = (*UI)(nil)
