// Package plain implements ui.Interface for non-tty runs: a line-oriented
// writer to stdout and a bufio.Scanner over stdin, used whenever --tui is
// not requested; there is no terminal detection.
package plain

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cbr9/organizer/internal/ui"
	"github.com/cbr9/organizer/internal/xerrors"
)

// UI is the plain-text ui.Interface implementation.
type UI struct {
	mu  sync.Mutex
	out io.Writer
	in  *bufio.Scanner
}

// New returns a UI writing to out and reading prompts from in.
func New(out io.Writer, in io.Reader) *UI {
	return &UI{out: out, in: bufio.NewScanner(in)}
}

// NewStdio returns a UI wired to the process's stdout/stdin.
func NewStdio() *UI {
	return New(os.Stdout, os.Stdin)
}

func prefix(level ui.Level) string {
	switch level {
	case ui.LevelSuccess:
		return "ok"
	case ui.LevelWarning:
		return "warn"
	case ui.LevelError:
		return "error"
	default:
		return "info"
	}
}

func (u *UI) Message(level ui.Level, format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, "[%s] %s\n", prefix(level), fmt.Sprintf(format, args...))
}

func (u *UI) Progress(p ui.Progress) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if p.Total > 0 {
		fmt.Fprintf(u.out, "%s: %s %d/%d (skipped=%d errored=%d)\n",
			p.RuleName, p.Stage, p.Processed, p.Total, p.Skipped, p.Errored)
		return
	}
	fmt.Fprintf(u.out, "%s: %s %d processed (skipped=%d errored=%d)\n",
		p.RuleName, p.Stage, p.Processed, p.Skipped, p.Errored)
}

func (u *UI) Prompt(prompt string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, "%s: ", prompt)
	if !u.in.Scan() {
		if err := u.in.Err(); err != nil {
			return "", xerrors.Interactionf("prompt read failed", err)
		}
		return "", xerrors.Interactionf("prompt read failed", io.EOF)
	}
	return strings.TrimRight(u.in.Text(), "\r\n"), nil
}

func (u *UI) Confirm(prompt string) (bool, error) {
	answer, err := u.Prompt(prompt + " [y/N]")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func (u *UI) Select(prompt string, options []string) (int, error) {
	u.mu.Lock()
	fmt.Fprintf(u.out, "%s\n", prompt)
	for i, o := range options {
		fmt.Fprintf(u.out, "  %d) %s\n", i+1, o)
	}
	u.mu.Unlock()

	for {
		answer, err := u.Prompt("choice")
		if err != nil {
			return 0, err
		}
		var idx int
		if _, err := fmt.Sscanf(answer, "%d", &idx); err == nil && idx >= 1 && idx <= len(options) {
			return idx - 1, nil
		}
		u.Message(ui.LevelWarning, "invalid choice %q", answer)
	}
}

func (u *UI) Close() error { return nil }

var _ ui.Interface = (*UI)(nil)
