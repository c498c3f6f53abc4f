// Package ui defines the interface the engine uses for all operator-facing
// output and input. Two implementations are provided: plain (stdout/stdin,
// used for non-interactive runs and piped output) and tui (a Bubble Tea
// progress view, opt-in only).
package ui

// Level classifies a status message.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Progress reports one pipeline's live counters.
type Progress struct {
	RuleName   string
	Stage      string
	Processed  int
	Total      int // 0 when unknown (streaming discovery)
	Skipped    int
	Errored    int
}

// Interface is the engine's UI port. Every method must be safe to call
// from multiple worker goroutines concurrently.
type Interface interface {
	Message(level Level, format string, args ...any)
	Progress(p Progress)

	// Prompt performs a synchronous read of one line of input, backing
	// the `input(prompt)` template function.
	Prompt(prompt string) (string, error)
	// Confirm asks a yes/no question, backing an interactive action
	// (e.g. a delete confirmation) that isn't expressible as a template.
	Confirm(prompt string) (bool, error)
	// Select offers the user a fixed list of choices and returns the
	// chosen index.
	Select(prompt string, options []string) (int, error)

	// Close flushes any buffered output and releases terminal state.
	Close() error
}
