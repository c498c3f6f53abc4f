// Package main provides the organizer CLI entrypoint.
//
// run and undo are the commands that mutate the filesystem; every other
// command only reads the journal or inspects configuration.
//
// Usage:
//
//	organizer <command> [options]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cbr9/organizer/cmd/organizer/cmd"

	// Blank imports trigger each plugin package's init(), registering its
	// filter/sorter/partitioner/selector/action builders and undo-operation
	// decoders with the global plugin registry.
	_ "github.com/cbr9/organizer/internal/plugins/actions"
	_ "github.com/cbr9/organizer/internal/plugins/filters"
	_ "github.com/cbr9/organizer/internal/plugins/partitioners"
	_ "github.com/cbr9/organizer/internal/plugins/selectors"
	_ "github.com/cbr9/organizer/internal/plugins/sorters"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "organizer",
		Usage:          "Declarative, rule-driven file organization",
		Version:        fmt.Sprintf("%s (commit: %s)", cmd.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.RunCommand(),
			cmd.UndoCommand(),
			cmd.SessionsCommand(),
			cmd.ShowCommand(),
			cmd.LogsCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler preserves the exit code carried by a cli.ExitCoder
// (run returns one so a failed rule exits non-zero), and otherwise prints
// the error and exits 1.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
