// Package cmd provides the CLI commands for the organizer binary.
package cmd

import "github.com/urfave/cli/v2"

// Version is the organizer release version, reported by `organizer version`
// and embedded in every journal session's config snapshot.
const Version = "0.1.0"

// sourceFlags are the flags every command needs to locate a rule's
// dependencies: the rules directory, the optional connections file, and
// the journal database.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "rules-dir",
			Usage: "Directory of rule TOML files",
			Value: "./rules",
		},
		&cli.StringFlag{
			Name:  "connections",
			Usage: "Path to connections.toml (default: the OS config directory)",
		},
		&cli.StringFlag{
			Name:  "journal",
			Usage: "Path to the journal database (default: the OS config directory)",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Use the interactive progress view instead of plain text",
		},
	}
}
