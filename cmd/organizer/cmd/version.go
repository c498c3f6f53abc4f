package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// VersionCommand reports the organizer version and build commit.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("organizer %s (commit: %s)\n", Version, commit)
			return nil
		},
	}
}
