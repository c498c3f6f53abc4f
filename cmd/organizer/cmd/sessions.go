package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

// SessionsCommand lists every recorded run, most recent first.
func SessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List recorded run sessions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "journal",
				Usage: "Path to the journal database (default: the OS config directory)",
			},
		},
		Action: sessionsAction,
	}
}

func sessionsAction(c *cli.Context) error {
	j, err := openJournal(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer j.Close()

	sessions, err := j.ListSessions(context.Background())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}

	fmt.Printf("%-8s %-24s %-10s %s\n", "ID", "START", "STATUS", "END")
	for _, s := range sessions {
		end := "-"
		if s.EndTime != nil {
			end = s.EndTime.Format("2006-01-02T15:04:05")
		}
		fmt.Printf("%-8d %-24s %-10s %s\n", s.ID, s.StartTime.Format("2006-01-02T15:04:05"), s.Status, end)
	}
	return nil
}
