package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/cbr9/organizer/internal/journal"
)

// ShowCommand prints one session's recorded transactions.
func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a session's recorded transactions",
		ArgsUsage: "<session-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "journal",
				Usage: "Path to the journal database (default: the OS config directory)",
			},
		},
		Action: showAction,
	}
}

func showAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("show requires exactly one session id", 1)
	}
	sessionID, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return cli.Exit("invalid session id: "+c.Args().First(), 1)
	}

	j, err := openJournal(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer j.Close()

	ctx := context.Background()
	session, err := j.GetSession(ctx, sessionID)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	txs, err := j.GetTransactionsForSession(ctx, sessionID)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("session %d: %s, started %s\n", session.ID, session.Status, session.StartTime.Format("2006-01-02T15:04:05"))
	if len(txs) == 0 {
		fmt.Println("  no transactions recorded")
		return nil
	}

	for _, tx := range txs {
		fmt.Printf("  [%d] %-6s rule=%-20s action=%-10s next=%v undo=%s\n",
			tx.ID, tx.Timestamp.Format("15:04:05"), tx.RuleName, tx.ActionTag, nextPaths(tx), tx.UndoStatus)
	}
	return nil
}

// nextPaths extracts the paths a transaction's receipt carried forward,
// for a compact one-line summary.
func nextPaths(tx *journal.Transaction) []string {
	if tx.Receipt == nil {
		return nil
	}
	paths := make([]string, 0, len(tx.Receipt.Next))
	for _, res := range tx.Receipt.Next {
		paths = append(paths, res.Path())
	}
	return paths
}
