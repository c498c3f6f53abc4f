package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cbr9/organizer/internal/journal"
	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/storage"
)

// registryUndoContext adapts a storage.Registry into the minimal surface
// plugin.UndoOperation needs, carrying the conflict policy the operator
// chose for this undo run.
type registryUndoContext struct {
	registry *storage.Registry
	policy   plugin.ConflictPolicy
}

func (u registryUndoContext) Provider(host string) (plugin.StorageProvider, error) {
	return u.registry.Get(host)
}

func (u registryUndoContext) OnConflict() plugin.ConflictPolicy { return u.policy }

// UndoCommand returns the undo command, replaying a session's recorded
// transactions in reverse.
func UndoCommand() *cli.Command {
	return &cli.Command{
		Name:  "undo",
		Usage: "Reverse a previous run's mutations",
		Flags: append(sourceFlags(),
			&cli.Int64Flag{
				Name:  "session",
				Usage: "Session id to undo (default: the most recent session)",
			},
			&cli.StringFlag{
				Name:  "on-conflict",
				Usage: "What to do when a transaction cannot be undone: abort stops the undo run; rename and skip both leave it pending and continue (no path is renamed)",
				Value: "abort",
			},
		),
		Action: undoAction,
	}
}

func undoAction(c *cli.Context) error {
	policy, err := parseConflictPolicy(c.String("on-conflict"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	reg, closeStorage, err := buildStorage(c, false)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closeStorage()

	j, err := openJournal(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer j.Close()

	ctx := context.Background()
	sessionID := c.Int64("session")
	if sessionID == 0 {
		sessionID, err = j.GetLastSessionID(ctx)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	txs, err := j.GetPendingTransactionsForSession(ctx, sessionID)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(txs) == 0 {
		fmt.Printf("session %d: nothing to undo\n", sessionID)
		return nil
	}

	undoCtx := registryUndoContext{registry: reg, policy: policy}

	failed := 0
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if err := undoTransaction(ctx, j, undoCtx, tx); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "transaction %d (%s/%s): %v\n", tx.ID, tx.RuleName, tx.ActionTag, err)
			if policy == plugin.ConflictAbort {
				return cli.Exit(fmt.Sprintf("undo aborted after transaction %d", tx.ID), 1)
			}
		}
	}

	fmt.Printf("session %d: undid %d/%d transaction(s)\n", sessionID, len(txs)-failed, len(txs))
	if failed > 0 {
		return cli.Exit("some transactions could not be undone", 1)
	}
	return nil
}

// undoTransaction replays every undo operation in tx's receipt, in
// reverse order (an action with more than one undo operation recorded
// them in application order). Every operation is verified before any is
// undone: if one no longer verifies, the transaction is left untouched and
// the verify error is returned.
func undoTransaction(ctx context.Context, j *journal.Journal, undoCtx plugin.UndoContext, tx *journal.Transaction) error {
	ops := tx.Receipt.Undo
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if err := op.Verify(undoCtx); err != nil {
			return fmt.Errorf("verify %s: %w", op.Tag(), err)
		}
	}
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if err := op.Undo(undoCtx); err != nil {
			return fmt.Errorf("undo %s: %w", op.Tag(), err)
		}
	}
	return j.UpdateTransactionUndoStatus(ctx, tx.ID, journal.UndoDone)
}

func parseConflictPolicy(s string) (plugin.ConflictPolicy, error) {
	switch s {
	case "abort":
		return plugin.ConflictAbort, nil
	case "rename":
		return plugin.ConflictRename, nil
	case "skip":
		return plugin.ConflictSkip, nil
	default:
		return 0, fmt.Errorf("unknown --on-conflict value %q (want abort, rename, or skip)", s)
	}
}
