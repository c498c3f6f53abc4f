package pipeline

import (
	"context"

	"github.com/cbr9/organizer/internal/engine"
	"github.com/cbr9/organizer/internal/journal"
	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/xerrors"
)

// recordReceipt persists one action's receipt to the journal, when one is
// configured. A journal write failure is structural: the run's undo
// guarantee would otherwise silently degrade.
func (rt *Runtime) recordReceipt(ctx context.Context, ruleCtx *engine.ExecutionContext, actionTag string, receipt *plugin.Receipt) error {
	if rt.Services.Journal == nil {
		return nil
	}
	ruleName := ruleCtx.RuleName()
	err := rt.Services.Journal.RecordTransaction(ctx, journal.RecordTransactionInput{
		SessionID: rt.Services.SessionID,
		RuleName:  ruleName,
		ActionTag: actionTag,
		Receipt:   receipt,
	})
	if err != nil {
		return structural(xerrors.Backupf("failed recording transaction", err))
	}
	rt.Services.Metrics.IncActionTag(actionTag)
	if len(receipt.Undo) > 0 {
		rt.Services.Metrics.IncUndoRecorded()
	}
	return nil
}
