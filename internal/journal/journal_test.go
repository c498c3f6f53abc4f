package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
)

type fakeUndo struct {
	From string `msgpack:"from"`
	To   string `msgpack:"to"`
}

func (fakeUndo) Tag() string                     { return "journal-test-fake-undo" }
func (fakeUndo) Verify(plugin.UndoContext) error { return nil }
func (f fakeUndo) Undo(plugin.UndoContext) error { return nil }

func init() {
	plugin.RegisterUndoOperation("journal-test-fake-undo", func(payload []byte) (plugin.UndoOperation, error) {
		var f fakeUndo
		if err := msgpack.Unmarshal(payload, &f); err != nil {
			return nil, err
		}
		return f, nil
	})
}

func TestJournal_RecordAndReadBackRoundTrips(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	sessionID, err := j.StartSession(ctx, `{"rule":"test"}`)
	require.NoError(t, err)

	receipt := &plugin.Receipt{
		Next:    []*resource.Resource{resource.New("file", "/dst/a.txt", "loc", false)},
		Created: []string{"/dst/a.txt"},
		Deleted: []string{"/src/a.txt"},
		Undo:    []plugin.UndoOperation{fakeUndo{From: "/dst/a.txt", To: "/src/a.txt"}},
	}
	err = j.RecordTransaction(ctx, RecordTransactionInput{
		SessionID: sessionID,
		RuleName:  "test",
		ActionTag: "move",
		Receipt:   receipt,
	})
	require.NoError(t, err)

	pending, err := j.GetPendingTransactionsForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	got := pending[0]
	assert.Equal(t, "move", got.ActionTag)
	assert.Equal(t, UndoPending, got.UndoStatus)
	require.Len(t, got.Receipt.Undo, 1)
	fu, ok := got.Receipt.Undo[0].(fakeUndo)
	require.True(t, ok)
	assert.Equal(t, "/dst/a.txt", fu.From)
	assert.Equal(t, "/src/a.txt", fu.To)
	require.Len(t, got.Receipt.Next, 1)
	assert.Equal(t, "/dst/a.txt", got.Receipt.Next[0].Path())

	require.NoError(t, j.UpdateTransactionUndoStatus(ctx, got.ID, UndoDone))
	pending, err = j.GetPendingTransactionsForSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestJournal_ReceiptWithoutUndoIsNotPersisted(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	sessionID, err := j.StartSession(ctx, `{}`)
	require.NoError(t, err)

	err = j.RecordTransaction(ctx, RecordTransactionInput{
		SessionID: sessionID,
		RuleName:  "test",
		ActionTag: "echo",
		Receipt:   &plugin.Receipt{},
	})
	require.NoError(t, err)

	pending, err := j.GetPendingTransactionsForSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestJournal_LastSessionID(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	id1, err := j.StartSession(ctx, `{}`)
	require.NoError(t, err)
	id2, err := j.StartSession(ctx, `{}`)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	last, err := j.GetLastSessionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id2, last)
}
