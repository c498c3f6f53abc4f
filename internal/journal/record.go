// Package journal implements the embedded SQL undo log: a durable SQLite
// file for a real run, an in-memory database for a dry run, storing every
// mutating action's receipt so a later `organizer undo` can replay its
// inverse.
package journal

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/xerrors"
)

// UndoStatus tracks whether a recorded transaction's undo has been applied.
type UndoStatus string

const (
	UndoPending UndoStatus = "pending"
	UndoDone    UndoStatus = "done"
	UndoSkipped UndoStatus = "skipped"
)

// resourceRecord is the wire form of a *resource.Resource.
type resourceRecord struct {
	Host     string `msgpack:"host"`
	Path     string `msgpack:"path"`
	Location string `msgpack:"location"`
	IsDir    bool   `msgpack:"is_dir"`
}

func encodeResource(r *resource.Resource) resourceRecord {
	return resourceRecord{Host: r.Host(), Path: r.Path(), Location: r.Location(), IsDir: r.IsDir()}
}

func (rr resourceRecord) decode() *resource.Resource {
	return resource.New(rr.Host, rr.Path, rr.Location, rr.IsDir)
}

// undoEnvelope is the tag-discriminated wire form of one plugin.UndoOperation,
// mirroring the probe-the-type-field-then-fully-decode pattern used for
// polymorphic IPC frames: the tag selects which plugin-registered decoder
// reconstructs the payload.
type undoEnvelope struct {
	Tag     string `msgpack:"tag"`
	Payload []byte `msgpack:"payload"`
}

func encodeUndo(ops []plugin.UndoOperation) ([]undoEnvelope, error) {
	out := make([]undoEnvelope, 0, len(ops))
	for _, op := range ops {
		payload, err := msgpack.Marshal(op)
		if err != nil {
			return nil, xerrors.JSONf("encode undo operation failed", err)
		}
		out = append(out, undoEnvelope{Tag: op.Tag(), Payload: payload})
	}
	return out, nil
}

func decodeUndo(envs []undoEnvelope) ([]plugin.UndoOperation, error) {
	out := make([]plugin.UndoOperation, 0, len(envs))
	for _, e := range envs {
		op, err := plugin.DecodeUndoOperation(e.Tag, e.Payload)
		if err != nil {
			return nil, xerrors.JSONf("decode undo operation failed", err)
		}
		out = append(out, op)
	}
	return out, nil
}

// receiptRecord is the wire form of a plugin.Receipt.
type receiptRecord struct {
	Next    []resourceRecord `msgpack:"next"`
	Created []string         `msgpack:"created"`
	Deleted []string         `msgpack:"deleted"`
	Undo    []undoEnvelope   `msgpack:"undo"`
}

func encodeReceipt(r *plugin.Receipt) ([]byte, error) {
	next := make([]resourceRecord, 0, len(r.Next))
	for _, res := range r.Next {
		next = append(next, encodeResource(res))
	}
	undo, err := encodeUndo(r.Undo)
	if err != nil {
		return nil, err
	}
	rec := receiptRecord{Next: next, Created: r.Created, Deleted: r.Deleted, Undo: undo}
	b, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, xerrors.JSONf("encode receipt failed", err)
	}
	return b, nil
}

func decodeReceipt(data []byte) (*plugin.Receipt, error) {
	var rec receiptRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, xerrors.JSONf("decode receipt failed", err)
	}
	next := make([]*resource.Resource, 0, len(rec.Next))
	for _, rr := range rec.Next {
		next = append(next, rr.decode())
	}
	undo, err := decodeUndo(rec.Undo)
	if err != nil {
		return nil, err
	}
	return &plugin.Receipt{Next: next, Created: rec.Created, Deleted: rec.Deleted, Undo: undo}, nil
}

// Transaction is one recorded mutating action, read back from the journal.
type Transaction struct {
	ID         int64
	SessionID  int64
	RuleName   string
	ActionTag  string
	Receipt    *plugin.Receipt
	Timestamp  time.Time
	UndoStatus UndoStatus
}

// Session is one recorded run.
type Session struct {
	ID        int64
	StartTime time.Time
	EndTime   *time.Time
	Status    string
	Config    string
}
