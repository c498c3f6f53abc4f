package actions

import (
	"context"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/xerrors"
)

// moveUndo reverses a move action by moving To back to From.
type moveUndo struct {
	Host string `msgpack:"host"`
	From string `msgpack:"from"`
	To   string `msgpack:"to"`
}

func decodeMoveUndo(payload []byte) (plugin.UndoOperation, error) {
	var u moveUndo
	if err := msgpack.Unmarshal(payload, &u); err != nil {
		return nil, xerrors.JSONf("decode move undo failed", err)
	}
	return u, nil
}

func (moveUndo) Tag() string { return "move" }

func (u moveUndo) Verify(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	ok, err := p.Exists(context.Background(), u.To)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Undof("move undo: destination no longer exists: "+u.To, nil)
	}
	return nil
}

func (u moveUndo) Undo(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	return p.Move(context.Background(), u.To, u.From)
}

// linkUndo reverses a copy/hardlink/symlink action by deleting the path
// it created, leaving the original resource untouched.
type linkUndo struct {
	Host    string `msgpack:"host"`
	Created string `msgpack:"created"`
}

func decodeLinkUndo(payload []byte) (plugin.UndoOperation, error) {
	var u linkUndo
	if err := msgpack.Unmarshal(payload, &u); err != nil {
		return nil, xerrors.JSONf("decode link undo failed", err)
	}
	return u, nil
}

func (linkUndo) Tag() string { return "link" }

func (u linkUndo) Verify(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	ok, err := p.Exists(context.Background(), u.Created)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Undof("link undo: created path no longer exists: "+u.Created, nil)
	}
	return nil
}

func (u linkUndo) Undo(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	return p.Delete(context.Background(), u.Created)
}
