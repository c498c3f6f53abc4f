package actions

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/xerrors"
)

func init() {
	plugin.RegisterAction("delete", buildDelete)
	plugin.RegisterAction("trash", buildTrash)

	plugin.RegisterUndoOperation("delete", decodeDeleteUndo)
	plugin.RegisterUndoOperation("trash", decodeTrashUndo)
}

// deleteAction removes a resource outright. Its content is captured into
// the undo operation so the deletion can be reversed; this trades a
// larger journal row for not needing a second backup store.
type deleteAction struct{}

func buildDelete(plugin.Options, *template.Compiler) (plugin.Action, error) {
	return deleteAction{}, nil
}

func (deleteAction) Tag() string         { return "delete" }
func (deleteAction) Model() plugin.Model { return plugin.Single }

func (deleteAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	provider, err := ctx.Runtime.Provider(ctx.Resource.Host())
	if err != nil {
		return nil, err
	}
	path := ctx.Resource.Path()

	var content []byte
	if !ctx.Resource.IsDir() {
		content, err = provider.Read(ctx.EvalContext, path)
		if err != nil {
			return nil, xerrors.Storagepathf(path, "delete: backup read failed", err)
		}
	}
	if err := provider.Delete(ctx.EvalContext, path); err != nil {
		return nil, xerrors.Storagepathf(path, "delete failed", err)
	}
	return &plugin.Receipt{
		Deleted: []string{path},
		Undo:    []plugin.UndoOperation{deleteUndo{Host: ctx.Resource.Host(), Path: path, Content: content, IsDir: ctx.Resource.IsDir()}},
	}, nil
}

type deleteUndo struct {
	Host    string `msgpack:"host"`
	Path    string `msgpack:"path"`
	Content []byte `msgpack:"content"`
	IsDir   bool   `msgpack:"is_dir"`
}

func decodeDeleteUndo(payload []byte) (plugin.UndoOperation, error) {
	var u deleteUndo
	if err := msgpack.Unmarshal(payload, &u); err != nil {
		return nil, xerrors.JSONf("decode delete undo failed", err)
	}
	return u, nil
}

func (deleteUndo) Tag() string { return "delete" }

func (u deleteUndo) Verify(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	ok, err := p.Exists(context.Background(), u.Path)
	if err != nil {
		return err
	}
	if ok {
		return xerrors.Undof("delete undo: path already occupied: "+u.Path, nil)
	}
	return nil
}

func (u deleteUndo) Undo(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	if u.IsDir {
		return p.Mkdir(context.Background(), u.Path)
	}
	if err := p.Mkdir(context.Background(), filepath.Dir(u.Path)); err != nil {
		return err
	}
	return p.Write(context.Background(), u.Path, u.Content)
}

// trashAction moves a resource into an XDG trash directory instead of
// deleting it outright, rather than shelling out to a desktop trash
// helper.
type trashAction struct{}

func buildTrash(plugin.Options, *template.Compiler) (plugin.Action, error) {
	return trashAction{}, nil
}

func (trashAction) Tag() string         { return "trash" }
func (trashAction) Model() plugin.Model { return plugin.Single }

func trashDir() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "Trash", "files"), nil
}

func (trashAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	provider, err := ctx.Runtime.Provider(ctx.Resource.Host())
	if err != nil {
		return nil, err
	}
	dir, err := trashDir()
	if err != nil {
		return nil, xerrors.Iof("", "", "trash: resolve trash directory failed", err)
	}
	if err := provider.Mkdir(ctx.EvalContext, dir); err != nil {
		return nil, xerrors.Storagepathf(dir, "trash: mkdir failed", err)
	}

	from := ctx.Resource.Path()
	to := filepath.Join(dir, fmt.Sprintf("%s-%s", ctx.Resource.Name(), uuid.NewString()))
	if err := provider.Move(ctx.EvalContext, from, to); err != nil {
		return nil, xerrors.Storagepathf(from, "trash failed", err)
	}
	return &plugin.Receipt{
		Undo: []plugin.UndoOperation{trashUndo{Host: ctx.Resource.Host(), From: from, To: to, Timestamp: time.Now().UTC()}},
	}, nil
}

type trashUndo struct {
	Host      string    `msgpack:"host"`
	From      string    `msgpack:"from"`
	To        string    `msgpack:"to"`
	Timestamp time.Time `msgpack:"timestamp"`
}

func decodeTrashUndo(payload []byte) (plugin.UndoOperation, error) {
	var u trashUndo
	if err := msgpack.Unmarshal(payload, &u); err != nil {
		return nil, xerrors.JSONf("decode trash undo failed", err)
	}
	return u, nil
}

func (trashUndo) Tag() string { return "trash" }

func (u trashUndo) Verify(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	ok, err := p.Exists(context.Background(), u.To)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Undof("trash undo: trashed path no longer exists: "+u.To, nil)
	}
	return nil
}

func (u trashUndo) Undo(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	return p.Move(context.Background(), u.To, u.From)
}
