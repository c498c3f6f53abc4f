package actions

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/xerrors"
)

func init() {
	plugin.RegisterAction("echo", buildEcho)
	plugin.RegisterAction("write", buildWrite)
	plugin.RegisterUndoOperation("write", decodeWriteUndo)
}

// echoAction renders a message template and prints it, a diagnostic
// no-op that never mutates anything and is never journaled.
type echoAction struct {
	Message *template.Template
}

func buildEcho(opts plugin.Options, c *template.Compiler) (plugin.Action, error) {
	tpl, err := compileTemplate(opts, c, "message")
	if err != nil {
		return nil, err
	}
	return echoAction{Message: tpl}, nil
}

func (echoAction) Tag() string         { return "echo" }
func (echoAction) Model() plugin.Model { return plugin.Single }

func (a echoAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	msg, err := a.Message.Render(ctx.EvalContext)
	if err != nil {
		return nil, err
	}
	fmt.Println(msg)
	return passthrough(ctx), nil
}

// writeAction renders a content template to a rendered destination path,
// capturing the previous content (if any) so the write can be undone.
type writeAction struct {
	To      *template.Template
	Content *template.Template
}

func buildWrite(opts plugin.Options, c *template.Compiler) (plugin.Action, error) {
	to, err := compileTemplate(opts, c, "to")
	if err != nil {
		return nil, err
	}
	content, err := compileTemplate(opts, c, "content")
	if err != nil {
		return nil, err
	}
	return writeAction{To: to, Content: content}, nil
}

func (writeAction) Tag() string         { return "write" }
func (writeAction) Model() plugin.Model { return plugin.Single }

func (a writeAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	path, err := a.To.Render(ctx.EvalContext)
	if err != nil {
		return nil, err
	}
	content, err := a.Content.Render(ctx.EvalContext)
	if err != nil {
		return nil, err
	}

	provider, err := ctx.Runtime.Provider(ctx.Resource.Host())
	if err != nil {
		return nil, err
	}

	existed, err := provider.Exists(ctx.EvalContext, path)
	if err != nil {
		return nil, err
	}
	var previous []byte
	if existed {
		previous, err = provider.Read(ctx.EvalContext, path)
		if err != nil {
			return nil, xerrors.Storagepathf(path, "write: backup read failed", err)
		}
	}

	if err := provider.Write(ctx.EvalContext, path, []byte(content)); err != nil {
		return nil, xerrors.Storagepathf(path, "write failed", err)
	}

	undo := writeUndo{Host: ctx.Resource.Host(), Path: path, Existed: existed, Previous: previous}
	return &plugin.Receipt{
		Next:    passthrough(ctx).Next,
		Created: createdFor(existed, path),
		Undo:    []plugin.UndoOperation{undo},
	}, nil
}

func createdFor(existed bool, path string) []string {
	if existed {
		return nil
	}
	return []string{path}
}

type writeUndo struct {
	Host     string `msgpack:"host"`
	Path     string `msgpack:"path"`
	Existed  bool   `msgpack:"existed"`
	Previous []byte `msgpack:"previous"`
}

func decodeWriteUndo(payload []byte) (plugin.UndoOperation, error) {
	var u writeUndo
	if err := msgpack.Unmarshal(payload, &u); err != nil {
		return nil, xerrors.JSONf("decode write undo failed", err)
	}
	return u, nil
}

func (writeUndo) Tag() string { return "write" }

func (u writeUndo) Verify(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	ok, err := p.Exists(context.Background(), u.Path)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.Undof("write undo: path no longer exists: "+u.Path, nil)
	}
	return nil
}

func (u writeUndo) Undo(ctx plugin.UndoContext) error {
	p, err := ctx.Provider(u.Host)
	if err != nil {
		return err
	}
	if !u.Existed {
		return p.Delete(context.Background(), u.Path)
	}
	return p.Write(context.Background(), u.Path, u.Previous)
}
