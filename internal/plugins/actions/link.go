package actions

import (
	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/xerrors"
)

func init() {
	plugin.RegisterAction("move", buildMove)
	plugin.RegisterAction("copy", buildCopy)
	plugin.RegisterAction("hardlink", buildHardlink)
	plugin.RegisterAction("symlink", buildSymlink)

	plugin.RegisterUndoOperation("move", decodeMoveUndo)
	plugin.RegisterUndoOperation("link", decodeLinkUndo)
}

// moveAction relocates a resource to a rendered destination, replacing it
// in the stream with a handle at the new path.
type moveAction struct {
	To         *template.Template
	Resolution plugin.LockResolution
}

func buildMove(opts plugin.Options, c *template.Compiler) (plugin.Action, error) {
	tpl, err := compileTemplate(opts, c, "to")
	if err != nil {
		return nil, err
	}
	res, err := resolutionOpt(opts)
	if err != nil {
		return nil, err
	}
	return moveAction{To: tpl, Resolution: res}, nil
}

func (moveAction) Tag() string         { return "move" }
func (moveAction) Model() plugin.Model { return plugin.Single }

func (a moveAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	guard, _, err := destination(ctx, a.To, a.Resolution)
	if err != nil {
		return nil, err
	}
	if guard == nil {
		return passthrough(ctx), nil
	}
	defer guard.Release()

	provider, err := ctx.Runtime.Provider(ctx.Resource.Host())
	if err != nil {
		return nil, err
	}
	from, to := ctx.Resource.Path(), guard.Path()
	if err := provider.Move(ctx.EvalContext, from, to); err != nil {
		return nil, xerrors.Storagepathf(from, "move failed", err)
	}
	return &plugin.Receipt{
		Next: []*resource.Resource{ctx.Resource.WithPath(to)},
		Undo: []plugin.UndoOperation{moveUndo{Host: ctx.Resource.Host(), From: from, To: to}},
	}, nil
}

// copyAction duplicates a resource at a rendered destination, leaving the
// original flowing downstream unchanged.
type copyAction struct {
	To         *template.Template
	Resolution plugin.LockResolution
}

func buildCopy(opts plugin.Options, c *template.Compiler) (plugin.Action, error) {
	tpl, err := compileTemplate(opts, c, "to")
	if err != nil {
		return nil, err
	}
	res, err := resolutionOpt(opts)
	if err != nil {
		return nil, err
	}
	return copyAction{To: tpl, Resolution: res}, nil
}

func (copyAction) Tag() string         { return "copy" }
func (copyAction) Model() plugin.Model { return plugin.Single }

func (a copyAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	return runLink(ctx, a.To, a.Resolution, "copy", func(p plugin.StorageProvider, from, to string) error {
		return p.Copy(ctx.EvalContext, from, to)
	})
}

// hardlinkAction creates a hard link to a rendered destination.
type hardlinkAction struct {
	To         *template.Template
	Resolution plugin.LockResolution
}

func buildHardlink(opts plugin.Options, c *template.Compiler) (plugin.Action, error) {
	tpl, err := compileTemplate(opts, c, "to")
	if err != nil {
		return nil, err
	}
	res, err := resolutionOpt(opts)
	if err != nil {
		return nil, err
	}
	return hardlinkAction{To: tpl, Resolution: res}, nil
}

func (hardlinkAction) Tag() string         { return "hardlink" }
func (hardlinkAction) Model() plugin.Model { return plugin.Single }

func (a hardlinkAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	return runLink(ctx, a.To, a.Resolution, "hardlink", func(p plugin.StorageProvider, from, to string) error {
		return p.Hardlink(ctx.EvalContext, from, to)
	})
}

// symlinkAction creates a symbolic link to a rendered destination.
type symlinkAction struct {
	To         *template.Template
	Resolution plugin.LockResolution
}

func buildSymlink(opts plugin.Options, c *template.Compiler) (plugin.Action, error) {
	tpl, err := compileTemplate(opts, c, "to")
	if err != nil {
		return nil, err
	}
	res, err := resolutionOpt(opts)
	if err != nil {
		return nil, err
	}
	return symlinkAction{To: tpl, Resolution: res}, nil
}

func (symlinkAction) Tag() string         { return "symlink" }
func (symlinkAction) Model() plugin.Model { return plugin.Single }

func (a symlinkAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	return runLink(ctx, a.To, a.Resolution, "symlink", func(p plugin.StorageProvider, from, to string) error {
		return p.Symlink(ctx.EvalContext, from, to)
	})
}

// runLink is shared by copy/hardlink/symlink: all three create a new path
// without disturbing the original, so the original resource keeps
// flowing and the new path is recorded as Created, undone by deleting it.
func runLink(ctx *plugin.Context, to *template.Template, resolution plugin.LockResolution, tag string, op func(p plugin.StorageProvider, from, to string) error) (*plugin.Receipt, error) {
	guard, _, err := destination(ctx, to, resolution)
	if err != nil {
		return nil, err
	}
	if guard == nil {
		return passthrough(ctx), nil
	}
	defer guard.Release()

	provider, err := ctx.Runtime.Provider(ctx.Resource.Host())
	if err != nil {
		return nil, err
	}
	from, dest := ctx.Resource.Path(), guard.Path()
	if err := op(provider, from, dest); err != nil {
		return nil, xerrors.Storagepathf(from, tag+" failed", err)
	}
	return &plugin.Receipt{
		Next:    []*resource.Resource{ctx.Resource},
		Created: []string{dest},
		Undo:    []plugin.UndoOperation{linkUndo{Host: ctx.Resource.Host(), Created: dest}},
	}, nil
}
