package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mholt/archiver/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/xerrors"
)

func init() {
	plugin.RegisterAction("extract", buildExtract)
	plugin.RegisterUndoOperation("extract", decodeExtractUndo)
}

// extractAction unpacks an archive resource into a rendered destination
// directory. Archive formats are format-sniffed by extension, the same
// way mholt/archiver's own Unarchive helper dispatches; this goes
// straight through the local filesystem rather than a storage.Provider,
// since archive extraction only ever makes sense against local paths.
type extractAction struct {
	To *template.Template
}

func buildExtract(opts plugin.Options, c *template.Compiler) (plugin.Action, error) {
	tpl, err := compileTemplate(opts, c, "to")
	if err != nil {
		return nil, err
	}
	return extractAction{To: tpl}, nil
}

func (extractAction) Tag() string         { return "extract" }
func (extractAction) Model() plugin.Model { return plugin.Single }

func (a extractAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	if ctx.Resource.Host() != "file" {
		return nil, xerrors.Configf("extract: only supported against the local file host", nil)
	}
	dest, err := a.To.Render(ctx.EvalContext)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, xerrors.Storagepathf(dest, "extract: mkdir failed", err)
	}

	source := ctx.Resource.Path()
	if err := archiver.Unarchive(source, dest); err != nil {
		return nil, xerrors.Storagepathf(source, "extract failed", err)
	}

	created, err := listTree(dest)
	if err != nil {
		return nil, xerrors.Storagepathf(dest, "extract: listing extracted tree failed", err)
	}

	return &plugin.Receipt{
		Next:    []*resource.Resource{ctx.Resource},
		Created: created,
		Undo:    []plugin.UndoOperation{extractUndo{Root: dest, Created: created}},
	}, nil
}

func listTree(root string) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type extractUndo struct {
	Root    string   `msgpack:"root"`
	Created []string `msgpack:"created"`
}

func decodeExtractUndo(payload []byte) (plugin.UndoOperation, error) {
	var u extractUndo
	if err := msgpack.Unmarshal(payload, &u); err != nil {
		return nil, xerrors.JSONf("decode extract undo failed", err)
	}
	return u, nil
}

func (extractUndo) Tag() string { return "extract" }

func (u extractUndo) Verify(plugin.UndoContext) error {
	if _, err := os.Stat(u.Root); err != nil {
		return xerrors.Undof("extract undo: destination directory missing: "+u.Root, err)
	}
	return nil
}

func (u extractUndo) Undo(plugin.UndoContext) error {
	// Deepest entries first so files are removed before their parent
	// directories.
	ordered := append([]string(nil), u.Created...)
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
	for _, p := range ordered {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("extract undo: remove %q: %w", p, err)
		}
	}
	return os.Remove(u.Root)
}
