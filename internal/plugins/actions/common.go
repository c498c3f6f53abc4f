// Package actions implements the built-in Action plugins: move, copy,
// hardlink, symlink, delete, trash, extract, echo, write, email, and
// script. Every action registers itself (and, where it produces an undo
// operation, that operation's decoder) from an init().
package actions

import (
	"fmt"
	"os"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/template"
)

func homeDir() (string, error) {
	return os.UserHomeDir()
}

func stringOpt(opts plugin.Options, key string) (string, error) {
	raw, ok := opts[key]
	if !ok {
		return "", fmt.Errorf("%s: missing %q option", key, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s: %q must be a string", key, key)
	}
	return s, nil
}

func optionalStringOpt(opts plugin.Options, key, fallback string) (string, error) {
	raw, ok := opts[key]
	if !ok {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s: %q must be a string", key, key)
	}
	return s, nil
}

func resolutionOpt(opts plugin.Options) (plugin.LockResolution, error) {
	mode, err := optionalStringOpt(opts, "if_exists", "rename")
	if err != nil {
		return 0, err
	}
	switch mode {
	case "skip":
		return plugin.LockSkip, nil
	case "overwrite":
		return plugin.LockOverwrite, nil
	case "rename":
		return plugin.LockRename, nil
	default:
		return 0, fmt.Errorf("if_exists: unknown value %q", mode)
	}
}

func compileTemplate(opts plugin.Options, c *template.Compiler, key string) (*template.Template, error) {
	s, err := stringOpt(opts, key)
	if err != nil {
		return nil, err
	}
	tpl, err := c.CompileTemplate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return tpl, nil
}

// destination renders tpl against ctx and reserves it through the
// runtime's locker, using resolution as the conflict policy. A nil guard
// (no error) means the action must skip: the resource is passed through
// unchanged with no undo operation.
func destination(ctx *plugin.Context, tpl *template.Template, resolution plugin.LockResolution) (plugin.LockGuard, string, error) {
	path, err := tpl.Render(ctx.EvalContext)
	if err != nil {
		return nil, "", err
	}
	guard, err := ctx.Runtime.Lock(ctx.EvalContext, plugin.Destination{
		Host:       ctx.Resource.Host(),
		Path:       path,
		Resolution: resolution,
	})
	if err != nil {
		return nil, "", err
	}
	return guard, path, nil
}

// passthrough builds the no-op Receipt a skipped or non-mutating action
// returns: the resource flows on unchanged, nothing is journaled.
func passthrough(ctx *plugin.Context) *plugin.Receipt {
	if ctx.Resource == nil {
		return &plugin.Receipt{}
	}
	return &plugin.Receipt{Next: []*resource.Resource{ctx.Resource}}
}
