package engine

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/cbr9/organizer/internal/pathutil"
	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/xerrors"
)

// fileProvider contributes the `file` root: the in-scope resource's path
// decomposed the way a rule's destination templates address it
// (`{{ file.extension }}`, `{{ file.stem }}`, ...).
type fileProvider struct{}

func (fileProvider) Name() string { return "file" }

func (fileProvider) Schema() template.Schema {
	return template.Object{Children: map[string]template.Schema{
		"name":      template.Terminal{Get: fileField(filepath.Base)},
		"stem":      template.Terminal{Get: fileField(stemOf)},
		"extension": template.Terminal{Get: fileField(extOf)},
		"dir":       template.Terminal{Get: fileField(filepath.Dir)},
		"path":      template.Terminal{Get: fileField(func(p string) string { return p })},
		"is_hidden": template.Terminal{
			Get: func(ctx template.EvalContext) (template.Value, error) {
				path, err := ctx.ResourcePath()
				if err != nil {
					return template.Value{}, err
				}
				return template.Bool(pathutil.IsHidden(path)), nil
			},
		},
	}}
}

func fileField(transform func(string) string) template.Accessor {
	return func(ctx template.EvalContext) (template.Value, error) {
		path, err := ctx.ResourcePath()
		if err != nil {
			return template.Value{}, err
		}
		return template.String(transform(path)), nil
	}
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func extOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// hashProvider contributes the `hash` root: digests of the in-scope
// resource's content, read once per accessor through ResourceReader.
type hashProvider struct{}

func (hashProvider) Name() string { return "hash" }

func (hashProvider) Schema() template.Schema {
	return template.Object{Children: map[string]template.Schema{
		"md5":    template.Terminal{Get: hashField(md5.New)},
		"sha256": template.Terminal{Get: hashField(sha256.New)},
	}}
}

// hashField builds an accessor that hashes the in-scope resource's
// content with a fresh hash.Hash from newHash on every evaluation, so
// concurrent evaluations never share mutable hasher state.
func hashField(newHash func() hash.Hash) template.Accessor {
	return func(ctx template.EvalContext) (template.Value, error) {
		r, size, err := ctx.ResourceReader()
		if err != nil {
			return template.Value{}, err
		}
		defer r.Close()

		h := newHash()
		if _, err := io.Copy(h, io.NewSectionReader(r, 0, size)); err != nil {
			return template.Value{}, xerrors.Templatef("hash: reading resource content failed", err)
		}
		return template.String(hex.EncodeToString(h.Sum(nil))), nil
	}
}

// jsonFunction implements the `json(path, key)` function: reads and
// parses a JSON object from path (resolved relative to the in-scope
// resource's directory when not absolute) and returns the named
// top-level scalar field. Nested objects/arrays are rejected since
// Value carries only scalars.
type jsonFunction struct{}

func (jsonFunction) Name() string { return "json" }

func (jsonFunction) Build(c *template.Compiler, args []template.Expr) (template.Accessor, error) {
	if len(args) != 2 {
		return nil, xerrors.Templatef("json: expects exactly two arguments: json(path, key)", nil)
	}
	pathAcc, err := c.CompileArg(args[0])
	if err != nil {
		return nil, err
	}
	keyAcc, err := c.CompileArg(args[1])
	if err != nil {
		return nil, err
	}
	return func(ctx template.EvalContext) (template.Value, error) {
		pathVal, err := pathAcc(ctx)
		if err != nil {
			return template.Value{}, err
		}
		keyVal, err := keyAcc(ctx)
		if err != nil {
			return template.Value{}, err
		}

		path := pathVal.String()
		if !filepath.IsAbs(path) {
			if resPath, err := ctx.ResourcePath(); err == nil {
				path = filepath.Join(filepath.Dir(resPath), path)
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return template.Value{}, xerrors.JSONf("json: read file "+path+" failed", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return template.Value{}, xerrors.JSONf("json: invalid JSON in "+path, err)
		}

		key := keyVal.String()
		raw, ok := doc[key]
		if !ok {
			return template.None(), nil
		}
		switch v := raw.(type) {
		case string:
			return template.Some(v), nil
		case bool:
			return template.Bool(v), nil
		case float64:
			return template.Int(int64(v)), nil
		default:
			return template.Value{}, xerrors.JSONf("json: key "+key+" in "+path+" is not a scalar value", nil)
		}
	}, nil
}

// ruleProvider contributes the `rule` root, exposing the in-scope rule's
// own metadata back to its own templates (e.g. a notification action
// wanting to name the rule that triggered it).
type ruleProvider struct{}

func (ruleProvider) Name() string { return "rule" }

func (ruleProvider) Schema() template.Schema {
	return template.Object{Children: map[string]template.Schema{
		"name":        template.Terminal{Get: func(ctx template.EvalContext) (template.Value, error) { return template.String(ctx.RuleName()), nil }},
		"description": template.Terminal{Get: func(ctx template.EvalContext) (template.Value, error) { return template.String(ctx.RuleDescription()), nil }},
		"tags":        template.Terminal{Get: func(ctx template.EvalContext) (template.Value, error) { return template.String(strings.Join(ctx.RuleTags(), ",")), nil }},
	}}
}

// batchProvider contributes the `batch` root, exposed only in the
// Batch scope a partitioner/batch-model action runs under.
type batchProvider struct{}

func (batchProvider) Name() string { return "batch" }

func (batchProvider) Schema() template.Schema {
	return template.Object{Children: map[string]template.Schema{
		"name": template.Terminal{Get: func(ctx template.EvalContext) (template.Value, error) {
			name, err := ctx.BatchName()
			if err != nil {
				return template.Value{}, err
			}
			return template.String(name), nil
		}},
	}}
}

// rootProvider contributes the bare `root` variable: the search root
// active in the Search/Build scope currently rendering.
type rootProvider struct{}

func (rootProvider) Name() string { return "root" }

func (rootProvider) Schema() template.Schema {
	return template.Terminal{Get: func(ctx template.EvalContext) (template.Value, error) {
		root, err := ctx.Root()
		if err != nil {
			return template.Value{}, err
		}
		return template.String(root), nil
	}}
}

// uuidProvider contributes the bare `uuid` variable: a fresh random id
// generated on every evaluation, used to disambiguate generated names.
type uuidProvider struct{}

func (uuidProvider) Name() string { return "uuid" }

func (uuidProvider) Schema() template.Schema {
	return template.Terminal{Get: func(template.EvalContext) (template.Value, error) {
		return template.String(uuid.NewString()), nil
	}}
}

// envProvider contributes the `env.VAR` dynamic map over the process
// environment.
type envProvider struct{}

func (envProvider) Name() string { return "env" }

func (envProvider) Schema() template.Schema {
	return template.DynamicMap{Child: func(key string) template.Schema {
		return template.Terminal{Get: func(ctx template.EvalContext) (template.Value, error) {
			v, ok := ctx.Env(key)
			if !ok {
				return template.None(), nil
			}
			return template.Some(v), nil
		}}
	}}
}

// argsProvider contributes the `args.KEY` dynamic map over the run's
// `-- key=value` CLI arguments.
type argsProvider struct{}

func (argsProvider) Name() string { return "args" }

func (argsProvider) Schema() template.Schema {
	return template.DynamicMap{Child: func(key string) template.Schema {
		return template.Terminal{Get: func(ctx template.EvalContext) (template.Value, error) {
			v, ok := ctx.Arg(key)
			if !ok {
				return template.None(), nil
			}
			return template.Some(v), nil
		}}
	}}
}

// configProvider contributes the `config.KEY` dynamic map over the rule's
// resolved connection/rule configuration (e.g. `config.smtp_host`).
type configProvider struct{}

func (configProvider) Name() string { return "config" }

func (configProvider) Schema() template.Schema {
	return template.DynamicMap{Child: func(key string) template.Schema {
		return template.Terminal{Get: func(ctx template.EvalContext) (template.Value, error) {
			v, ok := ctx.ConfigValue(key)
			if !ok {
				return template.None(), nil
			}
			return template.Some(v), nil
		}}
	}}
}

// userProvider contributes the `user` root: home directory and username
// of the process's OS user.
type userProvider struct{}

func (userProvider) Name() string { return "user" }

func (userProvider) Schema() template.Schema {
	return template.Object{Children: map[string]template.Schema{
		"home": template.Terminal{Get: func(template.EvalContext) (template.Value, error) {
			home, err := os.UserHomeDir()
			if err != nil {
				return template.Value{}, err
			}
			return template.String(home), nil
		}},
		"name": template.Terminal{Get: func(template.EvalContext) (template.Value, error) {
			u, err := user.Current()
			if err != nil {
				return template.Value{}, err
			}
			return template.String(u.Username), nil
		}},
	}}
}

// sysProvider contributes the `sys` root: OS, architecture, hostname.
type sysProvider struct{}

func (sysProvider) Name() string { return "sys" }

func (sysProvider) Schema() template.Schema {
	return template.Object{Children: map[string]template.Schema{
		"os":   template.Terminal{Get: func(template.EvalContext) (template.Value, error) { return template.String(runtime.GOOS), nil }},
		"arch": template.Terminal{Get: func(template.EvalContext) (template.Value, error) { return template.String(runtime.GOARCH), nil }},
		"hostname": template.Terminal{Get: func(template.EvalContext) (template.Value, error) {
			h, err := os.Hostname()
			if err != nil {
				return template.Value{}, err
			}
			return template.String(h), nil
		}},
	}}
}

// inputFunction implements the `input(prompt?)` function: zero or one
// string-valued argument, delegating to the UI port's synchronous prompt.
type inputFunction struct{}

func (inputFunction) Name() string { return "input" }

func (inputFunction) Build(c *template.Compiler, args []template.Expr) (template.Accessor, error) {
	if len(args) > 1 {
		return nil, xerrors.Templatef("input: accepts at most one argument", nil)
	}
	var promptAcc template.Accessor
	if len(args) == 1 {
		acc, err := c.CompileArg(args[0])
		if err != nil {
			return nil, err
		}
		promptAcc = acc
	}
	return func(ctx template.EvalContext) (template.Value, error) {
		prompt := ""
		if promptAcc != nil {
			v, err := promptAcc(ctx)
			if err != nil {
				return template.Value{}, err
			}
			prompt = v.String()
		}
		answer, err := ctx.Prompt(prompt)
		if err != nil {
			return template.Value{}, err
		}
		return template.String(answer), nil
	}, nil
}

// RegisterBuiltins installs every built-in variable provider and function
// builder into reg. Called once at process startup before any rule is
// compiled.
func RegisterBuiltins(reg *template.Registry) {
	reg.RegisterVariable(fileProvider{})
	reg.RegisterVariable(ruleProvider{})
	reg.RegisterVariable(batchProvider{})
	reg.RegisterVariable(rootProvider{})
	reg.RegisterVariable(uuidProvider{})
	reg.RegisterVariable(envProvider{})
	reg.RegisterVariable(argsProvider{})
	reg.RegisterVariable(configProvider{})
	reg.RegisterVariable(userProvider{})
	reg.RegisterVariable(sysProvider{})
	reg.RegisterVariable(hashProvider{})
	reg.RegisterFunction(inputFunction{})
	reg.RegisterFunction(jsonFunction{})
}
