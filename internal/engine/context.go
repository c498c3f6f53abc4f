package engine

import (
	"bytes"
	"context"

	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/xerrors"
)

// ExecutionContext is the concrete template.EvalContext every accessor and
// plugin runs against: a context.Context, a scope narrowing what may be
// queried, the shared RunServices bundle, and the CLI args / connection
// config maps backing the `args.*` and `config.*` template roots.
type ExecutionContext struct {
	context.Context

	Scope    ExecutionScope
	Services *RunServices
	Args     map[string]string
	Config   map[string]string
}

// New builds the root ExecutionContext for a run, in Blank scope.
func New(ctx context.Context, services *RunServices, args, config map[string]string) *ExecutionContext {
	return &ExecutionContext{Context: ctx, Scope: Blank(), Services: services, Args: args, Config: config}
}

// WithScope returns a copy of ec narrowed to scope, sharing Services/Args/
// Config and the underlying context.Context.
func (ec *ExecutionContext) WithScope(scope ExecutionScope) *ExecutionContext {
	return &ExecutionContext{Context: ec.Context, Scope: scope, Services: ec.Services, Args: ec.Args, Config: ec.Config}
}

// ResourcePath implements template.EvalContext.
func (ec *ExecutionContext) ResourcePath() (string, error) {
	res, err := ec.Scope.ResourceOrErr()
	if err != nil {
		return "", err
	}
	return res.Path(), nil
}

// readAtCloser adapts an in-memory byte slice to template.ReadAtCloser,
// since storage.Provider.Read returns a full buffer rather than a handle.
type readAtCloser struct {
	*bytes.Reader
}

func (readAtCloser) Close() error { return nil }

// ResourceReader implements template.EvalContext.
func (ec *ExecutionContext) ResourceReader() (template.ReadAtCloser, int64, error) {
	res, err := ec.Scope.ResourceOrErr()
	if err != nil {
		return nil, 0, err
	}
	provider, err := ec.Services.Storage.Get(res.Host())
	if err != nil {
		return nil, 0, xerrors.Storagef("no provider for resource host", err)
	}
	data, err := provider.Read(ec.Context, res.Path())
	if err != nil {
		return nil, 0, xerrors.Storagepathf(res.Path(), "failed reading resource content", err)
	}
	return readAtCloser{bytes.NewReader(data)}, int64(len(data)), nil
}

// RuleName implements template.EvalContext.
func (ec *ExecutionContext) RuleName() string {
	if r, err := ec.Scope.RuleOrErr(); err == nil {
		return r.Name
	}
	return ""
}

// RuleDescription implements template.EvalContext.
func (ec *ExecutionContext) RuleDescription() string {
	if r, err := ec.Scope.RuleOrErr(); err == nil {
		return r.Description
	}
	return ""
}

// RuleTags implements template.EvalContext.
func (ec *ExecutionContext) RuleTags() []string {
	if r, err := ec.Scope.RuleOrErr(); err == nil {
		return r.Tags
	}
	return nil
}

// Root implements template.EvalContext.
func (ec *ExecutionContext) Root() (string, error) {
	switch ec.Scope.Kind {
	case ScopeBuild:
		return ec.Scope.Root, nil
	case ScopeSearch:
		return ec.Scope.Location.Path, nil
	default:
		return "", xerrors.OutOfScopef("root queried outside Build/Search scope")
	}
}

// Env implements template.EvalContext via the process environment.
func (ec *ExecutionContext) Env(key string) (string, bool) {
	return envLookup(key)
}

// Arg implements template.EvalContext via the run's trailing key=value
// CLI arguments.
func (ec *ExecutionContext) Arg(key string) (string, bool) {
	v, ok := ec.Args[key]
	return v, ok
}

// ConfigValue implements template.EvalContext via the run's resolved
// connection/rule config map.
func (ec *ExecutionContext) ConfigValue(key string) (string, bool) {
	v, ok := ec.Config[key]
	return v, ok
}

// Prompt implements template.EvalContext by delegating to the bundled UI
// port's synchronous input.
func (ec *ExecutionContext) Prompt(prompt string) (string, error) {
	return ec.Services.UI.Prompt(prompt)
}

// BatchName implements template.EvalContext.
func (ec *ExecutionContext) BatchName() (string, error) {
	b, err := ec.Scope.BatchOrErr()
	if err != nil {
		return "", err
	}
	return b.Name, nil
}

// BatchContext implements template.EvalContext.
func (ec *ExecutionContext) BatchContext(key string) (string, bool, error) {
	b, err := ec.Scope.BatchOrErr()
	if err != nil {
		return "", false, err
	}
	v, ok := b.Context[key]
	return v, ok, nil
}

var _ template.EvalContext = (*ExecutionContext)(nil)
