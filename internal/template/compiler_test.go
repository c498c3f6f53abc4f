package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEvalContext is a minimal EvalContext stub for compiler/render tests.
type fakeEvalContext struct {
	context.Context
	resourcePath string
	env          map[string]string
}

func (f *fakeEvalContext) ResourcePath() (string, error) { return f.resourcePath, nil }
func (f *fakeEvalContext) ResourceReader() (ReadAtCloser, int64, error) {
	return nil, 0, nil
}
func (f *fakeEvalContext) RuleName() string            { return "test-rule" }
func (f *fakeEvalContext) RuleDescription() string     { return "" }
func (f *fakeEvalContext) RuleTags() []string          { return nil }
func (f *fakeEvalContext) Root() (string, error)       { return "/root", nil }
func (f *fakeEvalContext) Env(k string) (string, bool) { v, ok := f.env[k]; return v, ok }
func (f *fakeEvalContext) Arg(string) (string, bool)   { return "", false }
func (f *fakeEvalContext) ConfigValue(string) (string, bool) { return "", false }
func (f *fakeEvalContext) Prompt(string) (string, error)     { return "", nil }
func (f *fakeEvalContext) BatchName() (string, error)        { return "", nil }
func (f *fakeEvalContext) BatchContext(string) (string, bool, error) { return "", false, nil }

func newTestRegistry() *Registry {
	reg := NewRegistry()
	reg.RegisterVariable(fileProviderStub{})
	reg.RegisterVariable(envProviderStub{})
	reg.RegisterFunction(inputBuilderStub{})
	return reg
}

type fileProviderStub struct{}

func (fileProviderStub) Name() string { return "file" }
func (fileProviderStub) Schema() Schema {
	return Object{Children: map[string]Schema{
		"name": Terminal{Get: func(ec EvalContext) (Value, error) {
			p, err := ec.ResourcePath()
			if err != nil {
				return Value{}, err
			}
			return String(p), nil
		}},
	}}
}

type envProviderStub struct{}

func (envProviderStub) Name() string { return "env" }
func (envProviderStub) Schema() Schema {
	return DynamicMap{Child: func(key string) Schema {
		return Terminal{Get: func(ec EvalContext) (Value, error) {
			v, ok := ec.Env(key)
			if !ok {
				return None(), nil
			}
			return Some(v), nil
		}}
	}}
}

type inputBuilderStub struct{}

func (inputBuilderStub) Name() string { return "input" }
func (inputBuilderStub) Build(c *Compiler, args []Expr) (Accessor, error) {
	if len(args) > 1 {
		panic("too many args")
	}
	return func(ec EvalContext) (Value, error) {
		s, err := ec.Prompt("")
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	}, nil
}

func TestCompileTemplate_KnownVariable(t *testing.T) {
	c := NewCompiler(newTestRegistry())
	tmpl, err := c.CompileTemplate("hello {{ file.name }}")
	require.NoError(t, err)

	out, err := tmpl.Render(&fakeEvalContext{Context: context.Background(), resourcePath: "/tmp/a.txt"})
	require.NoError(t, err)
	assert.Equal(t, "hello /tmp/a.txt", out)
}

func TestCompileTemplate_UnknownVariable(t *testing.T) {
	c := NewCompiler(newTestRegistry())
	_, err := c.CompileTemplate("{{ file.bogus }}")
	require.Error(t, err)
}

func TestCompileTemplate_UnknownRoot(t *testing.T) {
	c := NewCompiler(newTestRegistry())
	_, err := c.CompileTemplate("{{ nope.bogus }}")
	require.Error(t, err)
}

func TestRender_NoDynamicPartsIsIdentity(t *testing.T) {
	c := NewCompiler(newTestRegistry())
	src := "just a literal string"
	tmpl, err := c.CompileTemplate(src)
	require.NoError(t, err)
	assert.False(t, tmpl.HasDynamic())

	out, err := tmpl.Render(&fakeEvalContext{Context: context.Background()})
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestRender_OptionStringRendersEmptyWhenAbsent(t *testing.T) {
	c := NewCompiler(newTestRegistry())
	tmpl, err := c.CompileTemplate("[{{ env.MISSING }}]")
	require.NoError(t, err)

	out, err := tmpl.Render(&fakeEvalContext{Context: context.Background(), env: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}
