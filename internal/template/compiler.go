package template

import (
	"fmt"

	"github.com/cbr9/organizer/internal/xerrors"
)

// Compiler resolves variable/function names against a Registry, producing
// Templates whose every Dynamic part is already a concrete Accessor.
type Compiler struct {
	registry *Registry
}

// NewCompiler builds a Compiler bound to reg.
func NewCompiler(reg *Registry) *Compiler {
	return &Compiler{registry: reg}
}

// Part is one segment of a compiled Template.
type Part struct {
	Static  string  // valid when Dyn == nil
	Dyn     Accessor
	IsDyn   bool
	Source  string // original `{{ ... }}` text, for diagnostics
}

// Template is a sequence of static and compiled dynamic parts.
type Template struct {
	Parts  []Part
	Source string
}

// CompileTemplate parses s and resolves every dynamic region into a
// concrete Accessor. Parse errors and unknown-variable/function errors
// both surface as xerrors.Parse / xerrors.Template errors.
func (c *Compiler) CompileTemplate(s string) (*Template, error) {
	parsed, err := Parse(s)
	if err != nil {
		return nil, err
	}
	t := &Template{Source: s}
	for _, seg := range parsed.Segments {
		if seg.Dyn == nil {
			t.Parts = append(t.Parts, Part{Static: seg.Literal})
			continue
		}
		acc, err := c.compileExpr(seg.Dyn)
		if err != nil {
			return nil, err
		}
		t.Parts = append(t.Parts, Part{Dyn: acc, IsDyn: true, Source: seg.Source})
	}
	return t, nil
}

func (c *Compiler) compileExpr(e Expr) (Accessor, error) {
	switch v := e.(type) {
	case Variable:
		return c.compileVariable(v)
	case Literal:
		val := v.Value
		return func(EvalContext) (Value, error) { return String(val), nil }, nil
	case FunctionCall:
		builder, ok := c.registry.functions[v.Name]
		if !ok {
			return nil, xerrors.Templatef(fmt.Sprintf("unknown function: %s", v.Name), nil)
		}
		return builder.Build(c, v.Args)
	default:
		return nil, xerrors.Templatef("invalid expression", nil)
	}
}

func (c *Compiler) compileVariable(v Variable) (Accessor, error) {
	if len(v.Parts) == 0 {
		return nil, xerrors.Templatef("empty variable path", nil)
	}
	root, ok := c.registry.providers[v.Parts[0]]
	if !ok {
		err := &UnknownVariableError{Path: v.String()}
		return nil, err.AsTemplateError()
	}
	acc, err := resolve(root.Name(), root.Schema(), v.Parts[1:])
	if err != nil {
		if uv, ok := err.(*UnknownVariableError); ok {
			return nil, uv.AsTemplateError()
		}
		return nil, err
	}
	return acc, nil
}

// CompileArg compiles a single argument expression using the same
// registry; exported so FunctionBuilder implementations can recursively
// compile their arguments (e.g. a nested variable or function call).
func (c *Compiler) CompileArg(e Expr) (Accessor, error) {
	return c.compileExpr(e)
}

// Render evaluates every part of t against ec and concatenates the result.
// Rendering is sequential: accessors are evaluated in source order.
func (t *Template) Render(ec EvalContext) (string, error) {
	out := ""
	for _, p := range t.Parts {
		if !p.IsDyn {
			out += p.Static
			continue
		}
		v, err := p.Dyn(ec)
		if err != nil {
			return "", err
		}
		out += v.String()
	}
	return out, nil
}

// HasDynamic reports whether t contains any Dynamic part. Templates with
// none render identically to their source text regardless of context.
func (t *Template) HasDynamic() bool {
	for _, p := range t.Parts {
		if p.IsDyn {
			return true
		}
	}
	return false
}
