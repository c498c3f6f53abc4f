package template

import "github.com/cbr9/organizer/internal/xerrors"

// Schema describes the shape of one variable provider's namespace so the
// compiler can resolve a dotted Variable path to a concrete Accessor
// without ever touching live data: name resolution happens once, at
// compile time, so a malformed template in a large rule fails before the
// first file is ever processed rather than on the 10,000th.
type Schema interface {
	isSchema()
}

// Terminal is a leaf of the schema: no further dotted children, resolves
// directly to an Accessor.
type Terminal struct {
	Get Accessor
}

func (Terminal) isSchema() {}

// Object is a schema node with a fixed set of named children.
type Object struct {
	Children map[string]Schema
}

func (Object) isSchema() {}

// DynamicMap accepts any key and instantiates an accessor parameterised by
// it (env.HOME, args.FOO, config.ANY_KEY).
type DynamicMap struct {
	Child func(key string) Schema
}

func (DynamicMap) isSchema() {}

// resolve walks parts against root, returning the Terminal accessor at the
// end of the path or an UnknownVariable-class error.
func resolve(providerName string, root Schema, parts []string) (Accessor, error) {
	node := root
	for i, part := range parts {
		switch n := node.(type) {
		case Terminal:
			return nil, unknownVariable(providerName, parts, i)
		case Object:
			child, ok := n.Children[part]
			if !ok {
				return nil, unknownVariable(providerName, parts, i)
			}
			node = child
		case DynamicMap:
			node = n.Child(part)
		default:
			return nil, unknownVariable(providerName, parts, i)
		}
	}
	term, ok := node.(Terminal)
	if !ok {
		return nil, unknownVariable(providerName, parts, len(parts))
	}
	return term.Get, nil
}

func unknownVariable(providerName string, parts []string, depth int) error {
	path := providerName
	for i, p := range parts {
		if i > depth {
			break
		}
		path += "." + p
	}
	return &UnknownVariableError{Path: path}
}

// UnknownVariableError is raised at compile time when a dotted path does
// not resolve to a Terminal in any registered provider's schema.
type UnknownVariableError struct {
	Path string
}

func (e *UnknownVariableError) Error() string {
	return "unknown variable: " + e.Path
}

// AsTemplateError wraps e as an xerrors.Template error.
func (e *UnknownVariableError) AsTemplateError() *xerrors.Error {
	return xerrors.Templatef(e.Error(), e)
}
