package template

// VariableProvider contributes one root name (file, env, user, sys, root,
// rule, args, uuid, config, hash, batch, ...) and the schema beneath it.
// Providers are stateless: Schema is built once per Compiler and reused
// across every compiled Template.
type VariableProvider interface {
	Name() string
	Schema() Schema
}

// FunctionBuilder compiles a call to a named function. It receives the
// argument expressions (not yet evaluated) and the Compiler so it can
// recursively compile them, then validates its own arity/type
// requirements and returns a compiled Accessor.
type FunctionBuilder interface {
	Name() string
	Build(c *Compiler, args []Expr) (Accessor, error)
}

// Registry collects variable providers and function builders. A single
// process-wide Registry is built at startup from every built-in (and
// plugin-contributed) provider/builder; Compiler is constructed from it.
type Registry struct {
	providers map[string]VariableProvider
	functions map[string]FunctionBuilder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]VariableProvider),
		functions: make(map[string]FunctionBuilder),
	}
}

// RegisterVariable adds a variable provider. Panics on duplicate names
// since providers are registered once at process startup from init-time
// plugin lists, never from user input.
func (r *Registry) RegisterVariable(p VariableProvider) {
	if _, exists := r.providers[p.Name()]; exists {
		panic("template: duplicate variable provider: " + p.Name())
	}
	r.providers[p.Name()] = p
}

// RegisterFunction adds a function builder.
func (r *Registry) RegisterFunction(b FunctionBuilder) {
	if _, exists := r.functions[b.Name()]; exists {
		panic("template: duplicate function builder: " + b.Name())
	}
	r.functions[b.Name()] = b
}
