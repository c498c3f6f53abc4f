package template

import "context"

// EvalContext is the minimal runtime surface an Accessor needs. It is
// implemented by the engine's ExecutionContext; the template package never
// imports the engine, keeping the compiler independent of pipeline
// execution concerns.
type EvalContext interface {
	context.Context

	// ResourcePath returns the path of the in-scope resource, or an
	// OutOfScope xerrors.Error if the current scope carries none.
	ResourcePath() (string, error)

	// ResourceReader opens the in-scope resource for reading (used by
	// hash/content accessors). Caller must close the returned reader.
	ResourceReader() (ReadAtCloser, int64, error)

	RuleName() string
	RuleDescription() string
	RuleTags() []string

	// Root returns the search root active in scope (Search/Build scopes).
	Root() (string, error)

	Env(key string) (string, bool)
	Arg(key string) (string, bool)
	ConfigValue(key string) (string, bool)

	// Prompt delegates to the UI port's synchronous input().
	Prompt(prompt string) (string, error)

	// BatchName/BatchContext expose the in-scope batch, when one exists.
	BatchName() (string, error)
	BatchContext(key string) (string, bool, error)
}

// ReadAtCloser is the minimal file handle accessors that hash or parse
// content need.
type ReadAtCloser interface {
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// Accessor is a compiled, executable handle to one dotted path or function
// call in a template. Evaluation may block (file hashing, content
// extraction, prompting) so it takes a context for cancellation.
type Accessor func(ctx EvalContext) (Value, error)
