// Package xerrors implements the engine's unified error taxonomy.
//
// Every error raised inside the pipeline is one of a closed set of kinds.
// Each carries the wrapped cause (where one exists). The constructors build
// errors without a Context; WithContext returns a copy carrying a Context
// naming a rule and resource.
package xerrors

import "fmt"

// Kind discriminates the error taxonomy.
type Kind int

const (
	// IO covers filesystem/network I/O failures, optionally naming a path
	// and an operation target (e.g. the destination of a move).
	IO Kind = iota
	// Storage covers provider-specific failures, including SSH/SFTP.
	Storage
	// Config covers malformed or contradictory rule/connection configuration.
	Config
	// Parse covers template lexing/parsing failures.
	Parse
	// Template covers template compilation/render failures (unknown
	// variable, bad function arity, accessor evaluation errors).
	Template
	// JSON covers JSON encode/decode failures (the json template variable,
	// journal receipt decoding).
	JSON
	// Backup covers failures persisting a pre-mutation backup copy.
	Backup
	// Interaction covers UI prompt/confirm failures (EOF on a non-tty, a
	// declined confirmation).
	Interaction
	// OutOfScope is raised when a scope query is made against an
	// ExecutionScope that does not carry the requested value.
	OutOfScope
	// Undo covers undo-operation verification/replay failures.
	Undo
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io"
	case Storage:
		return "storage"
	case Config:
		return "config"
	case Parse:
		return "parse"
	case Template:
		return "template"
	case JSON:
		return "json"
	case Backup:
		return "backup"
	case Interaction:
		return "interaction"
	case OutOfScope:
		return "out_of_scope"
	case Undo:
		return "undo"
	default:
		return "unknown"
	}
}

// Context names the rule and resource active when an error was raised.
type Context struct {
	Rule     string
	Resource string
}

// Error is the concrete error type for every kind in the taxonomy.
type Error struct {
	Kind    Kind
	Msg     string
	Path    string
	Target  string
	Context *Context
	Err     error
}

func (e *Error) Error() string {
	var loc string
	switch {
	case e.Path != "" && e.Target != "":
		loc = fmt.Sprintf(" (%s -> %s)", e.Path, e.Target)
	case e.Path != "":
		loc = fmt.Sprintf(" (%s)", e.Path)
	}
	msg := fmt.Sprintf("%s: %s%s", e.Kind, e.Msg, loc)
	if e.Context != nil {
		msg = fmt.Sprintf("%s [rule=%s resource=%s]", msg, e.Context.Rule, e.Context.Resource)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// WithContext returns a copy of e carrying the given rule/resource context.
func (e *Error) WithContext(rule, resource string) *Error {
	cp := *e
	cp.Context = &Context{Rule: rule, Resource: resource}
	return &cp
}

func newErr(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Msg: msg, Err: err}
}

// Iof builds an IO error, optionally naming path and target.
func Iof(path, target, msg string, err error) *Error {
	return &Error{Kind: IO, Msg: msg, Path: path, Target: target, Err: err}
}

// Storagef builds a Storage error.
func Storagef(msg string, err error) *Error { return newErr(Storage, msg, err) }

// Storagepathf builds a Storage error naming the path it occurred on.
func Storagepathf(path, msg string, err error) *Error {
	return &Error{Kind: Storage, Msg: msg, Path: path, Err: err}
}

// Configf builds a Config error.
func Configf(msg string, err error) *Error { return newErr(Config, msg, err) }

// Parsef builds a Parse error.
func Parsef(msg string, err error) *Error { return newErr(Parse, msg, err) }

// Templatef builds a Template error.
func Templatef(msg string, err error) *Error { return newErr(Template, msg, err) }

// JSONf builds a JSON error.
func JSONf(msg string, err error) *Error { return newErr(JSON, msg, err) }

// Backupf builds a Backup error.
func Backupf(msg string, err error) *Error { return newErr(Backup, msg, err) }

// Interactionf builds an Interaction error.
func Interactionf(msg string, err error) *Error { return newErr(Interaction, msg, err) }

// OutOfScopef builds an OutOfScope error.
func OutOfScopef(msg string) *Error { return newErr(OutOfScope, msg, nil) }

// Undof builds an Undo error.
func Undof(msg string, err error) *Error { return newErr(Undo, msg, err) }

// Is reports whether err is an *Error of the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == k
}

// asError is a small local errors.As to avoid importing errors twice for
// the common case; kept here because it is only ever called with *Error.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
