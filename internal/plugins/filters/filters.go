// Package filters implements the built-in Filter plugins: extension,
// regex, empty, mime, content, and the not/any_of/all_of/none_of
// combinators. Every type registers itself against internal/plugin's
// registry from an init(), so importing this package for side effect is
// enough to make its tags available to rule compilation.
package filters

import (
	"fmt"
	"regexp"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/template"
)

func init() {
	plugin.RegisterFilter("extension", buildExtension)
	plugin.RegisterFilter("regex", buildRegex)
	plugin.RegisterFilter("empty", buildEmpty)
	plugin.RegisterFilter("mime", buildMime)
	plugin.RegisterFilter("content", buildContent)
	plugin.RegisterFilter("not", buildNot)
	plugin.RegisterFilter("any_of", buildAnyOf)
	plugin.RegisterFilter("all_of", buildAllOf)
	plugin.RegisterFilter("none_of", buildNoneOf)
}

func stringList(opts plugin.Options, key string) ([]string, error) {
	raw, ok := opts[key]
	if !ok {
		return nil, fmt.Errorf("%s: missing %q option", key, key)
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%s: %q must be a list of strings", key, key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: %q must be a list of strings", key, key)
	}
}

// extensionFilter keeps resources whose extension (case-sensitive, no
// leading dot) is one of Extensions.
type extensionFilter struct {
	Extensions map[string]bool
}

func buildExtension(opts plugin.Options, _ *template.Compiler) (plugin.Filter, error) {
	list, err := stringList(opts, "extensions")
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(list))
	for _, e := range list {
		set[e] = true
	}
	return extensionFilter{Extensions: set}, nil
}

func (extensionFilter) Tag() string { return "extension" }

func (f extensionFilter) Match(ctx *plugin.Context) (bool, error) {
	return f.Extensions[ctx.Resource.Ext()], nil
}

// regexFilter keeps resources whose base name matches Pattern.
type regexFilter struct {
	Pattern *regexp.Regexp
}

func buildRegex(opts plugin.Options, _ *template.Compiler) (plugin.Filter, error) {
	raw, ok := opts["pattern"]
	if !ok {
		return nil, fmt.Errorf("regex: missing %q option", "pattern")
	}
	pattern, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("regex: %q must be a string", "pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regex: invalid pattern: %w", err)
	}
	return regexFilter{Pattern: re}, nil
}

func (regexFilter) Tag() string { return "regex" }

func (f regexFilter) Match(ctx *plugin.Context) (bool, error) {
	return f.Pattern.MatchString(ctx.Resource.Name()), nil
}

// emptyFilter keeps files with zero bytes (or empty directories).
type emptyFilter struct{}

func buildEmpty(plugin.Options, *template.Compiler) (plugin.Filter, error) {
	return emptyFilter{}, nil
}

func (emptyFilter) Tag() string { return "empty" }

func (emptyFilter) Match(ctx *plugin.Context) (bool, error) {
	r, size, err := ctx.ResourceReader()
	if err != nil {
		return false, err
	}
	defer r.Close()
	return size == 0, nil
}

// mimeFilter keeps resources whose sniffed MIME type matches one of Types
// (exact match, or a "type/*" wildcard prefix).
type mimeFilter struct {
	Types []string
}

func buildMime(opts plugin.Options, _ *template.Compiler) (plugin.Filter, error) {
	list, err := stringList(opts, "types")
	if err != nil {
		return nil, err
	}
	return mimeFilter{Types: list}, nil
}

func (mimeFilter) Tag() string { return "mime" }

func (f mimeFilter) Match(ctx *plugin.Context) (bool, error) {
	r, _, err := ctx.ResourceReader()
	if err != nil {
		return false, err
	}
	defer r.Close()

	buf := make([]byte, 3072)
	n, _ := r.ReadAt(buf, 0)
	detected := mimetype.Detect(buf[:n])

	for _, want := range f.Types {
		for m := detected; m != nil; m = m.Parent() {
			if matchMime(m.String(), want) {
				return true, nil
			}
		}
	}
	return false, nil
}

func matchMime(got, want string) bool {
	if got == want {
		return true
	}
	if len(want) > 2 && want[len(want)-2:] == "/*" {
		return len(got) >= len(want)-1 && got[:len(want)-1] == want[:len(want)-1]
	}
	return false
}

// contentFilter keeps resources whose extracted text content matches
// Pattern. Only PDF content extraction is implemented; every other
// extension is matched against its raw bytes.
type contentFilter struct {
	Pattern *regexp.Regexp
}

func buildContent(opts plugin.Options, _ *template.Compiler) (plugin.Filter, error) {
	raw, ok := opts["pattern"]
	if !ok {
		return nil, fmt.Errorf("content: missing %q option", "pattern")
	}
	pattern, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("content: %q must be a string", "pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("content: invalid pattern: %w", err)
	}
	return contentFilter{Pattern: re}, nil
}

func (contentFilter) Tag() string { return "content" }

func (f contentFilter) Match(ctx *plugin.Context) (bool, error) {
	if ctx.Resource.Ext() != "pdf" {
		r, _, err := ctx.ResourceReader()
		if err != nil {
			return false, err
		}
		defer r.Close()
		buf := make([]byte, 1<<20)
		n, _ := r.ReadAt(buf, 0)
		return f.Pattern.Match(buf[:n]), nil
	}

	path, err := ctx.ResourcePath()
	if err != nil {
		return false, err
	}
	file, doc, err := pdf.Open(path)
	if err != nil {
		return false, nil // unreadable PDF never matches, never errors the run
	}
	defer file.Close()

	text, err := doc.GetPlainText()
	if err != nil {
		return false, nil
	}
	buf := make([]byte, 1<<20)
	n, _ := text.Read(buf)
	return f.Pattern.Match(buf[:n]), nil
}

// combinator wraps sub-filters built by the rule compiler under
// opts["filters"] for the not/any_of/all_of/none_of tags.
type combinator struct {
	Tag_  string
	Sub   []plugin.Filter
	Apply func(sub []plugin.Filter, ctx *plugin.Context) (bool, error)
}

func subFilters(opts plugin.Options) ([]plugin.Filter, error) {
	raw, ok := opts["filters"]
	if !ok {
		return nil, fmt.Errorf("combinator: missing compiled sub-filters")
	}
	sub, ok := raw.([]plugin.Filter)
	if !ok {
		return nil, fmt.Errorf("combinator: malformed sub-filters")
	}
	return sub, nil
}

func buildNot(opts plugin.Options, _ *template.Compiler) (plugin.Filter, error) {
	sub, err := subFilters(opts)
	if err != nil {
		return nil, err
	}
	if len(sub) != 1 {
		return nil, fmt.Errorf("not: expects exactly one sub-filter, got %d", len(sub))
	}
	return combinator{Tag_: "not", Sub: sub, Apply: applyNot}, nil
}

func buildAnyOf(opts plugin.Options, _ *template.Compiler) (plugin.Filter, error) {
	sub, err := subFilters(opts)
	if err != nil {
		return nil, err
	}
	return combinator{Tag_: "any_of", Sub: sub, Apply: applyAnyOf}, nil
}

func buildAllOf(opts plugin.Options, _ *template.Compiler) (plugin.Filter, error) {
	sub, err := subFilters(opts)
	if err != nil {
		return nil, err
	}
	return combinator{Tag_: "all_of", Sub: sub, Apply: applyAllOf}, nil
}

func buildNoneOf(opts plugin.Options, _ *template.Compiler) (plugin.Filter, error) {
	sub, err := subFilters(opts)
	if err != nil {
		return nil, err
	}
	return combinator{Tag_: "none_of", Sub: sub, Apply: applyNoneOf}, nil
}

func (c combinator) Tag() string { return c.Tag_ }

func (c combinator) Match(ctx *plugin.Context) (bool, error) {
	return c.Apply(c.Sub, ctx)
}

func applyNot(sub []plugin.Filter, ctx *plugin.Context) (bool, error) {
	ok, err := sub[0].Match(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func applyAnyOf(sub []plugin.Filter, ctx *plugin.Context) (bool, error) {
	for _, f := range sub {
		ok, err := f.Match(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func applyAllOf(sub []plugin.Filter, ctx *plugin.Context) (bool, error) {
	for _, f := range sub {
		ok, err := f.Match(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func applyNoneOf(sub []plugin.Filter, ctx *plugin.Context) (bool, error) {
	ok, err := applyAnyOf(sub, ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
