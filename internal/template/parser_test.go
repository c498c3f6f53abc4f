package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_LiteralOnly(t *testing.T) {
	p, err := Parse("hello world")
	require.NoError(t, err)
	require.Len(t, p.Segments, 1)
	assert.Equal(t, "hello world", p.Segments[0].Literal)
	assert.Nil(t, p.Segments[0].Dyn)
}

func TestParse_Variable(t *testing.T) {
	p, err := Parse("a_{{ file.stem }}_b")
	require.NoError(t, err)
	require.Len(t, p.Segments, 3)
	assert.Equal(t, "a_", p.Segments[0].Literal)
	v, ok := p.Segments[1].Dyn.(Variable)
	require.True(t, ok)
	assert.Equal(t, []string{"file", "stem"}, v.Parts)
	assert.Equal(t, "_b", p.Segments[2].Literal)
}

func TestParse_FunctionCall(t *testing.T) {
	p, err := Parse(`{{ input("Enter a name") }}`)
	require.NoError(t, err)
	require.Len(t, p.Segments, 1)
	fc, ok := p.Segments[0].Dyn.(FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "input", fc.Name)
	require.Len(t, fc.Args, 1)
	lit, ok := fc.Args[0].(Literal)
	require.True(t, ok)
	assert.Equal(t, "Enter a name", lit.Value)
}

func TestParse_MismatchedDelimiters(t *testing.T) {
	_, err := Parse("{{ file.stem")
	require.Error(t, err)

	_, err = Parse("file.stem }}")
	require.Error(t, err)
}

func TestParse_RoundTripsSource(t *testing.T) {
	// Property 1: literal segments concatenated with the original
	// delimited expression text reconstruct the source exactly.
	inputs := []string{
		"plain text, no expressions",
		"{{ file.name }}",
		"prefix-{{ file.stem }}-mid-{{ file.extension }}-suffix",
		`{{ input("a, b {{ c") }}`, // braces inside a string literal
	}
	for _, s := range inputs {
		p, err := Parse(s)
		require.NoError(t, err, s)
		rebuilt := ""
		for _, seg := range p.Segments {
			if seg.Dyn == nil {
				rebuilt += seg.Literal
			} else {
				rebuilt += seg.Source
			}
		}
		assert.Equal(t, s, rebuilt)
	}
}

func TestParse_DotExpressionNested(t *testing.T) {
	p, err := Parse("{{ file.stem.extension }}")
	require.NoError(t, err)
	v := p.Segments[0].Dyn.(Variable)
	assert.Equal(t, []string{"file", "stem", "extension"}, v.Parts)
}
