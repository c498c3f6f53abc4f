package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/ui"
)

// stubUI satisfies ui.Interface for tests that only exercise Prompt.
type stubUI struct{ answer string }

func (s stubUI) Message(ui.Level, string, ...any)     {}
func (s stubUI) Progress(ui.Progress)                 {}
func (s stubUI) Prompt(string) (string, error)        { return s.answer, nil }
func (s stubUI) Confirm(string) (bool, error)         { return true, nil }
func (s stubUI) Select(string, []string) (int, error) { return 0, nil }
func (s stubUI) Close() error                         { return nil }

func TestExecutionScope_ResourceOrErrOutOfScopeOutsideResourceScope(t *testing.T) {
	scope := Blank()
	_, err := scope.ResourceOrErr()
	require.Error(t, err)
}

func TestExecutionScope_ResourceOrErrReturnsScopedResource(t *testing.T) {
	r := &rule.Rule{Name: "test"}
	res := resource.New("file", "/home/user/a.txt", "downloads", false)
	scope := ResourceScope(r, res)

	got, err := scope.ResourceOrErr()
	require.NoError(t, err)
	assert.Same(t, res, got)
}

func TestExecutionScope_WithResourceKeepsRule(t *testing.T) {
	r := &rule.Rule{Name: "test"}
	base := RuleScope(r)
	res := resource.New("file", "/home/user/a.txt", "downloads", false)

	narrowed := base.WithResource(res)
	got, err := narrowed.RuleOrErr()
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestExecutionContext_RootRequiresBuildOrSearchScope(t *testing.T) {
	ec := New(context.Background(), &RunServices{}, nil, nil)
	_, err := ec.Root()
	require.Error(t, err)

	ec.Scope = BuildScope("/home/user")
	root, err := ec.Root()
	require.NoError(t, err)
	assert.Equal(t, "/home/user", root)
}

func TestExecutionContext_ArgAndConfigValue(t *testing.T) {
	ec := New(context.Background(), &RunServices{}, map[string]string{"name": "x"}, map[string]string{"host": "y"})

	v, ok := ec.Arg("name")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	v, ok = ec.ConfigValue("host")
	assert.True(t, ok)
	assert.Equal(t, "y", v)

	_, ok = ec.Arg("missing")
	assert.False(t, ok)
}

func TestExecutionContext_PromptDelegatesToUI(t *testing.T) {
	services := &RunServices{UI: stubUI{answer: "yes"}}
	ec := New(context.Background(), services, nil, nil)

	answer, err := ec.Prompt("continue?")
	require.NoError(t, err)
	assert.Equal(t, "yes", answer)
}

func TestExecutionContext_RuleNameEmptyOutsideRuleScope(t *testing.T) {
	ec := New(context.Background(), &RunServices{}, nil, nil)
	assert.Equal(t, "", ec.RuleName())

	ec.Scope = RuleScope(&rule.Rule{Name: "downloads-cleanup"})
	assert.Equal(t, "downloads-cleanup", ec.RuleName())
}

func TestExecutionContext_BatchContextOutOfScope(t *testing.T) {
	ec := New(context.Background(), &RunServices{}, nil, nil)
	_, _, err := ec.BatchContext("group")
	require.Error(t, err)
}

func TestRunServices_BlackboardRoundTrips(t *testing.T) {
	services := &RunServices{}
	services.SetBlackboard("group", "archives")

	v, ok := services.Blackboard("group")
	require.True(t, ok)
	assert.Equal(t, "archives", v)
}
