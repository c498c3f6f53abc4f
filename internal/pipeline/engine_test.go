package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
)

func TestEngine_RunWithoutJournalSkipsSessionLifecycle(t *testing.T) {
	res := resource.New("file", "/home/user/a.txt", "/home/user", false)
	services := newTestServices(t, []*resource.Resource{res})

	seen := &recorder{}
	r := makeRule(t, []rule.Stage{
		{Kind: rule.StageLocations, Locations: []rule.Location{{Host: "file", Path: "/home/user"}}},
		{Kind: rule.StageAction, Action: recordingAction{seen: seen}},
	})

	eng := NewEngine(services)
	result, err := eng.Run(context.Background(), []*rule.Rule{r}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, result.RulesRun)
	assert.Equal(t, 0, result.RulesFailed)
	assert.Equal(t, []string{"/home/user/a.txt"}, seen.snapshot())
}

func TestEngine_RunStopsAfterFailingRule(t *testing.T) {
	services := newTestServices(t, nil)
	badRule := makeRule(t, []rule.Stage{{Kind: rule.StageFilter}})

	eng := NewEngine(services)
	result, err := eng.Run(context.Background(), []*rule.Rule{badRule}, "")
	require.Error(t, err)
	assert.Equal(t, 1, result.RulesFailed)
}
