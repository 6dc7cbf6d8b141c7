package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func gemfile(lockAware bool) ResourceSpec {
	return ResourceSpec{Property: "Gemfile", File: "Gemfile", LockAware: lockAware}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Resource:    gemfile(false),
		Flow: []Step{
			{Op: OpStore, Data: strPtr("v1")},
		},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Op: OpStore},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, EventInvocation, result.Trace[0].Type)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, map[string]any{"data": "v1"}, result.Trace[0].Args)
	assert.Equal(t, EventCompletion, result.Trace[1].Type)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
	assert.Equal(t, map[string]any{"changed": true}, result.Trace[1].Result)

	assert.Equal(t, "v1", result.State[StateProperty])
	assert.Equal(t, "v1", result.State[StateFile])
	assert.Equal(t, false, result.State[StateLock])
}

func TestRun_SetupIsNotTraced(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup",
		Description: "Setup steps prepare state silently",
		Resource:    gemfile(true),
		Setup: []Step{
			{Op: OpStore, Data: strPtr("v1")},
			{Op: OpWriteLock},
		},
		Flow: []Step{
			{Op: OpRetrieve, Expect: &ExpectClause{
				Outcome: OutcomeOK,
				Result:  map[string]any{"present": true, "value": "v1"},
			}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Expect: map[string]any{StateLock: true}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trace, 2)
}

func TestRun_SetupFailureAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup_fails",
		Description: "A failing setup step is an execution error",
		Resource:    gemfile(false),
		Setup: []Step{
			{Op: OpFailCommits},
			{Op: OpStore, Data: strPtr("v1")},
		},
		Flow:       []Step{{Op: OpRetrieve}},
		Assertions: []Assertion{{Type: AssertTraceCount, Op: OpRetrieve, Count: 1}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 1")
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Second store of identical data is not a change",
		Resource:    gemfile(false),
		Flow: []Step{
			{Op: OpStore, Data: strPtr("v1")},
			{Op: OpStore, Data: strPtr("v1"), Expect: &ExpectClause{
				Outcome: OutcomeOK,
				Result:  map[string]any{"changed": true},
			}},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Op: OpStore, Count: 2}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[1] store: expected result")
}

func TestRun_UnexpectedErrorFailsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected_error",
		Description: "An error without an expect clause fails the scenario",
		Resource:    gemfile(false),
		Flow: []Step{
			{Op: OpFailCommits},
			{Op: OpStore, Data: strPtr("v1")},
		},
		Assertions: []Assertion{{Type: AssertFinalState, Expect: map[string]any{StateProperty: nil, StateFile: nil}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, OutcomeError, result.Trace[3].Outcome)
}

func TestRun_ExpectedError(t *testing.T) {
	scenario := &Scenario{
		Name:        "expected_error",
		Description: "Expected failures pass",
		Resource:    gemfile(false),
		Flow: []Step{
			{Op: OpFailCommits},
			{Op: OpStore, Data: strPtr("v1"), Expect: &ExpectClause{Outcome: OutcomeError}},
			{Op: OpHeal},
			{Op: OpExists, Expect: &ExpectClause{
				Outcome: OutcomeOK,
				Result:  map[string]any{"exists": false},
			}},
		},
		Assertions: []Assertion{{Type: AssertFinalState, Expect: map[string]any{StateProperty: nil, StateFile: nil}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Normalization(t *testing.T) {
	spec := gemfile(false)
	spec.Normalize = "nfc"
	scenario := &Scenario{
		Name:        "normalized",
		Description: "Stored values are read back normalized",
		Resource:    spec,
		Flow: []Step{
			{Op: OpStore, Data: strPtr("cafe\u0301")},
		},
		Assertions: []Assertion{{Type: AssertFinalState, Expect: map[string]any{
			StateProperty: "caf\u00e9",
			StateFile:     "caf\u00e9",
		}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BothBackends(t *testing.T) {
	for _, backend := range []string{"sqlite", "badger"} {
		t.Run(backend, func(t *testing.T) {
			scenario := &Scenario{
				Name:        "backend_" + backend,
				Description: "Round trip",
				Backend:     backend,
				Resource:    gemfile(false),
				Flow: []Step{
					{Op: OpStore, Data: strPtr("v1")},
					{Op: OpDelete},
				},
				Assertions: []Assertion{{Type: AssertFinalState, Expect: map[string]any{
					StateProperty: nil,
					StateFile:     nil,
				}}},
			}

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
