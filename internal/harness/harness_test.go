package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "testdata/scenarios"

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(scenariosDir)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result := Run(context.Background(), s, scenariosDir)
			assert.True(t, result.Pass, "expectation failures: %v", result.Errors)
		})
	}
}

func TestScenarioGolden(t *testing.T) {
	for _, name := range []string{"user_basic", "batch_consistency"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(scenariosDir + "/" + name + ".yaml")
			require.NoError(t, err)

			result := Run(context.Background(), s, scenariosDir)
			AssertGolden(t, name, result)
		})
	}
}

func TestRunReportsWrongErrorCode(t *testing.T) {
	s := &Scenario{
		Name:  "wrong_code",
		Input: `{"email": "a@x.com"}`,
		Expect: Expectations{
			Error: "CYCLIC_GRAPH",
		},
	}
	require.NoError(t, s.Validate())

	result := Run(context.Background(), s, ".")
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "expected error CYCLIC_GRAPH")
}

func TestRunReportsFailedExpectation(t *testing.T) {
	s := &Scenario{
		Name:  "never_changes",
		Input: `{"note": "hello"}`,
		Expect: Expectations{
			Changed: []string{"note"},
		},
	}
	require.NoError(t, s.Validate())

	result := Run(context.Background(), s, ".")
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "did not change")
}

func TestRunInvalidInput(t *testing.T) {
	s := &Scenario{Name: "bad_input", Input: `{broken`}
	result := Run(context.Background(), s, ".")
	assert.False(t, result.Pass)
}

func TestRunAuditCounts(t *testing.T) {
	s, err := LoadScenario(scenariosDir + "/user_basic.yaml")
	require.NoError(t, err)

	result := Run(context.Background(), s, scenariosDir)
	require.True(t, result.Pass, "%v", result.Errors)
	require.NotNil(t, result.Audit)
	assert.Equal(t, 1, result.Audit.Total)
}
