package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioPath returns the path of a scenario under the repository's
// testdata/scenarios directory. Tests run from the package directory.
func scenarioPath(name string) string {
	return filepath.Join("..", "..", "testdata", "scenarios", name+".yaml")
}

// TestDemoScenarios runs every shipped scenario end to end. They double as
// usage examples for `cartctl test`.
func TestDemoScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := filepath.Base(path[:len(path)-len(filepath.Ext(path))])
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err, "failed to load %s", path)

			assert.Equal(t, name, scenario.Name, "scenario name should match file name")

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.NotEmpty(t, result.Trace)
		})
	}
}

// TestDemoScenariosReplay checks deterministic replay across runs.
func TestDemoScenariosReplay(t *testing.T) {
	scenario, err := LoadScenario(scenarioPath("persist_restart"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	firstJSON, err := MarshalTrace(scenario.Name, first)
	require.NoError(t, err)
	secondJSON, err := MarshalTrace(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}
