package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalTrace_Stable(t *testing.T) {
	result := NewResult()
	result.Trace = append(result.Trace,
		TraceEvent{Seq: 1, Type: EventInvocation, Op: OpAdd, Args: map[string]any{"quantity": 1, "product": "A&B"}},
		TraceEvent{Seq: 2, Type: EventToast, Result: map[string]any{"visible": false}},
	)
	result.State = map[string]any{"version": int64(1), "item_count": 1}

	first, err := MarshalTrace("stable", result)
	require.NoError(t, err)
	second, err := MarshalTrace("stable", result)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, json.Valid(first))
	assert.Contains(t, string(first), `"product": "A&B"`)
	assert.NotContains(t, string(first), `"op": ""`)
	assert.Equal(t, byte('\n'), first[len(first)-1])
}

// Regenerate with:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{
		"add_increment_remove",
		"toast_latest_wins",
		"bundle_quote",
	} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(scenarioPath(name))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
