package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `products:
  - id: omega-3
    name: Omega 3 Fish Oil
    price: "24.90"
    compare_at_price: "29.90"
    stock: 40
  - id: magnesium-glycinate
    name: Magnesium Glycinate
    price: "18.50"
    stock: 25
  - id: vitamin-d3-k2
    name: Vitamin D3 + K2
    price: "15.00"
    stock: 0
`

// testEnv is a temp directory holding a catalog, a sqlite database and a
// config file pointing at both.
type testEnv struct {
	dir     string
	config  string
	catalog string
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		config:  filepath.Join(dir, "cartctl.yaml"),
		catalog: filepath.Join(dir, "catalog.yaml"),
	}
	require.NoError(t, os.WriteFile(env.catalog, []byte(testCatalogYAML), 0644))

	cfg := fmt.Sprintf("storage: sqlite\nsqlite:\n  path: %s\ncatalog: %s\nlog_level: error\n%s",
		filepath.Join(dir, "cart.db"), env.catalog, extraConfig)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0644))
	return env
}

// run executes cartctl with the env's config and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// response is CLIResponse with a typed payload.
type response[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decodeResponse[T any](t *testing.T, out string) response[T] {
	t.Helper()
	var resp response[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}
