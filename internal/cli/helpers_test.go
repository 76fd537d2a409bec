package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// testBatch has one winner per category and no identity collisions, so the
// outcome does not depend on dispatch order.
const testBatch = `[
  {"id": "A", "accountType": "savings", "tokens": 10, "version": 1, "callbackTimeMs": 5},
  {"id": "B", "accountType": "savings", "tokens": 30, "version": 1, "callbackTimeMs": 20, "data": {"note": "big"}},
  {"id": "C", "accountType": "checking", "tokens": 5, "callbackTimeMs": 10}
]`

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// noEnv is an empty environment.
func noEnv(string) (string, bool) { return "", false }

// envOf builds a lookup over a fixed environment.
func envOf(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
