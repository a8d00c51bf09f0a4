package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/PRDWing/internal/store"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		jsonOutput, assumeYes = false, false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCmd(t *testing.T) {
	t.Setenv("PRDWING_DATA_PATH", t.TempDir())

	output, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, output, "PRDWing - turn rough product notes into a PRD")
	assert.Contains(t, output, "Usage:")
	for _, sub := range []string{"project", "analyze", "select", "refine", "generate", "regenerate", "finalize", "edit", "prefs", "serve", "mcp"} {
		assert.Contains(t, output, sub)
	}
}

func TestVersion(t *testing.T) {
	t.Setenv("PRDWING_DATA_PATH", t.TempDir())

	output, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "prdwing version "+GetVersion()+"\n", output)
}

func TestProjectLifecycle_JSON(t *testing.T) {
	t.Setenv("PRDWING_DATA_PATH", t.TempDir())

	output, err := run(t, "--json", "project", "create", "Acme", "Rockets")
	require.NoError(t, err)
	var created store.Project
	require.NoError(t, json.Unmarshal([]byte(output), &created))
	assert.Equal(t, "Acme Rockets", created.Name)
	require.Len(t, created.Steps, store.StepCount)

	output, err = run(t, "--json", "project", "list")
	require.NoError(t, err)
	var listed []store.Project
	require.NoError(t, json.Unmarshal([]byte(output), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	output, err = run(t, "--json", "project", "rename", created.ID[:8], "Acme", "Launch")
	require.NoError(t, err)
	assert.Contains(t, output, `"Acme Launch"`)

	output, err = run(t, "--json", "edit", created.ID, "1", "--set", "context=notes", "--set", `ideas=["A","B"]`)
	require.NoError(t, err)
	var edited store.Project
	require.NoError(t, json.Unmarshal([]byte(output), &edited))
	assert.Equal(t, "notes", edited.Step(1).Content["context"])
	assert.Equal(t, []any{"A", "B"}, edited.Step(1).Content["ideas"])

	_, err = run(t, "--json", "generate", created.ID)
	assert.ErrorContains(t, err, "complete the idea refinement first")

	_, err = run(t, "--json", "--yes", "project", "delete", "Acme Launch")
	require.NoError(t, err)

	_, err = run(t, "project", "show", created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProjectDelete_NeedsConfirmation(t *testing.T) {
	t.Setenv("PRDWING_DATA_PATH", t.TempDir())

	output, err := run(t, "--json", "project", "create", "Keep")
	require.NoError(t, err)
	var created store.Project
	require.NoError(t, json.Unmarshal([]byte(output), &created))

	_, err = run(t, "project", "delete", created.ID)
	assert.Error(t, err)

	_, err = run(t, "project", "show", created.ID)
	assert.NoError(t, err)
}
