// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	resetForTest(t)
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "codevolver version "+Version)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"evolve", "clear", "status", "chat", "json", "audio", "speak", "models"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRootCmd_StatusWithConfigFile(t *testing.T) {
	resetForTest(t)
	project := t.TempDir()
	path := writeConfig(t, `
logger:
  level: error
llm:
  env_file: ""
evolver:
  project_root: `+project+`
  slots: 2
  parents: [Left, Right]
  watch: false
`)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "status"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "SLOT")
	assert.Contains(t, out.String(), "Left")
	assert.Contains(t, out.String(), "Right")
	assert.Contains(t, out.String(), "idle")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	resetForTest(t)
	path := writeConfig(t, "evolver:\n  slots: 0\n")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "status"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "failed to load or validate config")
}

func TestRootCmd_UnreadableConfig(t *testing.T) {
	resetForTest(t)
	path := writeConfig(t, "evolver: [unclosed")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "status"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "failed to initialize configuration")
}

func TestRootCmd_ModelCommandsNeedKey(t *testing.T) {
	resetForTest(t)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CODEVOLVER_LLM_API_KEY", "")
	path := writeConfig(t, "logger:\n  level: fatal\nllm:\n  env_file: \"\"\n")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "chat", "hello"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "required configuration missing")
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.ErrorContains(t, err, "configuration not found")

	cfg := newTestConfig(t, t.TempDir())
	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, cfg))
	require.NoError(t, err)
	assert.Equal(t, 2, got.Evolver().Slots)
}
