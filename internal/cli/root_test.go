package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/taskbreak/pkg/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"serve", "console", "run"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "config.json", flag.DefValue)
}

func TestRun_MissingCredentialFailsFast(t *testing.T) {
	t.Setenv(config.CredentialEnv, "")
	path := writeConfig(t, `
providers:
  googleai:
    model: gemini-2.5-flash
    enabled: true
`)

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--config", path, "run", "Plan a 3-day trip to Taipei"})

	err := cmd.Execute()
	assert.True(t, errors.Is(err, config.ErrMissingCredential), "got %v", err)
}

func TestRun_RequiresTask(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run"})
	assert.Error(t, cmd.Execute())
}

func TestBootstrap_WiresServices(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
app:
  workspace: `+filepath.Join(dir, "exports")+`
providers:
  ollama:
    model: llama3
    enabled: true
memory:
  path: `+filepath.Join(dir, "history.db")+`
policy:
  max_input_len: 200
  deny_patterns: ["(?i)password"]
logging:
  llm_log_path: `+filepath.Join(dir, "llm.jsonl")+`
`)

	rt, err := bootstrap(context.Background(), &App{ConfigPath: path})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, 2, rt.brain.Tools.Len())
	assert.NotNil(t, rt.brain.Tools.Get("web_search"))
	assert.NotNil(t, rt.brain.Tools.Get("read_page"))
	assert.Nil(t, rt.browser)
	assert.Equal(t, 0.8, rt.brain.Options.ContentTemperature)
	require.NotNil(t, rt.history)
	assert.Equal(t, 200, rt.policy.MaxInputLen)
	assert.Len(t, rt.policy.DeniedRegex, 1)

	s := rt.newSession("chat-1")
	assert.Same(t, rt.history, s.Archiver)
	assert.NotNil(t, rt.dispatcher().History)
}

func TestBootstrap_GroundingOff(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
providers:
  ollama:
    model: llama3
    enabled: true
generation:
  grounding: false
logging:
  llm_log_path: `+filepath.Join(dir, "llm.jsonl")+`
`)

	rt, err := bootstrap(context.Background(), &App{ConfigPath: path})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, 0, rt.brain.Tools.Len())
	assert.Nil(t, rt.history)
	assert.Nil(t, rt.dispatcher().History)
}

func TestBuildPolicy_InvalidPattern(t *testing.T) {
	_, err := buildPolicy(config.PolicyConfig{DenyPatterns: []string{"("}})
	assert.Error(t, err)
}
