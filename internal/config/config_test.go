package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(Options{File: writeConfig(t, "{}\n"), Environ: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, "llama3", cfg.OllamaModel)
	assert.Equal(t, 400, cfg.MaxTokens)
	assert.Equal(t, 160, cfg.MaxCharacters)
	assert.Equal(t, 1, cfg.SuggestedMessages)
	assert.True(t, cfg.UseConfirmation)
	assert.Equal(t, []string{"OpenRouter", "OpenAI", "Ollama"}, cfg.Providers)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "FreeAll", cfg.OpenRouter.Model)
	assert.Equal(t, 5, cfg.OpenRouter.TopN)
	assert.Equal(t, "🔀", cfg.Emoji("header"))
	assert.Equal(t, "blacklist.txt", filepath.Base(cfg.OpenRouter.BlacklistPath))
	assert.True(t, filepath.IsAbs(cfg.HistoryPath), "history path should be expanded")
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := writeConfig(t, `
max_tokens: 200
suggested_messages: 3
emojis:
  header: "🚀"
openrouter:
  model: FreeSmart
  top_n: 2
  blacklist_path: /tmp/gcm-blacklist.txt
providers: [Ollama]
`)

	cfg, err := Load(Options{File: path, Environ: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, 200, cfg.MaxTokens)
	assert.Equal(t, 3, cfg.SuggestedMessages)
	assert.Equal(t, "🚀", cfg.Emoji("header"))
	assert.Equal(t, "🆕", cfg.Emoji("add"), "unset emoji keys keep their default")
	assert.Equal(t, "FreeSmart", cfg.OpenRouter.Model)
	assert.Equal(t, 2, cfg.OpenRouter.TopN)
	assert.Equal(t, "/tmp/gcm-blacklist.txt", cfg.OpenRouter.BlacklistPath)
	assert.Equal(t, []string{"Ollama"}, cfg.Providers)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(Options{
		File: writeConfig(t, "ollama_model: mistral\n"),
		Environ: map[string]string{
			"OPENROUTER_API_KEY": "  or-key \n",
			"OPENROUTER_MODEL":   "FreeTop",
			"OPENAI_API_KEY":     "sk-test",
			"MODEL_TIER":         "premium",
			"OLLAMA_MODEL":       "RANDOM",
			"DEBUG":              "True",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "or-key", cfg.OpenRouter.APIKey)
	assert.Equal(t, "FreeTop", cfg.OpenRouter.Model)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "premium", cfg.OpenAI.Tier)
	assert.Equal(t, "RANDOM", cfg.OllamaModel)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := Load(Options{File: writeConfig(t, "max_tokens: [unterminated\n"), Environ: map[string]string{}})
	require.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".gcm_history.log"), ExpandHome("~/.gcm_history.log"))
	assert.Equal(t, "/var/log/x", ExpandHome("/var/log/x"))
	assert.Equal(t, "~other/x", ExpandHome("~other/x"))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GCM_TEST_A=file\nGCM_TEST_B=file\n"), 0o600))
	t.Setenv("GCM_TEST_A", "process")
	t.Setenv("GCM_TEST_B", "")
	require.NoError(t, os.Unsetenv("GCM_TEST_B"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "process", os.Getenv("GCM_TEST_A"))
	assert.Equal(t, "file", os.Getenv("GCM_TEST_B"))
}
