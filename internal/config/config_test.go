package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/PRDWing/internal/llm"
	"github.com/josephgoksu/PRDWing/internal/prd"
)

func resetViperForTest(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".prdwing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestInit_ReadsFileAndDefaults(t *testing.T) {
	resetViperForTest(t)
	path := writeConfig(t, `
llm:
  provider: anthropic
  timeout: 45s
  apiKeys:
    anthropic: sk-ant
preferences:
  techStack:
    frontend: Svelte
`)

	cfg, err := Init(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "Svelte", cfg.Preferences.TechStack.Frontend)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestInit_RejectsInvalidConfig(t *testing.T) {
	resetViperForTest(t)
	path := writeConfig(t, "llm:\n  provider: watson\n")

	_, err := Init(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestInit_MissingExplicitFile(t *testing.T) {
	resetViperForTest(t)
	_, err := Init(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInit_EnvOverrides(t *testing.T) {
	resetViperForTest(t)
	t.Setenv("PRDWING_SERVER_PORT", "9000")
	path := writeConfig(t, "server:\n  port: 8000\n")

	cfg, err := Init(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadLLMConfig(t *testing.T) {
	resetViperForTest(t)
	t.Setenv("OPENAI_API_KEY", " env-key ")

	cfg, err := LoadLLMConfig()
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, llm.DefaultModelForProvider(llm.ProviderOpenAI), cfg.Model)
	assert.Equal(t, "env-key", cfg.APIKey)

	viper.Set("llm.apiKeys.openai", "config-key")
	cfg, err = LoadLLMConfig()
	require.NoError(t, err)
	assert.Equal(t, "config-key", cfg.APIKey, "config key wins over env")

	viper.Set("llm.provider", "ollama")
	cfg, err = LoadLLMConfig()
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultOllamaURL, cfg.BaseURL)

	viper.Set("llm.provider", "bogus")
	_, err = LoadLLMConfig()
	assert.Error(t, err)
}

func TestResolveAPIKey_GeminiFallsBackToGoogleKey(t *testing.T) {
	resetViperForTest(t)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google")
	assert.Equal(t, "google", ResolveAPIKey(llm.ProviderGemini))
	assert.Empty(t, ResolveAPIKey(llm.ProviderOllama))
}

func TestDataDir(t *testing.T) {
	resetViperForTest(t)
	t.Chdir(t.TempDir())

	viper.Set("data.path", "/explicit")
	assert.Equal(t, "/explicit", DataDir())
	viper.Set("data.path", "")

	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)
	assert.Equal(t, filepath.Join(xdg, "prdwing"), DataDir())

	require.NoError(t, os.Mkdir(LocalDir, 0o755))
	assert.Equal(t, LocalDir, DataDir(), "local directory wins over XDG")
	assert.Equal(t, filepath.Join(LocalDir, DBFile), DBPath())
}

func TestSavePreferences_PreservesOtherSettings(t *testing.T) {
	resetViperForTest(t)
	path := writeConfig(t, "llm:\n  provider: gemini\n")
	_, err := Init(path)
	require.NoError(t, err)

	prefs := prd.TechPreferences{Frontend: "React", Database: "SQLite"}
	require.NoError(t, SavePreferences(prefs))
	assert.Equal(t, prefs, LoadPreferences())

	viper.Reset()
	cfg, err := Init(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, prefs, cfg.Preferences.TechStack)
}

func TestSavePreferences_CreatesGlobalFile(t *testing.T) {
	resetViperForTest(t)
	dir := t.TempDir()
	orig := GetGlobalConfigDir
	GetGlobalConfigDir = func() (string, error) { return filepath.Join(dir, ".prdwing"), nil }
	t.Cleanup(func() { GetGlobalConfigDir = orig })

	require.NoError(t, SavePreferences(prd.TechPreferences{Hosting: "Fly"}))
	data, err := os.ReadFile(filepath.Join(dir, ".prdwing", ".prdwing.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hosting: Fly")
}

func TestPreferenceWatcher_Reload(t *testing.T) {
	resetViperForTest(t)
	viper.Set("preferences.techStack.frontend", "Vue")

	w := WatchPreferences(zerolog.Nop())
	assert.Equal(t, "Vue", w.TechPreferences().Frontend)

	viper.Set("preferences.techStack.frontend", "Solid")
	w.onChange(fsnotify.Event{Name: "x", Op: fsnotify.Chmod})
	assert.Equal(t, "Vue", w.TechPreferences().Frontend, "chmod is ignored")

	w.onChange(fsnotify.Event{Name: "x", Op: fsnotify.Write})
	assert.Equal(t, "Solid", w.TechPreferences().Frontend)
}
