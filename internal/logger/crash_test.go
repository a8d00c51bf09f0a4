package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetContext(t *testing.T, ctx *CrashContext) {
	t.Helper()
	prev := globalContext
	globalContext = ctx
	t.Cleanup(func() { globalContext = prev })
}

func TestCrashHandler_CreateCrashLog(t *testing.T) {
	resetContext(t, &CrashContext{})
	SetVersion("1.0.0")
	SetCommand("prd")
	SetStage("p-1", "step4")

	log := createCrashLog("test panic")

	assert.Equal(t, "test panic", log.PanicValue)
	assert.Equal(t, "1.0.0", log.Version)
	assert.Equal(t, "prd", log.Command)
	assert.Equal(t, "p-1", log.Project)
	assert.Equal(t, "step4", log.Stage)
	assert.NotEmpty(t, log.StackTrace)
	assert.NotEmpty(t, log.GoVersion)
}

func TestCrashHandler_WriteCrashLog(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), ".prdwing")
	resetContext(t, &CrashContext{basePath: basePath})

	path, err := writeCrashLog(CrashLog{
		Timestamp:  time.Now(),
		Version:    "1.0.0",
		Command:    "analyze",
		PanicValue: "test panic",
		StackTrace: "test stack",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(basePath, CrashLogDir), filepath.Dir(path))

	logs, err := ListCrashLogs()
	require.NoError(t, err)
	require.Len(t, logs, 1)

	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	var got CrashLog
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "test panic", got.PanicValue)
	assert.Equal(t, "analyze", got.Command)
}

func TestCrashHandler_CleanOldLogs(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), ".prdwing")
	crashDir := filepath.Join(basePath, CrashLogDir)
	require.NoError(t, os.MkdirAll(crashDir, 0o755))
	resetContext(t, &CrashContext{basePath: basePath})

	for i := range MaxCrashLogs + 5 {
		name := fmt.Sprintf("crash_20250101_1200%02d.000.json", i)
		require.NoError(t, os.WriteFile(filepath.Join(crashDir, name), []byte("{}"), 0o644))
	}
	// Unrelated files are left alone.
	require.NoError(t, os.WriteFile(filepath.Join(crashDir, "notes.txt"), nil, 0o644))

	require.NoError(t, cleanOldCrashLogs(crashDir))

	logs, err := ListCrashLogs()
	require.NoError(t, err)
	require.Len(t, logs, MaxCrashLogs)
	assert.Equal(t, "crash_20250101_120005.000.json", filepath.Base(logs[0]), "oldest logs are removed first")
	assert.FileExists(t, filepath.Join(crashDir, "notes.txt"))
}

func TestCrashHandler_GetCrashLogPath(t *testing.T) {
	resetContext(t, &CrashContext{basePath: "/tmp/test"})

	path := getCrashLogPath(time.Date(2025, 1, 15, 14, 30, 45, 0, time.UTC))
	assert.Equal(t, "/tmp/test/crash_logs/crash_20250115_143045.000.json", path)
}

func TestCrashHandler_DefaultBasePath(t *testing.T) {
	resetContext(t, &CrashContext{})
	assert.Equal(t, filepath.Join(".prdwing", "crash_logs"), getCrashLogDir())
}

func TestListCrashLogs_MissingDir(t *testing.T) {
	resetContext(t, &CrashContext{basePath: filepath.Join(t.TempDir(), "none")})
	logs, err := ListCrashLogs()
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestNew_Levels(t *testing.T) {
	plain := false

	var buf bytes.Buffer
	log := New(Options{Output: &buf, Console: &plain})
	log.Debug().Msg("hidden")
	log.Info().Str("project", "p-1").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"project":"p-1"`)

	buf.Reset()
	log = New(Options{Output: &buf, Console: &plain, Verbose: true})
	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), `"message":"visible"`)
}

func TestNew_ConsoleWriter(t *testing.T) {
	console := true
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Console: &console})
	log.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, `"message"`)
}
