package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

func keepGlobalLogger(t *testing.T) {
	t.Helper()
	prev := log.GetLogger()
	t.Cleanup(func() { log.SetLogger(prev) })
}

func TestEnsureConfig_LogLevelFlagWins(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	configFlag, levelFlag := path, "error"
	cfg, err := newCommandContext(&configFlag, &levelFlag).ensureConfig()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)

	levelFlag = ""
	cfg, err = newCommandContext(&configFlag, &levelFlag).ensureConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestSetupLogging_Levels(t *testing.T) {
	keepGlobalLogger(t)

	tests := []struct {
		level string
		want  log.LogLevel
	}{
		{level: "debug", want: log.LevelDebug},
		{level: "warning", want: log.LevelWarn},
		{level: "ERROR", want: log.LevelError},
		{level: "", want: log.LevelInfo},
	}
	for _, tt := range tests {
		closeLog, err := setupLogging(config.LogConfig{Level: tt.level})
		require.NoError(t, err)
		assert.Equal(t, tt.want, log.GetLogger().Level(), "level %q", tt.level)
		closeLog()
	}
}

func TestSetupLogging_File(t *testing.T) {
	keepGlobalLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "srt.log")

	closeLog, err := setupLogging(config.LogConfig{Level: "warn", File: path})
	require.NoError(t, err)
	log.Info("imported %s", "ep1.srt")
	log.Warn("batch %d retry", 2)
	closeLog()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "batch 2 retry")
	assert.NotContains(t, string(content), "imported ep1.srt")
}
