package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeSettings_Validate(t *testing.T) {
	valid := RuntimeSettings{
		LLMAPIURL:      "https://example.test/v1",
		LLMAPIKey:      "ak-test",
		LLMModel:       "model-test",
		CronExpr:       "*/5 * * * *",
		TargetLanguage: "zh",
	}
	require.NoError(t, valid.Validate())

	invalid := valid
	invalid.CronExpr = "bad cron"
	require.Error(t, invalid.Validate())

	invalidLang := valid
	invalidLang.TargetLanguage = ""
	require.Error(t, invalidLang.Validate())

	invalidSource := valid
	invalidSource.SourceLanguage = "not a language"
	require.Error(t, invalidSource.Validate())

	noKey := valid
	noKey.LLMAPIKey = ""
	require.NoError(t, noKey.Validate())
}

func TestRuntimeSettingsFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "settings", "runtime.json")
	input := RuntimeSettings{
		LLMAPIURL:      "https://example.test/v1",
		LLMAPIKey:      "ak-test",
		LLMModel:       "model-test",
		CronExpr:       "0 0 * * *",
		SourceLanguage: "auto",
		TargetLanguage: "zh",
		Threads:        4,
	}

	require.NoError(t, WriteRuntimeSettingsFile(filePath, input))

	got, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestWithRuntimeSettings_OverridesConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("LLM_API_URL", "https://env.example/v1")
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("CRON_EXPR", "0 1 * * *")

	override := RuntimeSettings{
		LLMAPIURL:      "https://file.example/v1",
		LLMAPIKey:      "file-key",
		LLMModel:       "file-model",
		CronExpr:       "*/30 * * * *",
		TargetLanguage: "ja",
		Threads:        6,
	}

	cfg, err := Load("", WithRuntimeSettings(override))
	require.NoError(t, err)
	assert.Equal(t, override.LLMAPIURL, cfg.LLM.APIURL)
	assert.Equal(t, override.LLMAPIKey, cfg.LLM.APIKey)
	assert.Equal(t, override.LLMModel, cfg.LLM.Model)
	assert.Equal(t, override.CronExpr, cfg.Watch.CronExpr)
	assert.Equal(t, "ja", cfg.Translate.TargetLanguage.String())
	assert.Equal(t, 6, cfg.Translate.Threads)
}

func TestRuntimeSettingsStore_UpdatePersistsFile(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "runtime-settings.json")
	initial := RuntimeSettings{
		LLMAPIURL:      "https://old.example/v1",
		LLMAPIKey:      "old-ak",
		LLMModel:       "old-model",
		CronExpr:       "0 0 * * *",
		TargetLanguage: "zh",
	}

	store, err := NewRuntimeSettingsStore(filePath, initial)
	require.NoError(t, err)

	next := RuntimeSettings{
		LLMAPIURL:      "https://new.example/v1",
		LLMAPIKey:      "new-ak",
		LLMModel:       "new-model",
		CronExpr:       "*/10 * * * *",
		TargetLanguage: "en",
	}
	got, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	loaded, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, next, loaded)
}

func TestOpenRuntimeSettingsStore(t *testing.T) {
	t.Run("seeds from config without a file", func(t *testing.T) {
		cfg := Default()
		path := filepath.Join(t.TempDir(), "settings.json")

		store, err := OpenRuntimeSettingsStore(path, &cfg)
		require.NoError(t, err)
		got, err := store.GetRuntimeSettings()
		require.NoError(t, err)
		assert.Equal(t, cfg.RuntimeSettings(), got)
		assert.Equal(t, path, store.Path())
		assert.NoFileExists(t, path)
	})

	t.Run("applies a saved file", func(t *testing.T) {
		cfg := Default()
		path := filepath.Join(t.TempDir(), "nested", "settings.json")
		saved := cfg.RuntimeSettings()
		saved.LLMModel = "saved-model"
		saved.BatchSize = 40
		saved.OutputSuffix = ".es"
		saved.TargetLanguage = "es"
		require.NoError(t, WriteRuntimeSettingsFile(path, saved))

		store, err := OpenRuntimeSettingsStore(path, &cfg)
		require.NoError(t, err)
		assert.Equal(t, "saved-model", cfg.LLM.Model)
		assert.Equal(t, 40, cfg.Translate.BatchSize)
		assert.Equal(t, ".es", cfg.Translate.OutputSuffix)
		assert.Equal(t, "es", cfg.Translate.TargetLanguage.String())

		got, err := store.GetRuntimeSettings()
		require.NoError(t, err)
		assert.Equal(t, saved, got)
	})

	t.Run("rejects a corrupt file", func(t *testing.T) {
		cfg := Default()
		path := filepath.Join(t.TempDir(), "settings.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

		_, err := OpenRuntimeSettingsStore(path, &cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid settings file")
	})
}

func TestRuntimeSettings_ValidateOutputSuffix(t *testing.T) {
	settings := Default()
	rs := settings.RuntimeSettings()
	rs.OutputSuffix = "../escape"
	assert.ErrorContains(t, rs.Validate(), "output_suffix")

	rs.OutputSuffix = ".de"
	rs.BatchSize = -1
	assert.ErrorContains(t, rs.Validate(), "batch_size")
}
