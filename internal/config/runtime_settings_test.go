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
		OpenAIAPIKey:   "sk-test",
		OpenAIEndpoint: "https://example.test/v1",
		OpenAIModel:    "model-test",
		TargetLanguage: "zh",
	}
	require.NoError(t, valid.Validate())

	blankKey := valid
	blankKey.OpenAIAPIKey = ""
	assert.NoError(t, blankKey.Validate(), "missing key means unconfigured, not invalid")

	noEndpoint := valid
	noEndpoint.OpenAIEndpoint = " "
	require.Error(t, noEndpoint.Validate())

	noModel := valid
	noModel.OpenAIModel = ""
	require.Error(t, noModel.Validate())

	badLang := valid
	badLang.TargetLanguage = "!!!"
	require.Error(t, badLang.Validate())
}

func TestRuntimeSettingsFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "settings", "runtime.json")
	input := RuntimeSettings{
		OpenAIAPIKey:   "sk-test",
		OpenAIEndpoint: "https://example.test/v1",
		OpenAIModel:    "model-test",
		TargetLanguage: "zh",
	}

	require.NoError(t, WriteRuntimeSettingsFile(filePath, input))

	got, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestWriteRuntimeSettingsFile_RejectsInvalid(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "runtime.json")

	err := WriteRuntimeSettingsFile(filePath, RuntimeSettings{TargetLanguage: "zh"})
	require.Error(t, err)

	_, statErr := os.Stat(filePath)
	assert.True(t, os.IsNotExist(statErr), "invalid settings must not touch the file")
}

func TestWithRuntimeSettings_OverridesConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_ENDPOINT", "https://env.example/v1")
	t.Setenv("OPENAI_MODEL", "env-model")

	override := RuntimeSettings{
		OpenAIAPIKey:   "file-key",
		OpenAIEndpoint: "https://file.example/v1",
		OpenAIModel:    "file-model",
		TargetLanguage: "ja",
	}

	cfg, err := NewFromEnv(WithRuntimeSettings(override))
	require.NoError(t, err)
	assert.Equal(t, override.OpenAIAPIKey, cfg.OpenAI.APIKey)
	assert.Equal(t, override.OpenAIEndpoint, cfg.OpenAI.Endpoint)
	assert.Equal(t, override.OpenAIModel, cfg.OpenAI.Model)
	assert.Equal(t, "ja", cfg.Translate.TargetLanguage.String())
}

func TestWithRuntimeSettings_BlankFieldsKeepEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_MODEL", "env-model")

	cfg, err := NewFromEnv(WithRuntimeSettings(RuntimeSettings{TargetLanguage: "ko"}))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "env-model", cfg.OpenAI.Model)
	assert.Equal(t, "ko", cfg.Translate.TargetLanguage.String())
}

func TestRuntimeSettingsStore_UpdatePersistsFile(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "runtime-settings.json")
	initial := RuntimeSettings{
		OpenAIAPIKey:   "sk-old",
		OpenAIEndpoint: "https://old.example/v1",
		OpenAIModel:    "old-model",
		TargetLanguage: "zh",
	}

	store, err := NewRuntimeSettingsStore(filePath, initial)
	require.NoError(t, err)

	got, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, initial, got)

	next := RuntimeSettings{
		OpenAIAPIKey:   "sk-new",
		OpenAIEndpoint: "https://new.example/v1",
		OpenAIModel:    "new-model",
		TargetLanguage: "ja",
	}
	updated, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, next, updated)

	onDisk, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, next, onDisk)

	got, err = store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestRuntimeSettingsStore_RejectsInvalidUpdate(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "runtime-settings.json")
	initial := RuntimeSettings{
		OpenAIEndpoint: "https://old.example/v1",
		OpenAIModel:    "old-model",
		TargetLanguage: "zh",
	}

	store, err := NewRuntimeSettingsStore(filePath, initial)
	require.NoError(t, err)

	_, err = store.UpdateRuntimeSettings(RuntimeSettings{})
	require.Error(t, err)

	got, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, initial, got, "failed update must not change current settings")
}
