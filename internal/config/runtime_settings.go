package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

const DefaultRuntimeSettingsFile = "/app/config/settings.json"

func RuntimeSettingsFilePath() string {
	return getEnvString("SETTINGS_FILE", DefaultRuntimeSettingsFile)
}

// RuntimeSettings carries the subset of configuration the API may change
// while the player is running. Updates that land here must be followed by
// a provider reconfiguration so the next translation batch uses them.
type RuntimeSettings struct {
	OpenAIAPIKey   string `json:"openai_api_key"`
	OpenAIEndpoint string `json:"openai_endpoint"`
	OpenAIModel    string `json:"openai_model"`
	TargetLanguage string `json:"target_language"`
}

func (s RuntimeSettings) Validate() error {
	if strings.TrimSpace(s.OpenAIEndpoint) == "" {
		return fmt.Errorf("openai_endpoint is required")
	}
	if strings.TrimSpace(s.OpenAIModel) == "" {
		return fmt.Errorf("openai_model is required")
	}
	if strings.TrimSpace(s.TargetLanguage) == "" {
		return fmt.Errorf("target_language is required")
	}
	if _, err := language.Parse(s.TargetLanguage); err != nil {
		return fmt.Errorf("invalid target_language: %w", err)
	}
	return nil
}

// RuntimeSettings projects the mutable slice of a Config.
func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		OpenAIAPIKey:   c.OpenAI.APIKey,
		OpenAIEndpoint: c.OpenAI.Endpoint,
		OpenAIModel:    c.OpenAI.Model,
		TargetLanguage: c.Translate.TargetLanguage.String(),
	}
}

// WithRuntimeSettings overlays persisted settings on top of the environment.
// Blank fields keep the environment value.
func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if strings.TrimSpace(settings.OpenAIAPIKey) != "" {
			c.OpenAI.APIKey = settings.OpenAIAPIKey
		}
		if strings.TrimSpace(settings.OpenAIEndpoint) != "" {
			c.OpenAI.Endpoint = settings.OpenAIEndpoint
		}
		if strings.TrimSpace(settings.OpenAIModel) != "" {
			c.OpenAI.Model = settings.OpenAIModel
		}
		if tag, err := language.Parse(settings.TargetLanguage); err == nil {
			c.Translate.TargetLanguage = tag
		}
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

// WriteRuntimeSettingsFile persists settings atomically via a tmp file rename.
func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// RuntimeSettingsStore is the in-memory view of the settings file,
// shared between the HTTP API and the translation provider.
type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// UpdateRuntimeSettings validates, persists and then swaps the current
// settings. The file write happens before the swap so readers never see
// settings that failed to persist.
func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
