package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/MimeLyc/srt-translator/pkg/file"
)

// RuntimeSettings are the values that can be changed while serving.
type RuntimeSettings struct {
	LLMAPIURL      string `json:"llm_api_url"`
	LLMAPIKey      string `json:"llm_api_key"`
	LLMModel       string `json:"llm_model"`
	CronExpr       string `json:"cron_expr"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Threads        int    `json:"threads"`
	BatchSize      int    `json:"batch_size"`
	OutputSuffix   string `json:"output_suffix"`
}

func (s RuntimeSettings) Validate() error {
	if strings.TrimSpace(s.LLMAPIURL) == "" {
		return fmt.Errorf("llm_api_url is required")
	}
	if strings.TrimSpace(s.LLMModel) == "" {
		return fmt.Errorf("llm_model is required")
	}
	if strings.TrimSpace(s.CronExpr) == "" {
		return fmt.Errorf("cron_expr is required")
	}
	if _, err := cron.ParseStandard(s.CronExpr); err != nil {
		return fmt.Errorf("invalid cron_expr: %w", err)
	}
	if err := validateSourceLanguage(s.SourceLanguage); err != nil {
		return fmt.Errorf("invalid source_language: %w", err)
	}
	if strings.TrimSpace(s.TargetLanguage) == "" {
		return fmt.Errorf("target_language is required")
	}
	if _, err := language.Parse(s.TargetLanguage); err != nil {
		return fmt.Errorf("invalid target_language: %w", err)
	}
	if s.Threads < 0 {
		return fmt.Errorf("threads must not be negative")
	}
	if s.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative")
	}
	if s.OutputSuffix != "" {
		if err := file.ValidateSuffix(s.OutputSuffix); err != nil {
			return fmt.Errorf("invalid output_suffix: %w", err)
		}
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		LLMAPIURL:      c.LLM.APIURL,
		LLMAPIKey:      c.LLM.APIKey,
		LLMModel:       c.LLM.Model,
		CronExpr:       c.Watch.CronExpr,
		SourceLanguage: c.Translate.SourceLanguage,
		TargetLanguage: c.Translate.TargetLanguage.String(),
		Threads:        c.Translate.Threads,
		BatchSize:      c.Translate.BatchSize,
		OutputSuffix:   c.Translate.OutputSuffix,
	}
}

// Apply copies the non-empty settings onto c.
func (s RuntimeSettings) Apply(c *Config) {
	if strings.TrimSpace(s.LLMAPIURL) != "" {
		c.LLM.APIURL = s.LLMAPIURL
	}
	if strings.TrimSpace(s.LLMAPIKey) != "" {
		c.LLM.APIKey = s.LLMAPIKey
	}
	if strings.TrimSpace(s.LLMModel) != "" {
		c.LLM.Model = s.LLMModel
	}
	if strings.TrimSpace(s.CronExpr) != "" {
		c.Watch.CronExpr = s.CronExpr
	}
	if strings.TrimSpace(s.SourceLanguage) != "" {
		c.Translate.SourceLanguage = s.SourceLanguage
	}
	if tag, err := language.Parse(s.TargetLanguage); err == nil {
		c.Translate.TargetLanguage = tag
	}
	if s.Threads > 0 {
		c.Translate.Threads = s.Threads
	}
	if s.BatchSize > 0 {
		c.Translate.BatchSize = s.BatchSize
	}
	if strings.TrimSpace(s.OutputSuffix) != "" {
		c.Translate.OutputSuffix = s.OutputSuffix
	}
}

func WithRuntimeSettings(settings RuntimeSettings) Option {
	return settings.Apply
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

// WriteRuntimeSettingsFile validates settings and replaces the file
// atomically.
func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// RuntimeSettingsStore keeps the current runtime settings and persists
// every update to its file.
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

// OpenRuntimeSettingsStore applies a previously saved settings file onto cfg,
// if one exists, and returns a store seeded with the merged settings.
func OpenRuntimeSettingsStore(path string, cfg *Config) (*RuntimeSettingsStore, error) {
	saved, err := LoadRuntimeSettingsFile(path)
	switch {
	case err == nil:
		saved.Apply(cfg)
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("load runtime settings: %w", err)
	}
	return NewRuntimeSettingsStore(path, cfg.RuntimeSettings())
}

func (s *RuntimeSettingsStore) Path() string {
	return s.path
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

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
