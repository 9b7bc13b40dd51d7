package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/MimeLyc/srt-translator/internal/batch"
	"github.com/MimeLyc/srt-translator/pkg/file"
)

// Config holds all application configuration.
// Values are layered: defaults, then the YAML file named by SRT_CONFIG_FILE,
// then environment variables (a .env file in the working directory is
// loaded first if present), then options.
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: bearer key (optional for local proxies)
// - LLM_API_URL: API base URL (default: https://api.openai.com/v1)
// - LLM_MODEL: model name (default: gpt-4o-mini)
// - LLM_MAX_TOKENS: maximum tokens for responses (default: 8000)
// - LLM_TEMPERATURE: sampling temperature (default: 0.2)
// - LLM_TIMEOUT: request timeout in seconds (default: 120)
// - LLM_SITE_URL, LLM_APP_NAME: optional attribution headers
//
// Translation:
// - SOURCE_LANGUAGE (default: auto), TARGET_LANGUAGE (default: en)
// - BATCH_SIZE (25), MAX_CHARS_PER_REQUEST (12000)
// - CONTEXT_BEFORE (2), CONTEXT_AFTER (2)
// - THREADS (3), MAX_RETRIES (3), MIN_DELAY_MS (200)
// - OUTPUT_SUFFIX (default: _translated)
//
// Service:
// - HTTP_ADDR (default: :8080), JOB_WORKERS (default: 1)
// - WATCH_DIR (optional), CRON_EXPR (default: */10 * * * *)
// - DATA_DIR (default: data), DB_PATH, SETTINGS_FILE
// - LOG_LEVEL (default: info), LOG_FILE (optional)
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Translate TranslateConfig `json:"translate" yaml:"translate"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Watch     WatchConfig     `json:"watch" yaml:"watch"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// LLMConfig holds the configuration for the OpenAI-compatible client
type LLMConfig struct {
	APIKey      string  `json:"-" yaml:"api_key"`
	APIURL      string  `json:"api_url" yaml:"api_url"`
	Model       string  `json:"model" yaml:"model"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Timeout     int     `json:"timeout" yaml:"timeout"`
	SiteURL     string  `json:"site_url" yaml:"site_url"`
	AppName     string  `json:"app_name" yaml:"app_name"`
}

type TranslateConfig struct {
	SourceLanguage     string       `json:"source_language" yaml:"source_language"`
	TargetLanguage     language.Tag `json:"target_language" yaml:"target_language"`
	BatchSize          int          `json:"batch_size" yaml:"batch_size"`
	MaxCharsPerRequest int          `json:"max_chars_per_request" yaml:"max_chars_per_request"`
	ContextBefore      int          `json:"context_before" yaml:"context_before"`
	ContextAfter       int          `json:"context_after" yaml:"context_after"`
	Threads            int          `json:"threads" yaml:"threads"`
	MaxRetries         int          `json:"max_retries" yaml:"max_retries"`
	MinDelayMS         int          `json:"min_delay_ms" yaml:"min_delay_ms"`
	OutputSuffix       string       `json:"output_suffix" yaml:"output_suffix"`
}

// BatchConfig returns the planner settings.
func (c TranslateConfig) BatchConfig() batch.Config {
	return batch.Config{
		BatchSize:          c.BatchSize,
		MaxCharsPerRequest: c.MaxCharsPerRequest,
		ContextBefore:      c.ContextBefore,
		ContextAfter:       c.ContextAfter,
	}
}

type ServerConfig struct {
	Addr    string `json:"addr" yaml:"addr"`
	Workers int    `json:"workers" yaml:"workers"`
}

// WatchConfig enables scheduled translation of new files in Dir.
type WatchConfig struct {
	Dir      string `json:"dir" yaml:"dir"`
	CronExpr string `json:"cron_expr" yaml:"cron_expr"`
}

func (c WatchConfig) Enabled() bool {
	return strings.TrimSpace(c.Dir) != ""
}

type StoreConfig struct {
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	DBPath       string `json:"db_path" yaml:"db_path"`
	SettingsFile string `json:"settings_file" yaml:"settings_file"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithTargetLanguage(tag language.Tag) Option {
	return func(c *Config) {
		c.Translate.TargetLanguage = tag
	}
}

func WithWatchDir(dir string) Option {
	return func(c *Config) {
		c.Watch.Dir = dir
	}
}

func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.Store.DataDir = dir
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			APIURL:      "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   8000,
			Temperature: 0.2,
			Timeout:     120,
		},
		Translate: TranslateConfig{
			SourceLanguage:     "auto",
			TargetLanguage:     language.English,
			BatchSize:          25,
			MaxCharsPerRequest: 12000,
			ContextBefore:      2,
			ContextAfter:       2,
			Threads:            3,
			MaxRetries:         3,
			MinDelayMS:         200,
			OutputSuffix:       "_translated",
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Workers: 1,
		},
		Watch: WatchConfig{
			CronExpr: "*/10 * * * *",
		},
		Store: StoreConfig{
			DataDir: "data",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// New loads configuration using the YAML file named by SRT_CONFIG_FILE.
func New(opts ...Option) (*Config, error) {
	_ = godotenv.Load()
	return Load(os.Getenv("SRT_CONFIG_FILE"), opts...)
}

// Load builds the configuration from an optional YAML file, environment
// variables and options.
func Load(path string, opts ...Option) (*Config, error) {
	config := Default()

	if strings.TrimSpace(path) != "" {
		if err := loadFile(path, &config); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(&config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) error {
	c.LLM.APIKey = getEnvString("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.APIURL = getEnvString("LLM_API_URL", c.LLM.APIURL)
	c.LLM.Model = getEnvString("LLM_MODEL", c.LLM.Model)
	c.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvInt("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.SiteURL = getEnvString("LLM_SITE_URL", c.LLM.SiteURL)
	c.LLM.AppName = getEnvString("LLM_APP_NAME", c.LLM.AppName)

	c.Translate.SourceLanguage = getEnvString("SOURCE_LANGUAGE", c.Translate.SourceLanguage)
	if value := os.Getenv("TARGET_LANGUAGE"); value != "" {
		tag, err := language.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid TARGET_LANGUAGE %q: %w", value, err)
		}
		c.Translate.TargetLanguage = tag
	}
	c.Translate.BatchSize = getEnvInt("BATCH_SIZE", c.Translate.BatchSize)
	c.Translate.MaxCharsPerRequest = getEnvInt("MAX_CHARS_PER_REQUEST", c.Translate.MaxCharsPerRequest)
	c.Translate.ContextBefore = getEnvInt("CONTEXT_BEFORE", c.Translate.ContextBefore)
	c.Translate.ContextAfter = getEnvInt("CONTEXT_AFTER", c.Translate.ContextAfter)
	c.Translate.Threads = getEnvInt("THREADS", c.Translate.Threads)
	c.Translate.MaxRetries = getEnvInt("MAX_RETRIES", c.Translate.MaxRetries)
	c.Translate.MinDelayMS = getEnvInt("MIN_DELAY_MS", c.Translate.MinDelayMS)
	c.Translate.OutputSuffix = getEnvString("OUTPUT_SUFFIX", c.Translate.OutputSuffix)

	c.Server.Addr = getEnvString("HTTP_ADDR", c.Server.Addr)
	c.Server.Workers = getEnvInt("JOB_WORKERS", c.Server.Workers)

	c.Watch.Dir = getEnvString("WATCH_DIR", c.Watch.Dir)
	c.Watch.CronExpr = getEnvString("CRON_EXPR", c.Watch.CronExpr)

	c.Store.DataDir = getEnvString("DATA_DIR", c.Store.DataDir)
	c.Store.DBPath = getEnvString("DB_PATH", c.Store.DBPath)
	c.Store.SettingsFile = getEnvString("SETTINGS_FILE", c.Store.SettingsFile)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnvString("LOG_FILE", c.Log.File)
	return nil
}

// DBPath returns the SQLite path, defaulting into the data directory.
func (c *Config) DBPath() string {
	if c.Store.DBPath != "" {
		return c.Store.DBPath
	}
	return filepath.Join(c.Store.DataDir, "srt-translator.db")
}

// SettingsPath returns the runtime settings file path.
func (c *Config) SettingsPath() string {
	if c.Store.SettingsFile != "" {
		return c.Store.SettingsFile
	}
	return filepath.Join(c.Store.DataDir, "settings.json")
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.LLM.APIURL) == "" {
		errs = append(errs, fmt.Errorf("LLM_API_URL is required"))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, fmt.Errorf("LLM_MODEL is required"))
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("LLM_MAX_TOKENS must be greater than 0"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2"))
	}
	if c.LLM.Timeout < 1 {
		errs = append(errs, fmt.Errorf("LLM_TIMEOUT must be greater than 0"))
	}

	if err := validateSourceLanguage(c.Translate.SourceLanguage); err != nil {
		errs = append(errs, err)
	}
	if c.Translate.TargetLanguage == language.Und {
		errs = append(errs, fmt.Errorf("TARGET_LANGUAGE is required"))
	}
	if c.Translate.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be at least 1"))
	}
	if c.Translate.MaxCharsPerRequest < 1 {
		errs = append(errs, fmt.Errorf("MAX_CHARS_PER_REQUEST must be at least 1"))
	}
	if c.Translate.ContextBefore < 0 || c.Translate.ContextAfter < 0 {
		errs = append(errs, fmt.Errorf("CONTEXT_BEFORE and CONTEXT_AFTER must not be negative"))
	}
	if c.Translate.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must not be negative"))
	}
	if c.Translate.MinDelayMS < 0 {
		errs = append(errs, fmt.Errorf("MIN_DELAY_MS must not be negative"))
	}
	if err := file.ValidateSuffix(c.Translate.OutputSuffix); err != nil {
		errs = append(errs, fmt.Errorf("OUTPUT_SUFFIX: %w", err))
	}

	if c.Server.Workers < 1 {
		errs = append(errs, fmt.Errorf("JOB_WORKERS must be at least 1"))
	}
	if c.Watch.Enabled() {
		if _, err := cron.ParseStandard(c.Watch.CronExpr); err != nil {
			errs = append(errs, fmt.Errorf("invalid CRON_EXPR: %w", err))
		}
	}
	return errors.Join(errs...)
}

func validateSourceLanguage(value string) error {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "auto") {
		return nil
	}
	if _, err := language.Parse(value); err != nil {
		return fmt.Errorf("invalid SOURCE_LANGUAGE %q: %w", value, err)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
