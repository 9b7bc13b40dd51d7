package llm

import (
	"fmt"
	"strings"
)

// Config holds the configuration for the LLM client.
// Any OpenAI-compatible endpoint works (OpenAI, OpenRouter, local proxies).
//
// Environment Variables (read by internal/config):
// - LLM_API_KEY: bearer key, optional for local proxies
// - LLM_API_URL: API base URL (default: https://api.openai.com/v1)
// - LLM_MODEL: model name (default: gpt-4o-mini)
// - LLM_MAX_TOKENS: maximum tokens for responses (default: 8000)
// - LLM_TEMPERATURE: sampling temperature (default: 0.2)
// - LLM_TIMEOUT: request timeout in seconds (default: 120)
// - LLM_SITE_URL: HTTP-Referer header (optional)
// - LLM_APP_NAME: X-Title header (optional)
type Config struct {
	APIKey      string  `json:"api_key" yaml:"api_key"`
	APIURL      string  `json:"api_url" yaml:"api_url"`
	Model       string  `json:"model" yaml:"model"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Timeout     int     `json:"timeout" yaml:"timeout"`
	SiteURL     string  `json:"site_url" yaml:"site_url"`
	AppName     string  `json:"app_name" yaml:"app_name"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

// GetHeaders returns the headers for the LLM API request
func (c *Config) GetHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	if c.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.APIKey
	}
	if c.SiteURL != "" {
		headers["HTTP-Referer"] = c.SiteURL
	}
	if c.AppName != "" {
		headers["X-Title"] = c.AppName
	}

	return headers
}

// BaseURL returns APIURL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.APIURL, "/")
}
