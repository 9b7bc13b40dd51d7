package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Client is an OpenAI-compatible chat completion client.
// Thread-safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new LLM client with the given configuration
//
// Example:
//
//	client, err := llm.NewClient(&cfg.LLM)
//	if err != nil {
//		log.Fatal("%v", err)
//	}
//	text, err := client.Send(ctx, "You are a translator.", "1. Hello")
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Client{
		config:  config,
		baseURL: config.BaseURL(),
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}, nil
}

// Send posts one system and one user message and returns
// choices[0].message.content. Network and non-2xx failures are
// *TransportError; unusable bodies are *BadResponseError.
func (c *Client) Send(ctx context.Context, system, user string) (string, error) {
	resp, raw, err := c.ChatCompletion(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", &BadResponseError{Message: "missing choices[0].message.content", Raw: clip(raw)}
	}
	text, ok := resp.Choices[0].Message.Text()
	if !ok {
		return "", &BadResponseError{Message: "choices[0].message.content is not text", Raw: clip(raw)}
	}
	return text, nil
}

// ChatCompletion sends a chat completion request and returns the decoded
// response together with the raw body.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (*ChatResponse, string, error) {
	request := ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, "", &TransportError{Message: "failed to create request", Err: err}
	}
	for key, value := range c.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, "", &TransportError{Message: "request timed out", Err: err}
		}
		return nil, "", &TransportError{Message: "failed to make request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransportError{Message: "failed to read response body", Err: err}
	}
	raw := string(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, raw, &TransportError{StatusCode: resp.StatusCode, Message: clip(raw)}
	}

	var chatResponse ChatResponse
	if err := json.Unmarshal(body, &chatResponse); err != nil {
		return nil, raw, &BadResponseError{Message: fmt.Sprintf("response was not valid JSON: %v", err), Raw: clip(raw)}
	}
	if chatResponse.Error != nil && chatResponse.Error.Message != "" {
		return nil, raw, &TransportError{StatusCode: resp.StatusCode, Message: chatResponse.Error.Message, Err: chatResponse.Error}
	}

	return &chatResponse, raw, nil
}
