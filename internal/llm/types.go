package llm

import (
	"encoding/json"
	"fmt"
)

// Message represents a chat message
//
// Role: "system", "user", or "assistant"
// Content: Text content of the message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request
// Compatible with OpenAI API format
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents a chat completion response.
// Only the fields the client inspects are decoded.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Error   *Error   `json:"error,omitempty"`
}

// Choice represents a completion choice
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage keeps content raw so a non-string body can be reported
// as a bad response instead of a decode failure.
type ResponseMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Text returns the message content when it is a JSON string.
func (m ResponseMessage) Text() (string, bool) {
	if len(m.Content) == 0 || string(m.Content) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return "", false
	}
	return s, true
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Error represents an API error
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    any    `json:"code,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("LLM API Error: %s (type: %s, code: %v)", e.Message, e.Type, e.Code)
}
