package llm

import (
	"fmt"
	"unicode/utf8"
)

// maxRawBody caps how much of a response body is quoted in errors.
const maxRawBody = 500

// TransportError is a failure at the network or HTTP layer.
type TransportError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("HTTP error: status %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("HTTP error: %s: %v", e.Message, e.Err)
	}
	return "HTTP error: " + e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BadResponseError is a successful call whose body lacks the expected text.
type BadResponseError struct {
	Message string
	Raw     string
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("invalid model response: %s. Raw: %s", e.Message, e.Raw)
}

// clip cuts s to at most maxRawBody bytes without splitting a rune.
func clip(s string) string {
	if len(s) <= maxRawBody {
		return s
	}
	cut := maxRawBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
