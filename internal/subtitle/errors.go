package subtitle

import "fmt"

// EncodingError reports bytes that could not be decoded as text.
type EncodingError struct {
	Hint string
}

func (e *EncodingError) Error() string {
	return "this file is not valid text or has an unsupported encoding. " + e.Hint
}

// FormatError reports a structural problem at a 1-based source line.
type FormatError struct {
	Line    int
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid SRT format on line %d: %s", e.Line, e.Message)
}
