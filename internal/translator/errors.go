package translator

import (
	"fmt"
	"strings"
)

// sampleRunes bounds the raw response excerpt kept on a ParseError.
const sampleRunes = 300

// ParseError reports a response that breaks the numbered-list contract.
type ParseError struct {
	Message  string
	Expected int
	Found    []int
	Missing  []int
	Extra    []int
	Sample   string
}

func (e *ParseError) Error() string {
	if e.Expected == 0 && e.Found == nil {
		return "parse error: " + e.Message
	}

	var b strings.Builder
	fmt.Fprintf(&b, "parse error: %s\n", e.Message)
	fmt.Fprintf(&b, "Expected: 1..=%d\n", e.Expected)
	fmt.Fprintf(&b, "Found: %v\n", e.Found)
	fmt.Fprintf(&b, "Missing: %v\n", e.Missing)
	fmt.Fprintf(&b, "Extra/Invalid: %v\n", e.Extra)
	fmt.Fprintf(&b, "Sample (first %d chars):\n%s", sampleRunes, e.Sample)
	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
