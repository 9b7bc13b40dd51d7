// Package tagmask hides inline subtitle markup behind placeholder tokens so
// a translation round-trip cannot corrupt it.
//
// Two kinds of spans are protected: HTML-like tags such as <i> or
// <font color="red">, and style blocks such as {\an8}.
package tagmask

import (
	"fmt"
	"strings"
)

// Pair links a placeholder token to the markup it replaced.
type Pair struct {
	Placeholder string
	Original    string
}

// Mapping is the ordered list of substitutions made for one cue's text.
type Mapping []Pair

var closers = map[rune]rune{
	'<': '>',
	'{': '}',
}

// Placeholder returns the token used for the n-th span of a text.
func Placeholder(n int) string {
	return fmt.Sprintf("[[TAG_%d]]", n)
}

// Mask replaces every closed <...> or {...} span with a numbered
// placeholder. An opener without a closer is kept as literal text.
func Mask(text string) (string, Mapping) {
	var mapping Mapping
	var out strings.Builder
	out.Grow(len(text))

	for i := 0; i < len(text); {
		closer, isOpener := closers[rune(text[i])]
		if isOpener {
			if end := strings.IndexRune(text[i+1:], closer); end >= 0 {
				span := text[i : i+1+end+1]
				ph := Placeholder(len(mapping))
				mapping = append(mapping, Pair{Placeholder: ph, Original: span})
				out.WriteString(ph)
				i += len(span)
				continue
			}
		}
		out.WriteByte(text[i])
		i++
	}

	return out.String(), mapping
}

// Unmask restores the original markup. Placeholders missing from text are
// skipped.
func Unmask(text string, mapping Mapping) string {
	for _, p := range mapping {
		text = strings.ReplaceAll(text, p.Placeholder, p.Original)
	}
	return text
}

// Missing lists placeholders of mapping that do not appear in text.
func Missing(text string, mapping Mapping) []string {
	var missing []string
	for _, p := range mapping {
		if !strings.Contains(text, p.Placeholder) {
			missing = append(missing, p.Placeholder)
		}
	}
	return missing
}
