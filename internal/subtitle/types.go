package subtitle

import (
	"strings"

	"golang.org/x/text/language"
)

// NewlineStyle is the line terminator detected at decode time and reused on write.
type NewlineStyle int

const (
	LF NewlineStyle = iota
	CRLF
)

// Sequence returns the literal terminator.
func (n NewlineStyle) Sequence() string {
	if n == CRLF {
		return "\r\n"
	}
	return "\n"
}

func (n NewlineStyle) String() string {
	if n == CRLF {
		return "CRLF"
	}
	return "LF"
}

// Time is one side of a cue's time range.
type Time struct {
	Hours   int
	Minutes int
	Seconds int
	Millis  int
}

// Cue is a single subtitle entry.
type Cue struct {
	ID         int      // stable 0-based id in file order
	IndexLine  string   // index label written back verbatim
	TimingLine string   // timing line written back verbatim
	Start      Time     // parsed start, validation only
	End        Time     // parsed end, validation only
	TextLines  []string // text lines without terminators
}

// Text joins the cue's text lines with "\n".
func (c Cue) Text() string {
	return strings.Join(c.TextLines, "\n")
}

// Document is a parsed subtitle file.
type Document struct {
	Newline  NewlineStyle
	Cues     []Cue
	Language language.Tag // best-effort detection from cue text
}

// Translations maps cue id to translated text. Values may contain "\n".
type Translations map[int]string

// Identity returns a translation map holding each cue's original text.
func (d *Document) Identity() Translations {
	ret := make(Translations, len(d.Cues))
	for _, cue := range d.Cues {
		ret[cue.ID] = cue.Text()
	}
	return ret
}
