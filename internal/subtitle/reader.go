package subtitle

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// languageSampleSize caps how many cues take part in language detection.
const languageSampleSize = 200

// ReadFile reads an .srt file from disk and decodes it.
func ReadFile(path string) (*Document, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".srt") {
		return nil, fmt.Errorf("only SRT format subtitle files are supported: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("subtitle file does not exist: %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	return Decode(data)
}

// DecodeText parses already-decoded subtitle text. nl is the newline style
// that Encode will use when writing the document back.
func DecodeText(text string, nl NewlineStyle) (*Document, error) {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")

	cues := make([]Cue, 0)
	i := 0
	for i < len(lines) {
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		if i >= len(lines) {
			break
		}

		indexLine := strings.TrimSpace(lines[i])
		var timingIdx int
		switch {
		case isAllDigits(indexLine):
			timingIdx = i + 1
		case looksLikeTimingLine(indexLine):
			// index line is missing; label the cue by its position
			indexLine = strconv.Itoa(len(cues) + 1)
			timingIdx = i
		default:
			return nil, &FormatError{
				Line:    i + 1,
				Message: "Expected a cue number (e.g., '1') or a timing line (e.g., '00:00:01,000 --> 00:00:03,000').",
			}
		}

		if timingIdx >= len(lines) {
			return nil, &FormatError{
				Line:    timingIdx + 1,
				Message: "Unexpected end of file while reading timing line.",
			}
		}

		timingLine := strings.TrimSpace(lines[timingIdx])
		if !looksLikeTimingLine(timingLine) {
			return nil, &FormatError{
				Line:    timingIdx + 1,
				Message: "Expected a timing line like '00:00:01,000 --> 00:00:03,000'.",
			}
		}

		start, end, err := parseTimingLine(timingLine)
		if err != nil {
			return nil, &FormatError{
				Line:    timingIdx + 1,
				Message: err.Error(),
			}
		}

		textLines := make([]string, 0)
		j := timingIdx + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) != "" {
			textLines = append(textLines, lines[j])
			j++
		}

		cues = append(cues, Cue{
			ID:         len(cues),
			IndexLine:  indexLine,
			TimingLine: timingLine,
			Start:      start,
			End:        end,
			TextLines:  textLines,
		})

		i = j + 1
	}

	if len(cues) == 0 {
		return nil, &FormatError{
			Line:    1,
			Message: "No subtitle cues found. Make sure this is a valid .srt file.",
		}
	}

	return &Document{
		Newline:  nl,
		Cues:     cues,
		Language: detectLanguage(cues),
	}, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func looksLikeTimingLine(s string) bool {
	return strings.Contains(s, "-->")
}

// parseTimingLine parses "start --> end [settings]". Anything after the end
// time token is ignored here; the raw line is kept on the cue.
func parseTimingLine(line string) (Time, Time, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return Time{}, Time{}, errors.New("Timing line is missing the '-->' separator.")
	}

	fields := strings.Fields(right)
	if len(fields) == 0 {
		return Time{}, Time{}, errors.New("Timing line is missing end time after '-->'.")
	}

	start, err := parseTime(strings.TrimSpace(left))
	if err != nil {
		return Time{}, Time{}, fmt.Errorf("Invalid start time: %w", err)
	}
	end, err := parseTime(fields[0])
	if err != nil {
		return Time{}, Time{}, fmt.Errorf("Invalid end time: %w", err)
	}
	return start, end, nil
}

// parseTime accepts HH:MM:SS,mmm and HH:MM:SS.mmm.
func parseTime(s string) (Time, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Time{}, fmt.Errorf("expected time like HH:MM:SS,mmm but got '%s'", s)
	}

	secPart, msPart, ok := strings.Cut(parts[2], ",")
	if !ok {
		secPart, msPart, ok = strings.Cut(parts[2], ".")
	}
	if !ok {
		return Time{}, fmt.Errorf("expected seconds and milliseconds like SS,mmm in '%s'", s)
	}

	hours, err := parseComponent(parts[0])
	if err != nil {
		return Time{}, fmt.Errorf("invalid hours in '%s'", s)
	}
	minutes, err := parseComponent(parts[1])
	if err != nil {
		return Time{}, fmt.Errorf("invalid minutes in '%s'", s)
	}
	seconds, err := parseComponent(secPart)
	if err != nil {
		return Time{}, fmt.Errorf("invalid seconds in '%s'", s)
	}
	millis, err := parseComponent(msPart)
	if err != nil {
		return Time{}, fmt.Errorf("invalid milliseconds in '%s'", s)
	}

	if minutes > 59 || seconds > 59 || millis > 999 {
		return Time{}, fmt.Errorf("time components out of range in '%s'", s)
	}

	return Time{
		Hours:   hours,
		Minutes: minutes,
		Seconds: seconds,
		Millis:  millis,
	}, nil
}

func parseComponent(s string) (int, error) {
	if !isAllDigits(s) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return strconv.Atoi(s)
}

// detectLanguage votes on the dominant language across cue texts. Only
// reliable detections vote; short cues usually abstain, and a document
// without any reliable vote stays undetermined.
func detectLanguage(cues []Cue) language.Tag {
	if len(cues) == 0 {
		return language.Und
	}

	votes := make(map[string]int)
	for i, cue := range cues {
		if i >= languageSampleSize {
			break
		}
		info := whatlanggo.Detect(cue.Text())
		if !info.IsReliable() {
			continue
		}
		code := info.Lang.Iso6391()
		if code == "" {
			continue
		}
		votes[code]++
	}
	if len(votes) == 0 {
		return language.Und
	}

	codes := make([]string, 0, len(votes))
	for code := range votes {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if votes[codes[i]] != votes[codes[j]] {
			return votes[codes[i]] > votes[codes[j]]
		}
		return codes[i] < codes[j]
	})

	tag, err := language.Parse(codes[0])
	if err != nil {
		return language.Und
	}
	return tag
}
