package subtitle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrBlankLine marks cue text with an empty line inside it. Written out,
// the empty line would end the cue block early.
var ErrBlankLine = errors.New("cue text contains a blank line")

// ValidateText rejects multi-line cue text with a blank line.
func ValidateText(text string) error {
	if !strings.Contains(text, "\n") {
		return nil
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			return ErrBlankLine
		}
	}
	return nil
}

// CompactText drops blank lines from multi-line cue text.
func CompactText(text string) string {
	if ValidateText(text) == nil {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// ValidateTranslations checks that translations hold exactly one entry per
// cue and that none of them would break the block structure.
func ValidateTranslations(doc *Document, translations Translations) error {
	if len(translations) != len(doc.Cues) {
		return fmt.Errorf("translation mismatch: expected %d cues but got %d translations", len(doc.Cues), len(translations))
	}
	for _, cue := range doc.Cues {
		text, ok := translations[cue.ID]
		if !ok {
			return fmt.Errorf("missing translation for cue id %d", cue.ID)
		}
		if err := ValidateText(text); err != nil {
			return fmt.Errorf("translation for cue id %d: %w", cue.ID, err)
		}
	}
	return nil
}

// Encode renders the document with translated text, keeping index labels,
// timing lines and the detected newline style.
func Encode(doc *Document, translations Translations) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("subtitle data is empty")
	}
	if err := ValidateTranslations(doc, translations); err != nil {
		return "", err
	}

	nl := doc.Newline.Sequence()
	var sb strings.Builder
	for _, cue := range doc.Cues {
		sb.WriteString(cue.IndexLine)
		sb.WriteString(nl)
		sb.WriteString(cue.TimingLine)
		sb.WriteString(nl)
		for _, line := range strings.Split(translations[cue.ID], "\n") {
			sb.WriteString(line)
			sb.WriteString(nl)
		}
		sb.WriteString(nl)
	}
	return sb.String(), nil
}

// WriteFile encodes and writes the document atomically.
func WriteFile(path string, doc *Document, translations Translations) error {
	content, err := Encode(doc, translations)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save output file: %w", err)
	}
	return nil
}
