package translator

import (
	"fmt"
	"strings"

	"github.com/MimeLyc/srt-translator/internal/batch"
	"github.com/MimeLyc/srt-translator/internal/termmap"
)

// Prompt is the user message for one batch and the item count the
// response must contain. System overrides the translator's system prompt
// when set.
type Prompt struct {
	System string
	User   string
	Count  int
}

// BuildPrompt renders the batch's translate cues as a numbered list wrapped
// in BEGIN/END markers.
func BuildPrompt(b batch.Batch, sourceLang, targetLang string) (Prompt, error) {
	count := len(b.TranslateIDs)

	byID := make(map[int]batch.PromptCue, len(b.Cues))
	for _, c := range b.Cues {
		byID[c.ID] = c
	}

	lines := make([]string, 0, count)
	for i, id := range b.TranslateIDs {
		cue, ok := byID[id]
		if !ok {
			return Prompt{}, &ParseError{Message: fmt.Sprintf("cue id %d not found in batch %d", id, b.Number)}
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, EncodeNewlines(cue.Text)))
	}

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("Translate the following %d subtitles from %s to %s.\n\n", count, sourceLang, targetLang))
	prompt.WriteString("RULES:\n")
	prompt.WriteString(fmt.Sprintf("- Return exactly %d lines\n", count))
	prompt.WriteString("- Each line MUST start with its number followed by period: \"1. \", \"2. \", etc.\n")
	prompt.WriteString("- Line breaks are encoded as " + NewlineToken + " token, keep them\n")
	prompt.WriteString("- Do not insert real line breaks inside items; use " + NewlineToken + " token only\n")
	prompt.WriteString("- Copy markers like <NL!> unchanged\n")
	prompt.WriteString("- Keep placeholders like [[TAG_0]] exactly as they appear\n")
	prompt.WriteString("- No markdown, no code blocks, no extra blank lines\n")
	prompt.WriteString("- Do not merge or split items\n\n")
	prompt.WriteString("BEGIN\n")
	prompt.WriteString(strings.Join(lines, "\n"))
	prompt.WriteString("\nEND\n\n")
	prompt.WriteString("Output format: numbered list between BEGIN/END delimiters only.")

	return Prompt{User: prompt.String(), Count: count}, nil
}

// SystemPrompt is the persona sent with every batch.
func SystemPrompt(sourceLang, targetLang string) string {
	var prompt strings.Builder
	prompt.WriteString("You are a professional subtitle translator.\n")
	prompt.WriteString(fmt.Sprintf("Translate from %s to %s.\n", sourceLang, targetLang))
	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Keep meaning natural for subtitles.\n")
	prompt.WriteString("- Preserve placeholders like [[TAG_0]] exactly.\n")
	prompt.WriteString("- Do NOT change timecodes.\n")
	prompt.WriteString("- Follow the output format instructions precisely.\n")
	return prompt.String()
}

// GlossarySection is appended to the system prompt for batches that use
// glossary terms.
func GlossarySection(terms []termmap.Term) string {
	return "Terminology (always translate these terms exactly as given):\n" + termmap.Render(terms)
}
