package translator

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// AutoLanguage asks the model to detect the source language itself.
const AutoLanguage = "auto"

var labelOverrides = map[language.Tag]string{
	language.SimplifiedChinese:  "Chinese (Simplified)",
	language.TraditionalChinese: "Chinese (Traditional)",
}

// LanguageLabel returns the English name used in prompts, e.g. "Japanese".
func LanguageLabel(tag language.Tag) string {
	if tag == language.Und {
		return "auto-detect"
	}
	if label, ok := labelOverrides[tag]; ok {
		return label
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// ResolveSourceLabel picks the prompt label for the source language. When
// configured is "auto" or empty the detected tag is used.
func ResolveSourceLabel(configured string, detected language.Tag) string {
	configured = strings.TrimSpace(configured)
	if configured == "" || strings.EqualFold(configured, AutoLanguage) {
		return LanguageLabel(detected)
	}
	tag, err := language.Parse(configured)
	if err != nil {
		return configured
	}
	return LanguageLabel(tag)
}

// ResolveTargetLabel returns the prompt label for a target language string.
func ResolveTargetLabel(configured string) string {
	tag, err := language.Parse(strings.TrimSpace(configured))
	if err != nil {
		return configured
	}
	return LanguageLabel(tag)
}
