package termmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const filePrefix = "term_map."

var extensions = []string{".json", ".yaml", ".yml"}

// Candidates lists the glossary file names for a language pair, most
// specific first: "term_map.en-zh.json" before "term_map.zh.json". An
// unknown source language only yields the target-only names.
func Candidates(sourceLang, targetLang string) []string {
	src := normalizeLanguageCode(sourceLang)
	tgt := normalizeLanguageCode(targetLang)
	if tgt == "" {
		return nil
	}

	var bases []string
	if src != "" {
		bases = append(bases, filePrefix+src+"-"+tgt)
	}
	bases = append(bases, filePrefix+tgt)

	ret := make([]string, 0, len(bases)*len(extensions))
	for _, base := range bases {
		for _, ext := range extensions {
			ret = append(ret, base+ext)
		}
	}
	return ret
}

// Find walks up from startDir and returns the first glossary file for the
// language pair, or "" if there is none.
func Find(startDir, sourceLang, targetLang string) string {
	names := Candidates(sourceLang, targetLang)
	if len(names) == 0 {
		return ""
	}

	currentDir := startDir
	for {
		for _, name := range names {
			candidate := filepath.Join(currentDir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// Load reads a glossary from a JSON or YAML object of source to target
// terms. Entries with an empty side are dropped.
func Load(path string) (TermMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse term map %s: %w", path, err)
	}

	tm := make(TermMap, len(raw))
	for source, target := range raw {
		source, target = strings.TrimSpace(source), strings.TrimSpace(target)
		if source == "" || target == "" {
			continue
		}
		tm[source] = target
	}
	return tm, nil
}

// normalizeLanguageCode returns the 2-letter base code of a language tag,
// or "" for "auto" and unparsable input.
func normalizeLanguageCode(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil || tag == language.Und {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}
