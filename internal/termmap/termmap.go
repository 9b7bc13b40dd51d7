// Package termmap holds user-maintained glossaries that pin the
// translation of names and recurring terms.
package termmap

import (
	"cmp"
	"slices"
	"strings"
)

// TermMap maps source language terms to target language terms.
type TermMap map[string]string

type Term struct {
	Source string
	Target string
}

// Match returns the terms that occur in any of texts, longest source term
// first. Matching is a case-sensitive substring test, which suits proper
// nouns.
func Match(tm TermMap, texts []string) []Term {
	var matched []Term
	for source, target := range tm {
		for _, text := range texts {
			if strings.Contains(text, source) {
				matched = append(matched, Term{Source: source, Target: target})
				break
			}
		}
	}
	slices.SortFunc(matched, func(a, b Term) int {
		if c := cmp.Compare(len(b.Source), len(a.Source)); c != 0 {
			return c
		}
		return strings.Compare(a.Source, b.Source)
	})
	return matched
}

// Render formats terms as one "- source => target" line each.
func Render(terms []Term) string {
	var b strings.Builder
	for _, t := range terms {
		b.WriteString("- ")
		b.WriteString(t.Source)
		b.WriteString(" => ")
		b.WriteString(t.Target)
		b.WriteString("\n")
	}
	return b.String()
}
