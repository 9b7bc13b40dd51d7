// Package translator implements the numbered-list request/response protocol
// spoken with the remote text-completion model.
package translator

import (
	"context"
	"fmt"

	"github.com/MimeLyc/srt-translator/internal/batch"
	"github.com/MimeLyc/srt-translator/internal/termmap"
)

// Client sends one system/user message pair and returns the model's text.
type Client interface {
	Send(ctx context.Context, system, user string) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, system, user string) (string, error)

func (f ClientFunc) Send(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// ProtocolTranslator drives one batch through prompt, send and parse.
// Results are still masked and in TranslateIDs order.
type ProtocolTranslator struct {
	client     Client
	sourceLang string
	targetLang string
	system     string
	terms      termmap.TermMap
}

type Option func(*ProtocolTranslator)

// WithTermMap pins the translation of glossary terms found in a batch.
func WithTermMap(tm termmap.TermMap) Option {
	return func(t *ProtocolTranslator) {
		t.terms = tm
	}
}

// NewProtocolTranslator creates a translator for a language pair given as
// display labels.
func NewProtocolTranslator(client Client, sourceLang, targetLang string, opts ...Option) *ProtocolTranslator {
	t := &ProtocolTranslator{
		client:     client,
		sourceLang: sourceLang,
		targetLang: targetLang,
		system:     SystemPrompt(sourceLang, targetLang),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Prompt builds the user prompt for b. When glossary terms occur in the
// cues to translate, the prompt carries a system message listing them.
func (t *ProtocolTranslator) Prompt(b batch.Batch) (Prompt, error) {
	p, err := BuildPrompt(b, t.sourceLang, t.targetLang)
	if err != nil || len(t.terms) == 0 {
		return p, err
	}

	texts := make([]string, 0, len(b.TranslateIDs))
	for _, c := range b.Cues {
		if c.Role == batch.RoleTranslate {
			texts = append(texts, c.Text)
		}
	}
	if matched := termmap.Match(t.terms, texts); len(matched) > 0 {
		p.System = t.system + GlossarySection(matched)
	}
	return p, nil
}

// Exchange sends an already built prompt and parses the reply.
func (t *ProtocolTranslator) Exchange(ctx context.Context, p Prompt) ([]string, error) {
	system := p.System
	if system == "" {
		system = t.system
	}
	resp, err := t.client.Send(ctx, system, p.User)
	if err != nil {
		return nil, err
	}
	return ParseNumberedResponse(resp, p.Count)
}

func (t *ProtocolTranslator) TranslateBatch(ctx context.Context, b batch.Batch) ([]string, error) {
	p, err := t.Prompt(b)
	if err != nil {
		return nil, err
	}
	out, err := t.Exchange(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("batch %d: %w", b.Number, err)
	}
	return out, nil
}
