// Package batch partitions a document's cues into ordered, size-bounded
// translation batches.
package batch

import (
	"github.com/MimeLyc/srt-translator/internal/subtitle"
	"github.com/MimeLyc/srt-translator/internal/tagmask"
)

// perCueOverhead approximates the numbering and separators each cue adds
// to a request.
const perCueOverhead = 16

// Role tells whether a prompt cue is sent for translation or only as context.
type Role int

const (
	RoleTranslate Role = iota
	RoleContext
)

func (r Role) String() string {
	if r == RoleContext {
		return "context"
	}
	return "translate"
}

// Config controls batch sizing.
type Config struct {
	BatchSize          int `json:"batch_size" yaml:"batch_size"`
	MaxCharsPerRequest int `json:"max_chars_per_request" yaml:"max_chars_per_request"`
	// ContextBefore and ContextAfter are accepted but not used by Plan yet.
	ContextBefore int `json:"context_before" yaml:"context_before"`
	ContextAfter  int `json:"context_after" yaml:"context_after"`
}

// DefaultConfig returns the default batching configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:          25,
		MaxCharsPerRequest: 12000,
		ContextBefore:      2,
		ContextAfter:       2,
	}
}

// PromptCue is one cue as it will appear in a request.
type PromptCue struct {
	ID     int
	Timing string
	Text   string // masked text
	Role   Role
}

// Batch is a contiguous group of cues translated in one request.
type Batch struct {
	Number       int
	TranslateIDs []int
	Cues         []PromptCue
}

// FirstID returns the first cue id the batch translates, or -1.
func (b Batch) FirstID() int {
	if len(b.TranslateIDs) == 0 {
		return -1
	}
	return b.TranslateIDs[0]
}

// LastID returns the last cue id the batch translates, or -1.
func (b Batch) LastID() int {
	if len(b.TranslateIDs) == 0 {
		return -1
	}
	return b.TranslateIDs[len(b.TranslateIDs)-1]
}

// Cue returns the prompt cue with the given id.
func (b Batch) Cue(id int) (PromptCue, bool) {
	for _, c := range b.Cues {
		if c.ID == id {
			return c, true
		}
	}
	return PromptCue{}, false
}

// Plan windows cues into batches of at most cfg.BatchSize cues, shrinking a
// window while its estimated cost exceeds cfg.MaxCharsPerRequest. A single
// cue is always accepted.
func Plan(cues []subtitle.Cue, cfg Config) []Batch {
	size := cfg.BatchSize
	if size < 1 {
		size = 1
	}

	prompts := make([]PromptCue, len(cues))
	for i, cue := range cues {
		masked, _ := tagmask.Mask(cue.Text())
		prompts[i] = PromptCue{
			ID:     cue.ID,
			Timing: cue.TimingLine,
			Text:   masked,
			Role:   RoleTranslate,
		}
	}

	batches := make([]Batch, 0, (len(cues)+size-1)/size)
	for start := 0; start < len(prompts); {
		end := min(start+size, len(prompts))
		for end-start > 1 && estimate(prompts[start:end]) > cfg.MaxCharsPerRequest {
			end--
		}

		window := make([]PromptCue, end-start)
		copy(window, prompts[start:end])
		ids := make([]int, len(window))
		for i, c := range window {
			ids[i] = c.ID
		}

		batches = append(batches, Batch{
			Number:       len(batches),
			TranslateIDs: ids,
			Cues:         window,
		})
		start = end
	}
	return batches
}

func estimate(cues []PromptCue) int {
	total := 0
	for _, c := range cues {
		total += len(c.Text) + len(c.Timing) + perCueOverhead
	}
	return total
}
