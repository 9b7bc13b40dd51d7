package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short"))

	ascii := strings.Repeat("a", maxRawBody+10)
	assert.Equal(t, strings.Repeat("a", maxRawBody)+"...", clip(ascii))

	// "é" is two bytes, so byte maxRawBody falls inside a rune.
	multi := "x" + strings.Repeat("é", maxRawBody)
	got := clip(multi)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(strings.TrimSuffix(got, "...")), maxRawBody)
	assert.Equal(t, "x"+strings.Repeat("é", (maxRawBody-1)/2), strings.TrimSuffix(got, "..."))

	cjk := strings.Repeat("語", maxRawBody)
	got = clip(cjk)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("語", maxRawBody/3), strings.TrimSuffix(got, "..."))
}
