package subtitle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_TranslatedCues(t *testing.T) {
	doc, err := Decode([]byte(sampleSRT))
	require.NoError(t, err)

	out, err := Encode(doc, Translations{0: "Bonjour", 1: "Monde"})
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:03,000\nBonjour\n\n2\n00:00:04,000 --> 00:00:06,000\nMonde\n\n", out)
}

func TestEncode_IdentityRoundTrip(t *testing.T) {
	input := "1\r\n00:00:01,000 --> 00:00:03,000\r\nHello\r\nthere\r\n\r\n2\r\n00:00:04,000 --> 00:00:06,000 X1:1\r\nWorld\r\n\r\n"
	doc, err := Decode([]byte(input))
	require.NoError(t, err)

	out, err := Encode(doc, doc.Identity())
	require.NoError(t, err)
	assert.Equal(t, input, out)

	again, err := Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, doc.Cues, again.Cues)
}

func TestEncode_MultiLineTranslationUsesDocumentNewline(t *testing.T) {
	doc, err := Decode([]byte("1\r\n00:00:01,000 --> 00:00:02,000\r\nHi\r\n"))
	require.NoError(t, err)

	out, err := Encode(doc, Translations{0: "Salut\nà toi"})
	require.NoError(t, err)
	assert.Equal(t, "1\r\n00:00:01,000 --> 00:00:02,000\r\nSalut\r\nà toi\r\n\r\n", out)
}

func TestEncode_SynthesizedIndexWritten(t *testing.T) {
	doc, err := Decode([]byte("00:00:01,000 --> 00:00:02,000\nHi\n"))
	require.NoError(t, err)

	out, err := Encode(doc, doc.Identity())
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nHi\n\n", out)
}

func TestEncode_Mismatch(t *testing.T) {
	doc, err := Decode([]byte(sampleSRT))
	require.NoError(t, err)

	_, err = Encode(doc, Translations{0: "Bonjour"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 cues but got 1")

	_, err = Encode(doc, Translations{0: "Bonjour", 5: "Monde"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cue id 1")
}

func TestEncode_RejectsBlankLineInsideCue(t *testing.T) {
	doc, err := Decode([]byte(sampleSRT))
	require.NoError(t, err)

	_, err = Encode(doc, Translations{0: "Hallo\n\nWelt", 1: "Monde"})
	require.ErrorIs(t, err, ErrBlankLine)
	assert.Contains(t, err.Error(), "cue id 0")

	_, err = Encode(doc, Translations{0: "Hallo\n \t", 1: "Monde"})
	assert.ErrorIs(t, err, ErrBlankLine)

	_, err = Encode(doc, Translations{0: "", 1: "Monde"})
	assert.NoError(t, err)
}

func TestCompactText(t *testing.T) {
	assert.Equal(t, "Hallo\nWelt", CompactText("Hallo\n\nWelt"))
	assert.Equal(t, "a\nb", CompactText("\na\n  \nb\n"))
	assert.Equal(t, "single", CompactText("single"))
	assert.Equal(t, "", CompactText(""))
}

func TestWriteFile_Atomic(t *testing.T) {
	doc, err := Decode([]byte(sampleSRT))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "episode_translated.srt")
	require.NoError(t, WriteFile(path, doc, Translations{0: "Bonjour", 1: "Monde"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Bonjour")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFile_MismatchLeavesNoFile(t *testing.T) {
	doc, err := Decode([]byte(sampleSRT))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "episode_translated.srt")
	require.Error(t, WriteFile(path, doc, Translations{}))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
