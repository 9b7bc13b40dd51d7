package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslatedPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/subs", "ep1_translated.srt"), TranslatedPath("/subs/ep1.srt", "_translated"))
	assert.Equal(t, filepath.Join("/subs", "ep1.en.fr.srt"), TranslatedPath("/subs/ep1.en.srt", ".fr"))
	assert.Equal(t, filepath.Join("/subs", "noext_translated.srt"), TranslatedPath("/subs/noext", "_translated"))
	assert.Equal(t, "", TranslatedPath("", "_translated"))
}

func TestValidateSuffix(t *testing.T) {
	for _, ok := range []string{"_translated", ".fr", "-de"} {
		assert.NoError(t, ValidateSuffix(ok), ok)
	}
	for _, bad := range []string{"", "  ", "/../ep1", `\..\ep1`, "/out", "..", "_..x"} {
		assert.ErrorIs(t, ValidateSuffix(bad), ErrUnsafeSuffix, bad)
	}
}

func TestOutputPath(t *testing.T) {
	out, err := OutputPath("/subs/ep1.srt", ".fr")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/subs", "ep1.fr.srt"), out)

	_, err = OutputPath("/subs/ep1.srt", "/../ep1")
	assert.ErrorIs(t, err, ErrUnsafeSuffix)

	// A suffixless source keeps its default extension only in the output.
	_, err = OutputPath("/subs/ep1", "_x")
	assert.NoError(t, err)
}

func TestHasSuffix(t *testing.T) {
	assert.True(t, HasSuffix("/subs/ep1_translated.srt", "_translated"))
	assert.False(t, HasSuffix("/subs/ep1.srt", "_translated"))
	assert.False(t, HasSuffix("/subs/ep1.srt", ""))
}

func TestFindRecentAfter(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.srt")
	fresh := filepath.Join(dir, "season1", "fresh.SRT")
	other := filepath.Join(dir, "notes.txt")

	require.NoError(t, os.MkdirAll(filepath.Dir(fresh), 0o755))
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	cutoff := time.Now().Add(-time.Hour)

	all, err := FindRecentAfter(dir, cutoff)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{fresh, other}, all)

	srt, err := FindRecentAfter(dir, cutoff, ".srt")
	require.NoError(t, err)
	assert.Equal(t, []string{fresh}, srt)

	_, err = FindRecentAfter(filepath.Join(dir, "missing"), cutoff)
	assert.Error(t, err)
}
