package translator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberedResponse_WithMarkers(t *testing.T) {
	t.Parallel()

	resp := "Sure, here you go:\nBEGIN\n1. Bonjour\n2) Monde<NL>entier\nEND\n3. ignored"
	got, err := ParseNumberedResponse(resp, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bonjour", "Monde\nentier"}, got)
}

func TestParseNumberedResponse_WithoutMarkers(t *testing.T) {
	t.Parallel()

	got, err := ParseNumberedResponse("1. Hola\n  2. Mundo\n", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hola", "Mundo"}, got)
}

func TestParseNumberedResponse_ContinuationLines(t *testing.T) {
	t.Parallel()

	resp := "BEGIN\nTranslations:\n1. first part\n   second part\n\nNote: kept formal tone\n2. other\nEND"
	got, err := ParseNumberedResponse(resp, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"first part\nsecond part", "other"}, got)
}

func TestParseNumberedResponse_CRLF(t *testing.T) {
	t.Parallel()

	got, err := ParseNumberedResponse("BEGIN\r\n1. a\r\n2. b\r\nEND\r\n", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestParseNumberedResponse_MissingItem(t *testing.T) {
	t.Parallel()

	resp := "BEGIN\n1. a\n2. b\n4. d\n5. e\nEND"
	_, err := ParseNumberedResponse(resp, 5)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, []int{3}, perr.Missing)
	assert.Empty(t, perr.Extra)
	assert.Equal(t, []int{1, 2, 4, 5}, perr.Found)
	assert.Contains(t, err.Error(), "Missing: [3]")
	assert.Contains(t, perr.Sample, "4. d")
}

func TestParseNumberedResponse_ExtraItem(t *testing.T) {
	t.Parallel()

	resp := "1. a\n2. b\n3. c\n4. d\n5. e\n6. f"
	_, err := ParseNumberedResponse(resp, 5)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, perr.Missing)
	assert.Equal(t, []int{6}, perr.Extra)
	assert.Contains(t, err.Error(), "Extra/Invalid: [6]")
}

func TestParseNumberedResponse_ZeroIsInvalid(t *testing.T) {
	t.Parallel()

	_, err := ParseNumberedResponse("0. zero\n1. one", 1)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, []int{0}, perr.Extra)
}

func TestParseNumberedResponse_DuplicateItem(t *testing.T) {
	t.Parallel()

	resp := "1. a\n2. b\n3. c\n3. again\n4. d\n5. e"
	_, err := ParseNumberedResponse(resp, 5)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "duplicate item number: 3")
}

func TestParseNumberedResponse_SampleTruncated(t *testing.T) {
	t.Parallel()

	resp := "1. " + strings.Repeat("é", 1000)
	_, err := ParseNumberedResponse(resp, 2)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 300, len([]rune(perr.Sample)))
}

func TestParseNumberedResponse_EmptyItemText(t *testing.T) {
	t.Parallel()

	// a header needs at least one space after the delimiter
	got, err := ParseNumberedResponse("1. \n2. b", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "b"}, got)
}

func TestParseNumberedResponse_DecodesEscapedToken(t *testing.T) {
	t.Parallel()

	got, err := ParseNumberedResponse("1. use <NL!> literally<NL>next", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"use <NL> literally\nnext"}, got)
}

func TestParseNumberedResponse_DropsBlankLinesInsideItem(t *testing.T) {
	t.Parallel()

	got, err := ParseNumberedResponse("1. Hallo<NL><NL>Welt<NL> <NL>!", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hallo\nWelt\n!"}, got)
}
