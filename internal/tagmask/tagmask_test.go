package tagmask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask_HTMLTags(t *testing.T) {
	masked, mapping := Mask("This is <i>italic</i> text")

	assert.Equal(t, "This is [[TAG_0]]italic[[TAG_1]] text", masked)
	require.Len(t, mapping, 2)
	assert.Equal(t, Pair{Placeholder: "[[TAG_0]]", Original: "<i>"}, mapping[0])
	assert.Equal(t, Pair{Placeholder: "[[TAG_1]]", Original: "</i>"}, mapping[1])
}

func TestMask_StyleBlock(t *testing.T) {
	masked, mapping := Mask(`{\an8}Top text`)

	assert.Equal(t, "[[TAG_0]]Top text", masked)
	require.Len(t, mapping, 1)
	assert.Equal(t, `{\an8}`, mapping[0].Original)
}

func TestMask_UnclosedDelimitersStayLiteral(t *testing.T) {
	tests := []string{
		"a < b and c",
		"open { brace",
		"x > y } z",
		"",
	}
	for _, input := range tests {
		masked, mapping := Mask(input)
		assert.Equal(t, input, masked)
		assert.Empty(t, mapping)
	}
}

func TestMask_FirstCloserWins(t *testing.T) {
	masked, mapping := Mask(`<font color="red">Ça va?</font> {b}`)

	assert.Equal(t, "[[TAG_0]]Ça va?[[TAG_1]] [[TAG_2]]", masked)
	require.Len(t, mapping, 3)
	assert.Equal(t, `<font color="red">`, mapping[0].Original)
	assert.Equal(t, "{b}", mapping[2].Original)
}

func TestMask_Reversible(t *testing.T) {
	inputs := []string{
		"plain text",
		"<i>Hello</i>, {\\pos(10,20)}world",
		"日本語<b>テスト</b>\n二行目",
		"< unclosed <b>bold</b>",
		"{a}{b}{c}",
	}
	for _, input := range inputs {
		masked, mapping := Mask(input)
		assert.Equal(t, input, Unmask(masked, mapping), "input %q", input)
	}
}

func TestUnmask_ReorderedAndDropped(t *testing.T) {
	_, mapping := Mask("<i>Hello</i> there")

	// translator moved one placeholder and dropped the other
	out := Unmask("Salut [[TAG_0]]toi", mapping)
	assert.Equal(t, "Salut <i>toi", out)
	assert.Equal(t, []string{"[[TAG_1]]"}, Missing("Salut [[TAG_0]]toi", mapping))
}

func TestUnmask_DuplicatedPlaceholder(t *testing.T) {
	_, mapping := Mask("<b>x")
	assert.Equal(t, "<b>a <b>b", Unmask("[[TAG_0]]a [[TAG_0]]b", mapping))
}
