package termmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tm := TermMap{
		"Momo Ayase":   "绫濑桃",
		"Momo":         "桃",
		"Okarun":       "奥卡轮",
		"Turbo Granny": "涡轮婆婆",
	}

	got := Match(tm, []string{
		"Momo Ayase, look out!",
		"Okarun is here.",
		"This is just a regular line.",
	})

	assert.Equal(t, []Term{
		{Source: "Momo Ayase", Target: "绫濑桃"},
		{Source: "Okarun", Target: "奥卡轮"},
		{Source: "Momo", Target: "桃"},
	}, got)
}

func TestMatch_Empty(t *testing.T) {
	assert.Empty(t, Match(TermMap{}, []string{"some text"}))
	assert.Empty(t, Match(TermMap{"hello": "world"}, nil))
	assert.Empty(t, Match(nil, []string{"hello"}))
}

func TestMatch_CaseSensitive(t *testing.T) {
	tm := TermMap{"Momo": "桃"}

	assert.Empty(t, Match(tm, []string{"momo is here"}))
	assert.Len(t, Match(tm, []string{"Momo is here"}), 1)
}

func TestRender(t *testing.T) {
	out := Render([]Term{{Source: "Okarun", Target: "奥卡轮"}, {Source: "Momo", Target: "桃"}})
	assert.Equal(t, "- Okarun => 奥卡轮\n- Momo => 桃\n", out)
	assert.Empty(t, Render(nil))
}
