package termmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	tests := []struct {
		name       string
		sourceLang string
		targetLang string
		expected   []string
	}{
		{"pair", "en", "zh", []string{
			"term_map.en-zh.json", "term_map.en-zh.yaml", "term_map.en-zh.yml",
			"term_map.zh.json", "term_map.zh.yaml", "term_map.zh.yml",
		}},
		{"BCP47 tags", "zh-CN", "en-US", []string{
			"term_map.zh-en.json", "term_map.zh-en.yaml", "term_map.zh-en.yml",
			"term_map.en.json", "term_map.en.yaml", "term_map.en.yml",
		}},
		{"auto source", "auto", "fr", []string{"term_map.fr.json", "term_map.fr.yaml", "term_map.fr.yml"}},
		{"no target", "en", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Candidates(tt.sourceLang, tt.targetLang))
		})
	}
}

func TestFind(t *testing.T) {
	// root/
	//   term_map.en-zh.json
	//   season1/
	//     episode1/
	root := t.TempDir()
	season1 := filepath.Join(root, "season1")
	episode1 := filepath.Join(season1, "episode1")
	require.NoError(t, os.MkdirAll(episode1, 0o755))

	tmPath := filepath.Join(root, "term_map.en-zh.json")
	require.NoError(t, os.WriteFile(tmPath, []byte(`{"hello":"world"}`), 0o644))

	assert.Equal(t, tmPath, Find(episode1, "en", "zh"))
	assert.Equal(t, tmPath, Find(season1, "en-US", "zh-CN"))
	assert.Equal(t, tmPath, Find(root, "en", "zh"))
	assert.Empty(t, Find(episode1, "en", "ja"))
	assert.Empty(t, Find(episode1, "auto", "zh"))
}

func TestFind_ClosestWins(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "child")
	require.NoError(t, os.MkdirAll(child, 0o755))

	rootTm := filepath.Join(root, "term_map.en-zh.json")
	childTm := filepath.Join(child, "term_map.zh.yaml")
	require.NoError(t, os.WriteFile(rootTm, []byte(`{"a":"b"}`), 0o644))
	require.NoError(t, os.WriteFile(childTm, []byte("c: d\n"), 0o644))

	assert.Equal(t, childTm, Find(child, "en", "zh"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "term_map.en-zh.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"Momo Ayase":"绫濑桃"," Okarun ":"奥卡轮","Serpo":""}`), 0o644))
	loaded, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, TermMap{"Momo Ayase": "绫濑桃", "Okarun": "奥卡轮"}, loaded)

	yamlPath := filepath.Join(dir, "term_map.zh.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("Turbo Granny: 涡轮婆婆\nOkarun: 奥卡轮\n"), 0o644))
	loaded, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, TermMap{"Turbo Granny": "涡轮婆婆", "Okarun": "奥卡轮"}, loaded)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("/nonexistent/path/term_map.json")
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "term_map.zh.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse term map")
}

func TestNormalizeLanguageCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"zh-CN", "zh"},
		{"en-US", "en"},
		{"pt-BR", "pt"},
		{"auto", ""},
		{"AUTO", ""},
		{"", ""},
		{"not a tag", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeLanguageCode(tt.input))
		})
	}
}
