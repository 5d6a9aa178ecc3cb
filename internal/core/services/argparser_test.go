package services

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *ArgumentParser {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewArgumentParser(logger, NewToolTable())
}

func TestParse_StrictJSON(t *testing.T) {
	p := newTestParser()

	args := p.Parse("calculator", `{"expression": "2+2"}`)
	assert.Equal(t, "2+2", args["expression"])
}

func TestParse_EmptyUsesDefaults(t *testing.T) {
	p := newTestParser()

	args := p.Parse("calculator", "")
	assert.Equal(t, "1+1", args["expression"])

	args = p.Parse("fs_list", "   ")
	assert.Equal(t, ".", args["path"])
}

func TestParse_UnquotedKeys(t *testing.T) {
	p := newTestParser()

	args := p.Parse("video_search", `{query: "minecraft speedrun", maxResults: 5}`)
	assert.Equal(t, "minecraft speedrun", args["query"])
	assert.Equal(t, float64(5), args["maxResults"])
}

func TestParse_BarePropertyList(t *testing.T) {
	p := newTestParser()

	args := p.Parse("calculator", `expression: "10 * 4"`)
	assert.Equal(t, "10 * 4", args["expression"])
}

func TestParse_SingleQuotes(t *testing.T) {
	p := newTestParser()

	args := p.Parse("web_search", `{'query': 'golang generics'}`)
	assert.Equal(t, "golang generics", args["query"])
}

func TestParse_TrailingComma(t *testing.T) {
	p := newTestParser()

	args := p.Parse("view_text_website", `{"url": "https://example.com",}`)
	assert.Equal(t, "https://example.com", args["url"])
}

func TestParse_KeyValueRecovery(t *testing.T) {
	p := newTestParser()

	// Apostrophe in the value breaks JSON repair, pair extraction recovers.
	args := p.Parse("video_search", `query: "shroud's best plays", maxResults: 3`)
	assert.Equal(t, "shroud's best plays", args["query"])
}

func TestParse_UnquotedScalars(t *testing.T) {
	p := newTestParser()

	args := p.Parse("video_search", `query: "raids", maxResults: 7`)
	assert.Equal(t, float64(7), args["maxResults"])
}

func TestParse_SingleFieldHeuristic(t *testing.T) {
	p := newTestParser()

	args := p.Parse("video_search", `"latest ludwig stream"`)
	assert.Equal(t, "latest ludwig stream", args["query"])

	args = p.Parse("fs_read", "notes/todo.md")
	assert.Equal(t, "notes/todo.md", args["path"])
}

func TestParse_NeverPanicsOnGarbage(t *testing.T) {
	p := newTestParser()

	inputs := []string{
		`{{{{`,
		`}}}}`,
		`,,,,,`,
		`{"query": }`,
		"\x00\x01\x02",
		`{query: [1, 2,}`,
	}
	for _, in := range inputs {
		args := p.Parse("calculator", in)
		require.NotNil(t, args, "input %q", in)
	}
}

func TestParse_GarbageFallsBackToDefaults(t *testing.T) {
	p := newTestParser()

	args := p.Parse("calculator", `,,,`)
	assert.Equal(t, "1+1", args["expression"])
}

func TestParse_UnknownToolStillParses(t *testing.T) {
	p := newTestParser()

	args := p.Parse("mystery_tool", `{"a": 1}`)
	assert.Equal(t, float64(1), args["a"])

	args = p.Parse("mystery_tool", "")
	assert.Empty(t, args)
}

func TestNormalizeArgumentText(t *testing.T) {
	cases := map[string]string{
		`, {"a": "b"} ,`:      `{"a": "b"}`,
		`{a: "b",}`:           `{"a": "b"}`,
		`{"a": "b" "c": "d"}`: `{"a": "b", "c": "d"}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeArgumentText(in), "input %q", in)
	}
}
