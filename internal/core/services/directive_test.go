package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDirective_RawJSON(t *testing.T) {
	d, ok := DetectDirective(`{"tool": "calculator", "parameters": {"expression": "2+2"}}`)
	require.True(t, ok)
	assert.Equal(t, "calculator", d.ToolName)
	assert.Equal(t, "2+2", d.Arguments["expression"])
}

func TestDetectDirective_FencedJSON(t *testing.T) {
	text := "I'll look that up.\n```json\n{\"tool\": \"web_search\", \"parameters\": {\"query\": \"golang\"}}\n```"
	d, ok := DetectDirective(text)
	require.True(t, ok)
	assert.Equal(t, "web_search", d.ToolName)
	assert.Equal(t, "golang", d.Arguments["query"])
}

func TestDetectDirective_FencedWithoutLanguageTag(t *testing.T) {
	text := "```\n{\"tool\": \"read_notes\", \"parameters\": {}}\n```"
	d, ok := DetectDirective(text)
	require.True(t, ok)
	assert.Equal(t, "read_notes", d.ToolName)
	assert.Empty(t, d.Arguments)
}

func TestDetectDirective_InlineForm(t *testing.T) {
	d, ok := DetectDirective(`TOOL_CALL: calculator(expression: "2+2")`)
	require.True(t, ok)
	assert.Equal(t, "calculator", d.ToolName)
	assert.Equal(t, `expression: "2+2"`, d.RawArguments)
	assert.Nil(t, d.Arguments)
}

func TestDetectDirective_MissingParametersIsFinalAnswer(t *testing.T) {
	// Arguments beside the tool key instead of under "parameters" do not
	// satisfy the directive shape; the reply is a final answer.
	_, ok := DetectDirective(`{"tool": "calculator", "expression": "9/3"}`)
	assert.False(t, ok)
}

func TestDetectDirective_RejectsNonDirectives(t *testing.T) {
	cases := []string{
		"Just a plain answer.",
		`["an", "array"]`,
		`{"no_tool_key": true}`,
		`{"tool": 42}`,
		`{"tool": ""}`,
		"```json\nnot valid json\n```",
		`{"tool": "x", "parameters": []}`,
	}
	for _, text := range cases {
		_, ok := DetectDirective(text)
		assert.False(t, ok, "text %q", text)
	}
}

func TestDetectDirective_InlineMultilineArguments(t *testing.T) {
	text := "TOOL_CALL: save_note(title: \"Plan\",\ncontent: \"step one\")"
	d, ok := DetectDirective(text)
	require.True(t, ok)
	assert.Equal(t, "save_note", d.ToolName)
	assert.Contains(t, d.RawArguments, "step one")
}
