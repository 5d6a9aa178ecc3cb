package services

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

func newTestValidator() *ArgumentValidator {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewArgumentValidator(logger, NewToolTable())
}

func descriptor(name string) *domain.ToolDescriptor {
	return &domain.ToolDescriptor{Name: name}
}

func TestValidate_MissingRequiredField(t *testing.T) {
	v := newTestValidator()

	res := v.Validate(descriptor("calculator"), domain.ParsedArguments{})
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors[0], "expression")
}

func TestValidate_EmptyStringCountsAsMissing(t *testing.T) {
	v := newTestValidator()

	res := v.Validate(descriptor("video_search"), domain.ParsedArguments{"query": "   "})
	assert.False(t, res.IsValid)
}

func TestValidate_SatisfiedArguments(t *testing.T) {
	v := newTestValidator()

	res := v.Validate(descriptor("calculator"), domain.ParsedArguments{"expression": "2+2"})
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestValidate_UnknownToolIsVacuouslyValid(t *testing.T) {
	v := newTestValidator()

	res := v.Validate(descriptor("mystery_tool"), domain.ParsedArguments{"anything": 1})
	assert.True(t, res.IsValid)
}

func TestValidate_AdvertisedSchema(t *testing.T) {
	v := newTestValidator()
	tool := &domain.ToolDescriptor{
		Name: "calculator",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"expression"},
			"properties": map[string]interface{}{
				"expression": map[string]interface{}{"type": "string"},
			},
		},
	}

	res := v.Validate(tool, domain.ParsedArguments{"expression": "1+1"})
	assert.True(t, res.IsValid)

	res = v.Validate(tool, domain.ParsedArguments{"expression": float64(42)})
	assert.False(t, res.IsValid)
}

func TestRepair_AliasRenaming(t *testing.T) {
	v := newTestValidator()

	repaired := v.Repair(descriptor("calculator"), domain.ParsedArguments{"expr": "3*3"})
	assert.Equal(t, "3*3", repaired["expression"])
	assert.NotContains(t, repaired, "expr")

	repaired = v.Repair(descriptor("video_search"), domain.ParsedArguments{"q": "speedruns"})
	assert.Equal(t, "speedruns", repaired["query"])
}

func TestRepair_CanonicalWinsOverAlias(t *testing.T) {
	v := newTestValidator()

	repaired := v.Repair(descriptor("calculator"), domain.ParsedArguments{
		"expression": "5+5",
		"expr":       "ignored",
	})
	assert.Equal(t, "5+5", repaired["expression"])
}

func TestRepair_FillsDefaults(t *testing.T) {
	v := newTestValidator()

	repaired := v.Repair(descriptor("calculator"), domain.ParsedArguments{})
	assert.Equal(t, "1+1", repaired["expression"])
}

func TestRepair_SalvagesStrayValue(t *testing.T) {
	v := newTestValidator()

	// video_search's default query is empty, so a stray field is the best
	// remaining signal of what the user wanted.
	repaired := v.Repair(descriptor("video_search"), domain.ParsedArguments{
		"topic": "chess tournaments",
	})
	assert.Equal(t, "chess tournaments", repaired["query"])
}

func TestRepair_FallsBackToEmptyDefaults(t *testing.T) {
	v := newTestValidator()

	// save_note's content default is empty; with nothing to salvage the
	// field must still end up present.
	repaired := v.Repair(descriptor("save_note"), domain.ParsedArguments{})
	assert.Equal(t, "Untitled", repaired["title"])
	assert.Contains(t, repaired, "content")
	assert.Equal(t, "", repaired["content"])
}

func TestRepair_CoercesTypes(t *testing.T) {
	v := newTestValidator()

	repaired := v.Repair(descriptor("calculator"), domain.ParsedArguments{"expression": float64(7)})
	assert.Equal(t, "7", repaired["expression"])

	repaired = v.Repair(descriptor("video_search"), domain.ParsedArguments{
		"query":      "raids",
		"maxResults": "5",
	})
	assert.Equal(t, float64(5), repaired["maxResults"])
}

func TestCoerceToKind_Array(t *testing.T) {
	assert.Equal(t, []interface{}{"solo"}, coerceToKind(FieldArray, "solo"))
	assert.Equal(t, []interface{}{"a", "b"}, coerceToKind(FieldArray, "a, b"))
	assert.Equal(t, []interface{}{float64(1)}, coerceToKind(FieldArray, float64(1)))

	already := []interface{}{"x"}
	assert.Equal(t, already, coerceToKind(FieldArray, already))
}

func TestRepair_AddsURLScheme(t *testing.T) {
	v := newTestValidator()

	repaired := v.Repair(descriptor("view_text_website"), domain.ParsedArguments{
		"url": "example.com/page",
	})
	assert.Equal(t, "https://example.com/page", repaired["url"])

	repaired = v.Repair(descriptor("view_text_website"), domain.ParsedArguments{
		"link": "//cdn.example.com/doc",
	})
	assert.Equal(t, "https://cdn.example.com/doc", repaired["url"])

	repaired = v.Repair(descriptor("view_text_website"), domain.ParsedArguments{
		"url": "http://example.com",
	})
	assert.Equal(t, "http://example.com", repaired["url"])
}

func TestRepair_ThenValidates(t *testing.T) {
	v := newTestValidator()
	inputs := []domain.ParsedArguments{
		{},
		{"expr": "1+2"},
		{"junk": "2+2"},
		{"expression": float64(9)},
	}
	for _, in := range inputs {
		repaired := v.Repair(descriptor("calculator"), in)
		res := v.Validate(descriptor("calculator"), repaired)
		assert.True(t, res.IsValid, "input %v repaired to %v", in, repaired)
	}
}
