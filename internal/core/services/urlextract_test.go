package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatorSearchQuery(t *testing.T) {
	cases := map[string]string{
		"videos by Alice":              `"Alice" videos channel`,
		"the first raid by zorblax":    `"zorblax" the first raid channel`,
		"clips from shroud":            `"shroud" clips channel`,
		"base created by Bob":          `"Bob" base channel`,
		"minecraft tournament replays": "minecraft tournament replays",
	}
	for in, want := range cases {
		assert.Equal(t, want, CreatorSearchQuery(in), "query %q", in)
	}
}

func TestCreatorSearchQuery_KeepsExistingChannelWord(t *testing.T) {
	got := CreatorSearchQuery("channel by Alice")
	assert.Equal(t, `"Alice" channel`, got)
}

func TestExtractWebSearchContent(t *testing.T) {
	urls := []string{
		"https://youtube.com/@zorblax",
		"https://www.twitch.tv/zorblax",
		"https://reddit.com/r/zorblax",
		"https://youtube.com/@someoneelse",
		"not-a-url",
	}
	content := ExtractWebSearchContent(urls, 5)

	require.NotNil(t, content.YouTubeChannelURL)
	assert.Equal(t, "https://youtube.com/@zorblax", *content.YouTubeChannelURL)
	require.NotNil(t, content.TwitchChannelURL)
	assert.Equal(t, "https://www.twitch.tv/zorblax", *content.TwitchChannelURL)
	// Second channel URL for an already claimed platform falls into the tail.
	assert.Equal(t, []string{"https://reddit.com/r/zorblax", "https://youtube.com/@someoneelse"},
		content.AdditionalLinks)
	assert.True(t, content.Extraction.ExtractionSuccessful)
	assert.Equal(t, 4, content.Extraction.SourcesFound)
}

func TestExtractWebSearchContent_CapsAdditionalLinks(t *testing.T) {
	urls := []string{
		"https://a.example/1", "https://a.example/2", "https://a.example/3",
		"https://a.example/4", "https://a.example/5", "https://a.example/6",
	}
	content := ExtractWebSearchContent(urls, 3)
	assert.Len(t, content.AdditionalLinks, 3)
}

func TestExtractWebSearchContent_EmptyInput(t *testing.T) {
	content := ExtractWebSearchContent(nil, 5)
	assert.False(t, content.Extraction.ExtractionSuccessful)
	assert.Empty(t, content.AdditionalLinks)
	assert.Nil(t, content.YouTubeChannelURL)
}
