package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundImageURL(t *testing.T) {
	cases := []struct {
		name  string
		style string
		want  string
	}{
		{
			name:  "quoted url",
			style: `background-image: url("https://tse1.mm.bing.net/th?id=abc")`,
			want:  "https://tse1.mm.bing.net/th?id=abc",
		},
		{
			name:  "unquoted url",
			style: `background-image: url(https://example.com/thumb.jpg); width: 100px`,
			want:  "https://example.com/thumb.jpg",
		},
		{
			name:  "protocol relative",
			style: `background-image: url("//example.com/thumb.jpg")`,
			want:  "https://example.com/thumb.jpg",
		},
		{
			name:  "no background image",
			style: "width: 100px",
			want:  "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, backgroundImageURL(tc.style))
		})
	}
}

func TestAbsoluteDuckDuckGoURL(t *testing.T) {
	assert.Equal(t, "https://duckduckgo.com/v.js?q=test", absoluteDuckDuckGoURL("/v.js?q=test"))
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", absoluteDuckDuckGoURL("https://www.youtube.com/watch?v=abc"))
}
