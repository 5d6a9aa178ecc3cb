package htmlsearch

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

const samplePage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dabc123">Speedrun <b>world record</b></a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/article">Unrelated article</a>
</div>
<div class="result">
  <a class="result__a" href="https://www.twitch.tv/somestreamer">Streamer channel</a>
</div>
</body></html>`

func newTestSearcher(t *testing.T, handler http.HandlerFunc) *Searcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewSearcher(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	s.endpoint = srv.URL + "/html/"
	return s
}

func TestSearchKeepsVideoHostsOnly(t *testing.T) {
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fighting game tournament", r.URL.Query().Get("q"))
		w.Write([]byte(samplePage))
	})

	results, err := s.Search(context.Background(), "fighting game tournament", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Speedrun world record", results[0].Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", results[0].URL)
	assert.Equal(t, "https://www.twitch.tv/somestreamer", results[1].URL)
}

func TestSearchHonorsMaxResults(t *testing.T) {
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	})

	results, err := s.Search(context.Background(), "anything", domain.SearchOptions{MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchErrorsWhenNothingMatches(t *testing.T) {
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>captcha</body></html>"))
	})

	_, err := s.Search(context.Background(), "anything", domain.SearchOptions{})
	assert.Error(t, err)
}

func TestSearchErrorsOnBadStatus(t *testing.T) {
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := s.Search(context.Background(), "anything", domain.SearchOptions{})
	assert.ErrorContains(t, err, "429")
}

func TestDecodeRedirect(t *testing.T) {
	assert.Equal(t, "https://youtu.be/xyz",
		decodeRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fyoutu.be%2Fxyz"))
	assert.Equal(t, "https://youtu.be/xyz", decodeRedirect("https://youtu.be/xyz"))
}

func TestIsVideoHost(t *testing.T) {
	assert.True(t, isVideoHost("https://www.youtube.com/watch?v=1"))
	assert.True(t, isVideoHost("https://m.youtube.com/watch?v=1"))
	assert.False(t, isVideoHost("https://example.com/video"))
	assert.False(t, isVideoHost("://bad"))
}
