package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

type stubSearchBackend struct {
	byQuery map[string][]domain.SearchResult
	err     error
	calls   []string
}

func (s *stubSearchBackend) Search(_ context.Context, query string, _ domain.SearchOptions) ([]domain.SearchResult, error) {
	s.calls = append(s.calls, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.byQuery[query], nil
}

type stubWebSearcher struct {
	content domain.WebSearchContent
	err     error
	calls   int
}

func (s *stubWebSearcher) SearchStructured(_ context.Context, _ string) (domain.WebSearchContent, error) {
	s.calls++
	if s.err != nil {
		return domain.WebSearchContent{}, s.err
	}
	return s.content, nil
}

func newTestEngine(videos *stubSearchBackend, web *stubWebSearcher) *FallbackEngine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewFallbackEngine(logger, domain.DefaultFallbackConfig(),
		NewIntentClassifier(), NewRelevanceScorer(), videos, web)
}

func TestDecide_GeneralAlwaysAccepts(t *testing.T) {
	e := newTestEngine(&stubSearchBackend{}, &stubWebSearcher{})

	for _, r := range []float64{0, 0.05, 0.1, 0.5, 1} {
		assert.Equal(t, domain.DecisionAccept, e.Decide(domain.IntentGeneral, r))
	}
}

func TestDecide_SpecificThreshold(t *testing.T) {
	e := newTestEngine(&stubSearchBackend{}, &stubWebSearcher{})

	assert.Equal(t, domain.DecisionAccept, e.Decide(domain.IntentSpecific, 0.11))
	assert.Equal(t, domain.DecisionAccept, e.Decide(domain.IntentSpecific, 0.5))
	assert.NotEqual(t, domain.DecisionAccept, e.Decide(domain.IntentSpecific, 0.1))
	assert.NotEqual(t, domain.DecisionAccept, e.Decide(domain.IntentSpecific, 0.05))
}

func TestRun_GeneralQueryAcceptsWithoutFallback(t *testing.T) {
	videos := &stubSearchBackend{byQuery: map[string][]domain.SearchResult{
		"minecraft videos": {
			{Title: "Minecraft builds", URL: "https://youtube.com/watch?v=1"},
			{Title: "More minecraft", URL: "https://youtube.com/watch?v=2"},
		},
	}}
	web := &stubWebSearcher{}
	e := newTestEngine(videos, web)

	result, decision := e.Run(context.Background(), "minecraft videos", domain.SearchOptions{})
	assert.Equal(t, domain.DecisionAccept, decision)
	assert.Equal(t, "video_search_results", result.ResponseType)
	assert.Equal(t, 2, result.Data.TotalResults)
	assert.True(t, result.Data.SearchMetadata.PrimarySearchSuccessful)
	assert.False(t, result.Data.SearchMetadata.FallbackSearchUsed)
	assert.Equal(t, 0, web.calls)
}

func TestRun_SpecificRelevantAccepts(t *testing.T) {
	query := "the video where alice raided the desert base"
	videos := &stubSearchBackend{byQuery: map[string][]domain.SearchResult{
		query: {
			{Title: "alice raided the desert base", URL: "https://youtube.com/watch?v=1"},
			{Title: "desert base raid aftermath with alice", URL: "https://youtube.com/watch?v=2"},
			{Title: "alice desert raid highlights", URL: "https://youtube.com/watch?v=3"},
		},
	}}
	web := &stubWebSearcher{}
	e := newTestEngine(videos, web)

	result, decision := e.Run(context.Background(), query, domain.SearchOptions{})
	assert.Equal(t, domain.DecisionAccept, decision)
	assert.False(t, result.Data.SearchMetadata.FallbackSearchUsed)
	assert.Equal(t, 0, web.calls)
	assert.Len(t, videos.calls, 1)
}

func TestRun_SpecificIrrelevantRetriesThenEscalates(t *testing.T) {
	query := "the video where zorblax destroyed the megastructure"
	videos := &stubSearchBackend{byQuery: map[string][]domain.SearchResult{
		query: {
			{Title: "cooking pasta at home", URL: "https://youtube.com/watch?v=1"},
			{Title: "travel vlog amsterdam", URL: "https://youtube.com/watch?v=2"},
			{Title: "unboxing a keyboard", URL: "https://youtube.com/watch?v=3"},
		},
	}}
	channel := "https://youtube.com/@zorblax"
	web := &stubWebSearcher{content: domain.WebSearchContent{
		YouTubeChannelURL: &channel,
		AdditionalLinks:   []string{"https://reddit.com/r/zorblax"},
		Extraction:        domain.ExtractionMetadata{SourcesFound: 2, ExtractionSuccessful: true},
	}}
	e := newTestEngine(videos, web)

	result, decision := e.Run(context.Background(), query, domain.SearchOptions{})
	assert.Equal(t, domain.DecisionEscalate, decision)
	assert.True(t, result.Data.SearchMetadata.FallbackSearchUsed)
	assert.Equal(t, 1, web.calls)
	require.NotNil(t, result.Data.WebSearchContent)
	assert.Equal(t, channel, *result.Data.WebSearchContent.YouTubeChannelURL)
	// Primary items are still carried in the composite.
	assert.Equal(t, 3, result.Data.TotalResults)
}

func TestRun_EnhancedRetryAcceptedWhenItImproves(t *testing.T) {
	query := "the first raid by zorblax"
	enhanced := CreatorSearchQuery(query)
	require.NotEqual(t, query, enhanced)

	videos := &stubSearchBackend{byQuery: map[string][]domain.SearchResult{
		query: {
			{Title: "unrelated cooking stream", URL: "https://youtube.com/watch?v=1"},
		},
		enhanced: {
			{Title: "zorblax first raid on the valley", URL: "https://youtube.com/watch?v=2"},
		},
	}}
	web := &stubWebSearcher{}
	e := newTestEngine(videos, web)

	result, decision := e.Run(context.Background(), query, domain.SearchOptions{})
	assert.Equal(t, domain.DecisionRetryEnhanced, decision)
	assert.True(t, result.Data.SearchMetadata.FallbackSearchUsed)
	assert.Equal(t, 0, web.calls)
	assert.Equal(t, enhanced, result.Data.Query)
	assert.Len(t, videos.calls, 2)
}

func TestRun_PrimaryTransportFailureEscalates(t *testing.T) {
	query := "the video where zorblax destroyed the megastructure"
	videos := &stubSearchBackend{err: errors.New("connection refused")}
	web := &stubWebSearcher{}
	e := newTestEngine(videos, web)

	result, decision := e.Run(context.Background(), query, domain.SearchOptions{})
	assert.Equal(t, domain.DecisionEscalate, decision)
	assert.False(t, result.Data.SearchMetadata.PrimarySearchSuccessful)
	assert.True(t, result.Data.SearchMetadata.FallbackSearchUsed)
	assert.Equal(t, 1, web.calls)
	assert.Equal(t, 0, result.Data.TotalResults)
}

func TestRun_ThinSpecificResultsGetSupplemented(t *testing.T) {
	query := "the video where alice raided the desert base"
	videos := &stubSearchBackend{byQuery: map[string][]domain.SearchResult{
		query: {
			{Title: "alice raided the desert base", URL: "https://youtube.com/watch?v=1"},
		},
	}}
	web := &stubWebSearcher{}
	e := newTestEngine(videos, web)

	result, decision := e.Run(context.Background(), query, domain.SearchOptions{})
	assert.Equal(t, domain.DecisionAccept, decision)
	assert.True(t, result.Data.SearchMetadata.WebSearchSupplemented)
	assert.False(t, result.Data.SearchMetadata.FallbackSearchUsed)
	assert.Equal(t, 1, web.calls)
}

func TestRun_CreatorItemsAreFlagged(t *testing.T) {
	query := "videos by alice"
	videos := &stubSearchBackend{byQuery: map[string][]domain.SearchResult{
		query: {
			{Title: "alice builds a castle", URL: "https://youtube.com/watch?v=1"},
			{Title: "random clip", URL: "https://youtube.com/watch?v=2"},
		},
	}}
	e := newTestEngine(videos, &stubWebSearcher{})

	result, _ := e.Run(context.Background(), query, domain.SearchOptions{})
	assert.Equal(t, 1, result.Data.CreatorResultsCount)
	assert.True(t, result.Data.Items[0].IsCreatorContent)
	assert.False(t, result.Data.Items[1].IsCreatorContent)
	assert.Equal(t, "youtube", result.Data.Items[0].Platform)
}
