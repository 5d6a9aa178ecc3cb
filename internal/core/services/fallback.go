package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/ports"
)

// FallbackEngine wraps the primary video search with the decision pipeline:
// classify the query's intent, grade the result set, and when a specific
// query came back poorly served, retry with a creator-focused rewrite and
// finally escalate to the web search backend.
type FallbackEngine struct {
	logger     *slog.Logger
	cfg        domain.FallbackConfig
	classifier *IntentClassifier
	scorer     *RelevanceScorer
	videos     ports.SearchBackend
	web        ports.WebSearcher
}

func NewFallbackEngine(
	logger *slog.Logger,
	cfg domain.FallbackConfig,
	classifier *IntentClassifier,
	scorer *RelevanceScorer,
	videos ports.SearchBackend,
	web ports.WebSearcher,
) *FallbackEngine {
	return &FallbackEngine{
		logger:     logger,
		cfg:        cfg,
		classifier: classifier,
		scorer:     scorer,
		videos:     videos,
		web:        web,
	}
}

// Decide maps intent and relevance to a course of action. General queries
// always accept; a specific query falls back only when relevance drops at or
// below the configured threshold.
func (e *FallbackEngine) Decide(intent domain.Intent, relevance float64) domain.FallbackDecision {
	if intent == domain.IntentGeneral {
		return domain.DecisionAccept
	}
	if relevance > e.cfg.RelevanceThreshold {
		return domain.DecisionAccept
	}
	return domain.DecisionRetryEnhanced
}

// Run executes one full search cycle for a search-classified tool call and
// assembles the composite payload, reporting which branch was taken. A
// transport failure of the primary search scores as zero relevance and routes
// to escalation like any poor result.
func (e *FallbackEngine) Run(ctx context.Context, query string, opts domain.SearchOptions) (domain.CompositeResult, domain.FallbackDecision) {
	analysis := e.classifier.Classify(query)
	e.logger.Debug("classified search intent",
		"query", query,
		"intent", analysis.Intent,
		"confidence", analysis.Confidence)

	meta := domain.SearchMetadata{}

	primary, err := e.videos.Search(ctx, query, opts)
	if err != nil {
		e.logger.Warn("primary video search failed", "query", query, "error", err)
		primary = nil
	}
	meta.PrimarySearchSuccessful = err == nil

	relevance := e.scorer.Score(primary, query, analysis.Intent)
	items := primary
	usedQuery := query

	switch e.Decide(analysis.Intent, relevance) {
	case domain.DecisionAccept:
		// Accepted outright, but a thin specific result set still gets a
		// web supplement so the caller has channels to point at.
		if analysis.Intent == domain.IntentSpecific && len(items) < e.cfg.MinResults {
			return e.assemble(ctx, usedQuery, query, items, meta, true), domain.DecisionAccept
		}
		return e.compose(usedQuery, query, items, meta, nil), domain.DecisionAccept

	case domain.DecisionRetryEnhanced:
		enhanced := CreatorSearchQuery(query)
		if enhanced != query {
			e.logger.Info("retrying with enhanced query",
				"original", query, "enhanced", enhanced, "relevance", relevance)
			retried, retryErr := e.videos.Search(ctx, enhanced, opts)
			if retryErr == nil {
				retriedScore := e.scorer.Score(retried, query, analysis.Intent)
				if retriedScore > relevance && retriedScore > e.cfg.RelevanceThreshold {
					meta.FallbackSearchUsed = true
					return e.compose(enhanced, query, retried, meta, nil), domain.DecisionRetryEnhanced
				}
			}
		}
		return e.assemble(ctx, usedQuery, query, items, meta, false), domain.DecisionEscalate
	}

	return e.assemble(ctx, usedQuery, query, items, meta, false), domain.DecisionEscalate
}

// assemble runs the web search escalation and composes the final payload.
// supplement marks results that were accepted but too few, as opposed to a
// full fallback after rejection.
func (e *FallbackEngine) assemble(
	ctx context.Context,
	usedQuery, originalQuery string,
	items []domain.SearchResult,
	meta domain.SearchMetadata,
	supplement bool,
) domain.CompositeResult {
	web, err := e.web.SearchStructured(ctx, originalQuery)
	if err != nil {
		e.logger.Warn("web search escalation failed", "query", originalQuery, "error", err)
		web = domain.WebSearchContent{AdditionalLinks: []string{}}
	}
	if supplement {
		meta.WebSearchSupplemented = true
	} else {
		meta.FallbackSearchUsed = true
	}
	return e.compose(usedQuery, originalQuery, items, meta, &web)
}

func (e *FallbackEngine) compose(
	usedQuery, originalQuery string,
	results []domain.SearchResult,
	meta domain.SearchMetadata,
	web *domain.WebSearchContent,
) domain.CompositeResult {
	creator := strings.ToLower(ExtractCreatorName(originalQuery))
	items := make([]domain.VideoItem, 0, len(results))
	creatorCount := 0
	for _, r := range results {
		item := domain.VideoItem{
			Title:        r.Title,
			VideoURL:     r.URL,
			ThumbnailURL: r.Thumbnail,
			Platform:     platformOf(r.URL),
		}
		if creator != "" &&
			(mentionsCreator(strings.ToLower(r.Title), creator) ||
				strings.Contains(strings.ToLower(r.URL), creator)) {
			item.IsCreatorContent = true
			creatorCount++
		}
		items = append(items, item)
	}

	return domain.CompositeResult{
		ResponseType: "video_search_results",
		ContentType:  "json",
		Data: domain.VideoSearchData{
			Query:               usedQuery,
			TotalResults:        len(items),
			CreatorResultsCount: creatorCount,
			Items:               items,
			SearchMetadata:      meta,
			WebSearchContent:    web,
		},
	}
}

func platformOf(url string) string {
	u := strings.ToLower(url)
	switch {
	case strings.Contains(u, "youtube.com"), strings.Contains(u, "youtu.be"):
		return "youtube"
	case strings.Contains(u, "twitch.tv"):
		return "twitch"
	case strings.Contains(u, "rumble.com"):
		return "rumble"
	default:
		return "web"
	}
}
