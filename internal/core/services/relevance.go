package services

import (
	"regexp"
	"strings"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// RelevanceScorer grades a result set against the query that produced it.
// The scoring depends on intent: general queries are assumed adequate unless
// a creator was explicitly named, specific queries are graded word by word.
// Pure function of its inputs, recomputed on every call.
type RelevanceScorer struct{}

func NewRelevanceScorer() *RelevanceScorer {
	return &RelevanceScorer{}
}

var eventKeywords = []string{
	"raid", "attack", "battle", "fight", "war", "tournament", "final", "championship",
}

var temporalKeywords = []string{"first", "latest", "recent", "new", "old"}

// Score returns a relevance value in [0,1]. Empty result sets score 0.
func (s *RelevanceScorer) Score(results []domain.SearchResult, query string, intent domain.Intent) float64 {
	if len(results) == 0 {
		return 0
	}
	if intent == domain.IntentGeneral {
		return s.scoreGeneral(results, query)
	}
	return s.scoreSpecific(results, query)
}

// scoreGeneral trusts broad queries unless a creator was named, in which case
// the score is the fraction of results that mention that creator.
func (s *RelevanceScorer) scoreGeneral(results []domain.SearchResult, query string) float64 {
	creator := ExtractCreatorName(query)
	if creator == "" {
		return 0.8
	}
	creator = strings.ToLower(creator)
	matched := 0
	for _, r := range results {
		if mentionsCreator(strings.ToLower(r.Title), creator) ||
			strings.Contains(strings.ToLower(r.URL), creator) {
			matched++
		}
	}
	return float64(matched) / float64(len(results))
}

// scoreSpecific weighs query word overlap with the title at 60%, with small
// bonuses for matching event language and temporal anchors. Each result's
// contribution is capped at 1; the final score is the mean over all results.
func (s *RelevanceScorer) scoreSpecific(results []domain.SearchResult, query string) float64 {
	normalized := strings.ToLower(query)
	var queryWords []string
	for _, w := range strings.Fields(normalized) {
		if len(w) > 2 {
			queryWords = append(queryWords, w)
		}
	}

	var total float64
	for _, r := range results {
		title := strings.ToLower(r.Title)
		var relevance float64

		if len(queryWords) > 0 {
			matches := 0
			for _, w := range queryWords {
				if strings.Contains(title, w) {
					matches++
				}
			}
			relevance += float64(matches) / float64(len(queryWords)) * 0.6
		}

		for _, kw := range eventKeywords {
			if strings.Contains(normalized, kw) && strings.Contains(title, kw) {
				relevance += 0.2
				break
			}
		}
		for _, kw := range temporalKeywords {
			if strings.Contains(normalized, kw) && strings.Contains(title, kw) {
				relevance += 0.2
				break
			}
		}

		total += min(1, relevance)
	}
	return total / float64(len(results))
}

var creatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcreated\s+by\s+([A-Za-z0-9_]+)`),
	regexp.MustCompile(`(?i)\bmade\s+by\s+([A-Za-z0-9_]+)`),
	regexp.MustCompile(`(?i)\bby\s+([A-Za-z0-9_]+)`),
	regexp.MustCompile(`(?i)\bfrom\s+([A-Za-z0-9_]+)`),
}

// ExtractCreatorName pulls a creator handle out of phrasings like
// "videos by Alice" or "clips from shroud". Empty when none is present.
func ExtractCreatorName(query string) string {
	for _, re := range creatorPatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			return m[1]
		}
	}
	return ""
}

// mentionsCreator checks the plain name and the "ft. name"/"featuring name"
// collaboration variants.
func mentionsCreator(title, creator string) bool {
	return strings.Contains(title, creator) ||
		strings.Contains(title, "ft. "+creator) ||
		strings.Contains(title, "featuring "+creator)
}
