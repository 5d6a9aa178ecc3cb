package domain

// Intent classifies a search-type query.
type Intent string

const (
	IntentGeneral  Intent = "general"
	IntentSpecific Intent = "specific"
)

// IntentAnalysis is the output of the intent classifier. Pure function of the
// query; computed once per fallback attempt and never mutated.
type IntentAnalysis struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Indicators []string `json:"indicators"`
}

// SearchResult is one hit from a video search backend.
type SearchResult struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
}

// SearchOptions narrow a video search.
type SearchOptions struct {
	MaxResults int    `json:"max_results,omitempty"`
	Duration   string `json:"duration,omitempty"` // short | medium | long
	SortBy     string `json:"sort_by,omitempty"`  // relevance | date
}

// SearchMetadata is accumulated across one fallback decision cycle.
type SearchMetadata struct {
	PrimarySearchSuccessful bool `json:"primary_search_successful"`
	FallbackSearchUsed      bool `json:"fallback_search_used"`
	WebSearchSupplemented   bool `json:"web_search_supplemented"`
}

// VideoItem is one entry of the composite fallback result.
type VideoItem struct {
	Title            string  `json:"title"`
	VideoURL         string  `json:"video_url"`
	ThumbnailURL     string  `json:"thumbnail_url"`
	Platform         string  `json:"platform"`
	IsCreatorContent bool    `json:"is_creator_content"`
	Description      *string `json:"description,omitempty"`
	Duration         *string `json:"duration,omitempty"`
	ViewCount        *string `json:"view_count,omitempty"`
}

// ExtractionMetadata describes how the escalation's signal extraction went.
type ExtractionMetadata struct {
	SourcesFound         int  `json:"sources_found"`
	ExtractionSuccessful bool `json:"extraction_successful"`
}

// WebSearchContent carries the structured findings of the escalation backend:
// a primary channel URL per platform plus a bounded set of additional links.
type WebSearchContent struct {
	YouTubeChannelURL *string            `json:"youtube_channel_url"`
	TwitchChannelURL  *string            `json:"twitch_channel_url"`
	AdditionalLinks   []string           `json:"additional_links"`
	Extraction        ExtractionMetadata `json:"extraction_metadata"`
}

// VideoSearchData is the data section of the composite result.
type VideoSearchData struct {
	Query               string            `json:"query"`
	TotalResults        int               `json:"total_results"`
	CreatorResultsCount int               `json:"creator_results_count"`
	Items               []VideoItem       `json:"items"`
	SearchMetadata      SearchMetadata    `json:"search_metadata"`
	WebSearchContent    *WebSearchContent `json:"web_search_content,omitempty"`
}

// CompositeResult is the structured payload returned in place of free text
// for search-type tools.
type CompositeResult struct {
	ResponseType string          `json:"response_type"` // "video_search_results"
	ContentType  string          `json:"content_type"`  // "json"
	Data         VideoSearchData `json:"data"`
}

// FallbackDecision is the outcome of the fallback decision engine.
type FallbackDecision string

const (
	DecisionAccept        FallbackDecision = "accept"
	DecisionRetryEnhanced FallbackDecision = "retry_enhanced"
	DecisionEscalate      FallbackDecision = "escalate"
)

// FallbackConfig carries the fallback engine's tunables. The defaults mirror
// the values the system shipped with; they are configuration, not invariants,
// and should be calibrated against real traffic.
type FallbackConfig struct {
	// RelevanceThreshold: specific-intent results at or below this score
	// trigger the fallback chain.
	RelevanceThreshold float64 `json:"relevance_threshold"`
	// MinResults: fewer primary hits than this counts as insufficient.
	MinResults int `json:"min_results"`
	// MaxAdditionalLinks bounds the escalation's extra link extraction.
	MaxAdditionalLinks int `json:"max_additional_links"`
}

// DefaultFallbackConfig returns the shipped tunables.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		RelevanceThreshold: 0.1,
		MinResults:         3,
		MaxAdditionalLinks: 5,
	}
}
