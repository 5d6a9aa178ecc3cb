package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// IntentClassifier scores a natural-language video query as broad ("general")
// or narrowly targeted ("specific"). Specific queries are the ones that may
// need fallback help; general queries are assumed adequately served by the
// primary search. Pure function of the query text.
type IntentClassifier struct{}

func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{}
}

type patternCategory struct {
	name     string
	patterns []*regexp.Regexp
}

func mustPatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Broad phrasings that usually return plenty of usable results.
var generalPatterns = []patternCategory{
	{"broad_creator", mustPatterns(
		`videos?\s+by\s+(\w+)`,
		`show\s+me\s+(\w+)'?s?\s+(content|videos?)`,
		`(\w+)'?s?\s+(videos?|content)`,
		`find\s+(\w+)\s+videos?`,
	)},
	{"game_topic", mustPatterns(
		`(\w+)\s+videos?`,
		`(\w+)\s+(\w+)\s+gameplay`,
		`(\w+)\s+playing\s+(\w+)`,
		`(\w+)\s+(\w+)\s+(content|videos?)`,
	)},
	{"channel_discovery", mustPatterns(
		`(\w+)'?s?\s+channel`,
		`find\s+(\w+)\s+channel`,
		`(\w+)\s+youtube`,
		`(\w+)\s+twitch`,
	)},
	{"simple_combinations", mustPatterns(
		`(\w+)\s+(rust|minecraft|fortnite|valorant|csgo|cod|apex)`,
		`(rust|minecraft|fortnite|valorant|csgo|cod|apex)\s+by\s+(\w+)`,
	)},
}

// Narrow phrasings anchored to an event, a time, or a unique identifier.
var specificPatterns = []patternCategory{
	{"event_specific", mustPatterns(
		`the\s+video\s+where\s+.+`,
		`when\s+(\w+)\s+(did|does|made|makes)\s+.+`,
		`(\w+)'?s?\s+(raid|attack|battle|fight|war)\s+(on|against|with)\s+.+`,
		`the\s+(raid|attack|battle|fight|war)\s+(on|against|with)\s+.+`,
	)},
	{"temporal", mustPatterns(
		`(\w+)'?s?\s+(first|latest|recent|newest|oldest|last)\s+.+`,
		`(first|latest|recent|newest|oldest|last)\s+(\w+)\s+video`,
		`(\w+)'?s?\s+(new|old)\s+.+`,
		`(yesterday|today|this\s+week|last\s+week|this\s+month)\s+.+`,
	)},
	{"unique_identifiers", mustPatterns(
		`the\s+(\w+)\s+(tournament|competition|event|stream)\s+.+`,
		`(tournament|competition|event|stream)\s+(final|finals|championship)`,
		`(\w+)\s+(vs|versus|against)\s+(\w+)`,
		`the\s+.+\s+(incident|drama|controversy)`,
	)},
	{"descriptive_scenarios", mustPatterns(
		`find\s+the\s+video\s+where\s+.+`,
		`looking\s+for\s+the\s+video\s+.+`,
		`(\w+)\s+(building|making|creating|destroying)\s+.+`,
		`(\w+)\s+(with|using)\s+(\w+)\s+(to|for|against)\s+.+`,
		`the\s+one\s+where\s+.+`,
	)},
}

var specificKeywords = []string{
	"the video where", "find the video", "looking for the video",
	"first", "latest", "recent", "newest", "oldest", "last",
	"tournament", "competition", "event", "final", "championship",
	"raid", "attack", "battle", "fight", "war", "vs", "versus", "against",
	"incident", "drama", "controversy", "when he", "when she",
	"the one where", "that time when", "remember when",
}

var generalKeywords = []string{
	"videos by", "show me", "find videos", "channel", "content",
	"gameplay", "playing", "youtube", "twitch",
}

// Classify scores the query against both pattern sets. Pattern matches weigh
// more than keyword hits, and specific patterns weigh double general ones so
// a single event anchor outweighs incidental broad phrasing.
func (c *IntentClassifier) Classify(query string) domain.IntentAnalysis {
	normalized := strings.ToLower(strings.TrimSpace(query))
	var indicators []string
	var specificScore, generalScore float64

	for _, cat := range specificPatterns {
		for _, re := range cat.patterns {
			if re.MatchString(normalized) {
				specificScore += 2
				indicators = append(indicators, "specific:"+cat.name)
			}
		}
	}
	for _, cat := range generalPatterns {
		for _, re := range cat.patterns {
			if re.MatchString(normalized) {
				generalScore++
				indicators = append(indicators, "general:"+cat.name)
			}
		}
	}
	for _, kw := range specificKeywords {
		if strings.Contains(normalized, kw) {
			specificScore++
			indicators = append(indicators, "specific:keyword:"+kw)
		}
	}
	for _, kw := range generalKeywords {
		if strings.Contains(normalized, kw) {
			generalScore += 0.5
			indicators = append(indicators, "general:keyword:"+kw)
		}
	}

	total := specificScore + generalScore
	var specificRatio float64
	if total > 0 {
		specificRatio = specificScore / total
	}

	analysis := domain.IntentAnalysis{Indicators: indicators}
	switch {
	case specificScore == 0 && generalScore > 0:
		analysis.Intent = domain.IntentGeneral
		analysis.Confidence = min(0.95, 0.7+generalScore*0.1)
		analysis.Reasoning = fmt.Sprintf(
			"Strong general intent indicators (%g points) with no specific markers", generalScore)
	case specificRatio >= 0.6:
		analysis.Intent = domain.IntentSpecific
		analysis.Confidence = min(0.95, 0.6+specificRatio*0.3)
		analysis.Reasoning = fmt.Sprintf(
			"High specific intent ratio (%.1f%%) with %g specific markers", specificRatio*100, specificScore)
	case specificScore > 0 && specificRatio >= 0.4:
		analysis.Intent = domain.IntentSpecific
		analysis.Confidence = min(0.8, 0.5+specificRatio*0.2)
		analysis.Reasoning = fmt.Sprintf(
			"Moderate specific intent ratio (%.1f%%) with %g specific markers", specificRatio*100, specificScore)
	default:
		analysis.Intent = domain.IntentGeneral
		analysis.Confidence = max(0.3, 0.6-specificRatio*0.3)
		analysis.Reasoning = fmt.Sprintf(
			"Ambiguous or general intent (specific ratio: %.1f%%), defaulting to general", specificRatio*100)
	}
	return analysis
}
