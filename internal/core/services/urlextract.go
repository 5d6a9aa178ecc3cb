package services

import (
	"regexp"
	"strings"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

var (
	reYouTubeChannel = regexp.MustCompile(`(?i)^https?://(?:www\.)?youtube\.com/(@[\w.-]+|c/[\w.-]+|channel/[\w-]+|user/[\w.-]+)/?$`)
	reTwitchChannel  = regexp.MustCompile(`(?i)^https?://(?:www\.)?twitch\.tv/([\w]+)/?$`)

	reCreatorRewrite = regexp.MustCompile(`(?i)\b(?:created\s+by|made\s+by|by|from)\s+([A-Za-z0-9_]+)\b`)
)

// CreatorSearchQuery rewrites a creator-phrased query into a quoted-handle
// form that search engines rank better: "videos by Alice about farming"
// becomes `"Alice" videos about farming channel`.
func CreatorSearchQuery(query string) string {
	m := reCreatorRewrite.FindStringSubmatchIndex(query)
	if m == nil {
		return query
	}
	creator := query[m[2]:m[3]]
	rest := strings.TrimSpace(query[:m[0]] + " " + query[m[1]:])
	rewritten := `"` + creator + `"`
	if rest != "" {
		rewritten += " " + rest
	}
	if !strings.Contains(strings.ToLower(rest), "channel") {
		rewritten += " channel"
	}
	return rewritten
}

// ExtractWebSearchContent classifies a list of candidate URLs into at most
// one primary channel per platform plus a bounded tail of additional links.
func ExtractWebSearchContent(urls []string, maxAdditional int) domain.WebSearchContent {
	content := domain.WebSearchContent{
		AdditionalLinks: []string{},
	}
	seen := make(map[string]bool)
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true

		switch {
		case content.YouTubeChannelURL == nil && reYouTubeChannel.MatchString(u):
			url := u
			content.YouTubeChannelURL = &url
			content.Extraction.SourcesFound++
		case content.TwitchChannelURL == nil && reTwitchChannel.MatchString(u):
			url := u
			content.TwitchChannelURL = &url
			content.Extraction.SourcesFound++
		default:
			if len(content.AdditionalLinks) < maxAdditional && strings.HasPrefix(u, "http") {
				content.AdditionalLinks = append(content.AdditionalLinks, u)
				content.Extraction.SourcesFound++
			}
		}
	}
	content.Extraction.ExtractionSuccessful = content.Extraction.SourcesFound > 0
	return content
}
