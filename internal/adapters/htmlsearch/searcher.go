// Package htmlsearch scrapes DuckDuckGo's no-JS HTML endpoint. It needs
// nothing beyond an HTTP client, so it serves as the video-search backend of
// last resort when no browser is reachable.
package htmlsearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

const (
	defaultEndpoint   = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 10
	requestTimeout    = 10 * time.Second

	// The HTML endpoint serves a degraded page to unknown agents.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Result title link: <a class="result__a" href="(url)">(title)</a>
var reResultLink = regexp.MustCompile(`<a[^>]+class="[^"]*result__a[^"]*"[^>]+href="([^"]+)"[^>]*>([^<]+)</a>`)

var videoHosts = []string{
	"youtube.com",
	"youtu.be",
	"twitch.tv",
	"vimeo.com",
	"dailymotion.com",
}

// Searcher implements ports.SearchBackend over plain HTTP.
type Searcher struct {
	client   *http.Client
	logger   *slog.Logger
	endpoint string
}

func NewSearcher(logger *slog.Logger) *Searcher {
	return &Searcher{
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger,
		endpoint: defaultEndpoint,
	}
}

// Search queries the HTML endpoint and keeps results hosted on known video
// sites. Thumbnails are not available on this surface.
func (s *Searcher) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	reqURL := s.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	results := parseResults(string(body), limit)
	if len(results) == 0 {
		return nil, fmt.Errorf("no video results in response (layout changed or blocked)")
	}
	s.logger.Debug("html fallback search completed", "query", query, "results", len(results))
	return results, nil
}

func parseResults(html string, limit int) []domain.SearchResult {
	matches := reResultLink.FindAllStringSubmatch(html, -1)
	results := make([]domain.SearchResult, 0, limit)
	for _, m := range matches {
		if len(results) >= limit {
			break
		}
		link := decodeRedirect(m[1])
		title := cleanTitle(m[2])
		if title == "" || link == "" || !isVideoHost(link) {
			continue
		}
		results = append(results, domain.SearchResult{
			Title: title,
			URL:   link,
		})
	}
	return results
}

// decodeRedirect unwraps DuckDuckGo's redirect links
// (//duckduckgo.com/l/?uddg=<encoded target>).
func decodeRedirect(raw string) string {
	if !strings.Contains(raw, "uddg=") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return raw
}

func cleanTitle(title string) string {
	title = strings.ReplaceAll(title, "<b>", "")
	title = strings.ReplaceAll(title, "</b>", "")
	return strings.TrimSpace(title)
}

func isVideoHost(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, h := range videoHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
