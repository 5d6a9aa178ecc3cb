package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/ports"
)

const (
	defaultMaxResults = 10
	pageLoadTimeout   = 30 * time.Second
)

var reBackgroundImage = regexp.MustCompile(`url\("?([^")]+)"?\)`)

// Searcher scrapes video results from Brave Search, falling back to
// DuckDuckGo's video vertical when Brave yields nothing. When no browser can
// be acquired at all it delegates to browserless, if one is set.
type Searcher struct {
	manager     *Manager
	logger      *slog.Logger
	browserless ports.SearchBackend
}

func NewSearcher(manager *Manager, logger *slog.Logger, browserless ports.SearchBackend) *Searcher {
	return &Searcher{manager: manager, logger: logger, browserless: browserless}
}

// Search implements ports.SearchBackend.
func (s *Searcher) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}

	browser, err := s.manager.Browser(ctx)
	if err != nil {
		if s.browserless == nil {
			return nil, err
		}
		s.logger.Warn("browser unavailable, using http search fallback", "error", err)
		return s.browserless.Search(ctx, query, opts)
	}

	results, braveErr := s.searchBrave(ctx, browser, query, limit)
	if braveErr == nil && len(results) > 0 {
		return results, nil
	}
	if braveErr != nil {
		s.logger.Warn("brave search failed, trying duckduckgo", "error", braveErr)
	}

	results, ddgErr := s.searchDuckDuckGo(ctx, browser, query, limit)
	if ddgErr != nil {
		if braveErr != nil {
			return nil, fmt.Errorf("video search failed: %w (brave: %v)", ddgErr, braveErr)
		}
		return nil, fmt.Errorf("video search failed: %w", ddgErr)
	}
	return results, nil
}

func (s *Searcher) searchBrave(ctx context.Context, browser *rod.Browser, query string, limit int) ([]domain.SearchResult, error) {
	target := "https://search.brave.com/videos?q=" + url.QueryEscape(query)
	page, err := s.openPage(ctx, browser, target)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	cards, err := page.Elements(".card")
	if err != nil {
		return nil, fmt.Errorf("brave result cards: %w", err)
	}

	results := make([]domain.SearchResult, 0, limit)
	for _, card := range cards {
		if len(results) >= limit {
			break
		}

		titleEl, err := card.Element(".snippet-title")
		if err != nil {
			continue
		}
		title, err := titleEl.Text()
		if err != nil || strings.TrimSpace(title) == "" {
			continue
		}

		anchor, err := card.Element("a")
		if err != nil {
			continue
		}
		href, err := anchor.Attribute("href")
		if err != nil || href == nil || *href == "" {
			continue
		}

		thumbnail := ""
		if img, err := card.Element("img.video-thumb"); err == nil {
			if src, err := img.Attribute("src"); err == nil && src != nil {
				thumbnail = *src
			}
		}

		results = append(results, domain.SearchResult{
			Title:     strings.TrimSpace(title),
			URL:       *href,
			Thumbnail: thumbnail,
		})
	}
	return results, nil
}

func (s *Searcher) searchDuckDuckGo(ctx context.Context, browser *rod.Browser, query string, limit int) ([]domain.SearchResult, error) {
	target := "https://duckduckgo.com/?q=" + url.QueryEscape(query) + "&ia=videos&kp=-2"
	page, err := s.openPage(ctx, browser, target)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	tiles, err := page.Elements(".tile--vid")
	if err != nil {
		return nil, fmt.Errorf("duckduckgo video tiles: %w", err)
	}

	results := make([]domain.SearchResult, 0, limit)
	for _, tile := range tiles {
		if len(results) >= limit {
			break
		}

		link, err := tile.Element(".tile__title > a")
		if err != nil {
			continue
		}
		title, err := link.Text()
		if err != nil || strings.TrimSpace(title) == "" {
			continue
		}
		href, err := link.Attribute("href")
		if err != nil || href == nil || *href == "" {
			continue
		}

		thumbnail := ""
		if media, err := tile.Element(".tile__media__img"); err == nil {
			if style, err := media.Attribute("style"); err == nil && style != nil {
				thumbnail = backgroundImageURL(*style)
			}
		}

		results = append(results, domain.SearchResult{
			Title:     strings.TrimSpace(title),
			URL:       absoluteDuckDuckGoURL(*href),
			Thumbnail: thumbnail,
		})
	}
	return results, nil
}

func (s *Searcher) openPage(ctx context.Context, browser *rod.Browser, target string) (*rod.Page, error) {
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	page = page.Context(ctx).Timeout(pageLoadTimeout)
	if err := page.Navigate(target); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := page.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("wait load: %w", err)
	}
	return page, nil
}

// backgroundImageURL pulls the image URL out of an inline
// background-image style declaration.
func backgroundImageURL(style string) string {
	m := reBackgroundImage.FindStringSubmatch(style)
	if len(m) < 2 {
		return ""
	}
	u := m[1]
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

func absoluteDuckDuckGoURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return "https://duckduckgo.com" + href
	}
	return href
}
