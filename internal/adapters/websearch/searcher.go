// Package websearch implements the escalation backend: when video search
// comes up empty, the LLM is asked for likely channel and video URLs and
// the answer is reduced to structured channel signals.
package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/ports"
	"github.com/chimeralabs/chimera/internal/core/services"
)

const defaultMaxAdditionalLinks = 5

const suggestionPromptFormat = `You are a search engine assistant. For the query %q, suggest 3-5 highly relevant URLs where this content is most likely to be found. Prefer YouTube and Twitch channel pages. Output ONLY the URLs, one per line.`

// Searcher implements ports.WebSearcher on top of the LLM provider.
type Searcher struct {
	llm      ports.LLMProvider
	logger   *slog.Logger
	maxLinks int
}

// NewSearcher builds the escalation searcher. maxLinks bounds the additional
// links kept beyond the per-platform channel URLs; zero or negative means the
// shipped default.
func NewSearcher(llm ports.LLMProvider, logger *slog.Logger, maxLinks int) *Searcher {
	if maxLinks <= 0 {
		maxLinks = defaultMaxAdditionalLinks
	}
	return &Searcher{llm: llm, logger: logger, maxLinks: maxLinks}
}

// SearchStructured never fails: any provider error is absorbed into empty
// content so the caller's composite result stays well formed.
func (s *Searcher) SearchStructured(ctx context.Context, query string) (domain.WebSearchContent, error) {
	prompt := fmt.Sprintf(suggestionPromptFormat, query)

	raw, err := s.llm.GenerateText(ctx, prompt)
	if err != nil {
		s.logger.Warn("web search suggestion failed", "error", err)
		return services.ExtractWebSearchContent(nil, s.maxLinks), nil
	}

	urls := extractURLLines(raw)
	s.logger.Debug("web search suggestions", "query", query, "urls", len(urls))
	return services.ExtractWebSearchContent(urls, s.maxLinks), nil
}

// extractURLLines keeps only lines that look like URLs, stripping list
// markers the model tends to prepend.
func extractURLLines(raw string) []string {
	var urls []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		}
	}
	return urls
}
