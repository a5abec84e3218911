package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gold-pulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	redditBaseURL     = "https://www.reddit.com"
	defaultRedditUA   = "gold-pulse/1.0"
	defaultRedditSize = 25
)

// RedditProvider reads post titles from the hot listing of each subreddit.
// Stickied posts are skipped since they are usually moderator notices.
type RedditProvider struct {
	fetcher    *HTTPFetcher
	baseURL    string
	subreddits []string
	limit      int
	tracer     trace.Tracer
}

func NewRedditProvider(tracer trace.Tracer, subreddits []string, timeout time.Duration) *RedditProvider {
	f := NewHTTPFetcher("reddit", timeout, NewRateLimiter(10, time.Minute))
	f.SetHeader("User-Agent", defaultRedditUA)
	clean := make([]string, 0, len(subreddits))
	for _, s := range subreddits {
		s = strings.TrimPrefix(strings.TrimSpace(s), "r/")
		if s != "" {
			clean = append(clean, s)
		}
	}
	return &RedditProvider{
		fetcher:    f,
		baseURL:    redditBaseURL,
		subreddits: clean,
		limit:      defaultRedditSize,
		tracer:     tracer,
	}
}

func (p *RedditProvider) FetchHeadlines(ctx context.Context) ([]string, error) {
	ctx, span := p.tracer.Start(ctx, "reddit.fetch-headlines")
	defer span.End()

	if len(p.subreddits) == 0 {
		return nil, domain.NewSourceError(domain.KindNoData, "reddit", fmt.Errorf("no subreddits configured"))
	}

	var (
		headlines []string
		errs      []error
	)
	for _, sub := range p.subreddits {
		titles, err := p.fetchHot(ctx, sub)
		if err != nil {
			errs = append(errs, fmt.Errorf("r/%s: %w", sub, err))
			continue
		}
		headlines = append(headlines, titles...)
	}
	if len(errs) == len(p.subreddits) {
		err := errors.Join(errs...)
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("headlines", len(headlines)))
	return headlines, nil
}

func (p *RedditProvider) fetchHot(ctx context.Context, subreddit string) ([]string, error) {
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", strings.TrimRight(p.baseURL, "/"), url.PathEscape(subreddit), p.limit)

	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					Title    string `json:"title"`
					Stickied bool   `json:"stickied"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := p.fetcher.GetJSON(ctx, u, &payload); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(payload.Data.Children))
	for _, row := range payload.Data.Children {
		if row.Data.Stickied {
			continue
		}
		if title := sanitizeText(row.Data.Title, 300); title != "" {
			titles = append(titles, title)
		}
	}
	return titles, nil
}
