package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	newsAPIBaseURL   = "https://newsapi.org/v2/everything"
	defaultNewsQuery = "gold OR inflation OR fed OR war OR dollar"
	newsPageSize     = 30
)

// NewsProvider reads headlines from a search endpoint returning
// {"articles": [{"title": ...}, ...]}.
type NewsProvider struct {
	fetcher *HTTPFetcher
	baseURL string
	apiKey  string
	query   string
	tracer  trace.Tracer
}

func NewNewsProvider(tracer trace.Tracer, baseURL, apiKey, query string, timeout time.Duration) *NewsProvider {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = newsAPIBaseURL
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = defaultNewsQuery
	}
	return &NewsProvider{
		fetcher: NewHTTPFetcher("news", timeout, nil),
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		query:   query,
		tracer:  tracer,
	}
}

func (p *NewsProvider) FetchHeadlines(ctx context.Context) ([]string, error) {
	ctx, span := p.tracer.Start(ctx, "news.fetch-headlines")
	defer span.End()

	params := url.Values{}
	params.Set("q", p.query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprint(newsPageSize))
	if p.apiKey != "" {
		params.Set("apiKey", p.apiKey)
	}
	sep := "?"
	if strings.Contains(p.baseURL, "?") {
		sep = "&"
	}

	var raw struct {
		Articles []struct {
			Title string `json:"title"`
		} `json:"articles"`
	}
	if err := p.fetcher.GetJSON(ctx, p.baseURL+sep+params.Encode(), &raw); err != nil {
		span.RecordError(err)
		return nil, err
	}

	headlines := make([]string, 0, len(raw.Articles))
	for _, a := range raw.Articles {
		if title := sanitizeText(a.Title, 300); title != "" {
			headlines = append(headlines, title)
		}
	}
	span.SetAttributes(attribute.Int("headlines", len(headlines)))
	return headlines, nil
}
