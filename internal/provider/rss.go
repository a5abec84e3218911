package provider

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"gold-pulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultFeedItems = 40

// RSSProvider reads headlines from a set of RSS feeds. A feed that fails is
// skipped; the call fails only when every feed does.
type RSSProvider struct {
	fetcher  *HTTPFetcher
	tracer   trace.Tracer
	feeds    []string
	maxItems int
}

func NewRSSProvider(tracer trace.Tracer, feeds []string, timeout time.Duration) *RSSProvider {
	f := NewHTTPFetcher("rss", timeout, nil)
	f.SetHeader("Accept", "application/rss+xml, application/xml, text/xml")
	clean := make([]string, 0, len(feeds))
	for _, feed := range feeds {
		if feed = strings.TrimSpace(feed); feed != "" {
			clean = append(clean, feed)
		}
	}
	return &RSSProvider{
		fetcher:  f,
		tracer:   tracer,
		feeds:    clean,
		maxItems: defaultFeedItems,
	}
}

func (p *RSSProvider) FetchHeadlines(ctx context.Context) ([]string, error) {
	ctx, span := p.tracer.Start(ctx, "rss.fetch-headlines")
	defer span.End()

	if len(p.feeds) == 0 {
		return nil, domain.NewSourceError(domain.KindNoData, "rss", fmt.Errorf("no feeds configured"))
	}

	var (
		headlines []string
		errs      []error
	)
	for _, feed := range p.feeds {
		items, err := p.fetchFeed(ctx, feed)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", feed, err))
			continue
		}
		headlines = append(headlines, items...)
	}
	if len(errs) == len(p.feeds) {
		return nil, errors.Join(errs...)
	}
	span.SetAttributes(attribute.Int("headlines", len(headlines)))
	return headlines, nil
}

func (p *RSSProvider) fetchFeed(ctx context.Context, feedURL string) ([]string, error) {
	body, err := p.fetcher.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var rss struct {
		Channel struct {
			Items []struct {
				Title string `xml:"title"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal(body, &rss); err != nil {
		return nil, domain.NewSourceError(domain.KindMalformedPayload, "rss", err)
	}

	out := make([]string, 0, min(p.maxItems, len(rss.Channel.Items)))
	for i, row := range rss.Channel.Items {
		if i >= p.maxItems {
			break
		}
		if title := sanitizeText(htmlStrip(row.Title), 300); title != "" {
			out = append(out, title)
		}
	}
	return out, nil
}

func htmlStrip(in string) string {
	if strings.TrimSpace(in) == "" {
		return ""
	}
	var b strings.Builder
	inside := false
	for _, r := range in {
		switch r {
		case '<':
			inside = true
			continue
		case '>':
			inside = false
			continue
		}
		if !inside {
			b.WriteRune(r)
		}
	}
	return b.String()
}
