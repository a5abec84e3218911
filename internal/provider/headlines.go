package provider

import (
	"context"
	"errors"
	"strings"
)

// HeadlineFetcher is anything that yields a batch of headlines.
type HeadlineFetcher interface {
	FetchHeadlines(ctx context.Context) ([]string, error)
}

// MultiHeadlineSource merges several headline sources, dropping exact
// duplicates. It fails only when every source fails.
type MultiHeadlineSource struct {
	sources []HeadlineFetcher
}

func NewMultiHeadlineSource(sources ...HeadlineFetcher) *MultiHeadlineSource {
	kept := make([]HeadlineFetcher, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiHeadlineSource{sources: kept}
}

func (m *MultiHeadlineSource) FetchHeadlines(ctx context.Context) ([]string, error) {
	var (
		out  []string
		errs []error
		seen = make(map[string]bool)
	)
	for _, s := range m.sources {
		batch, err := s.FetchHeadlines(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, h := range batch {
			key := strings.ToLower(h)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, h)
		}
	}
	if len(m.sources) > 0 && len(errs) == len(m.sources) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.Join(strings.Fields(in), " ")
	if r := []rune(in); maxLen > 0 && len(r) > maxLen {
		in = string(r[:maxLen])
	}
	return in
}
