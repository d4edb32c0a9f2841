package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"internwatch-engine/internal/domain"
	"internwatch-engine/internal/scrape/types"
	"internwatch-engine/internal/scrape/util"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.5"

// Provider turns one query into result hits.
type Provider interface {
	Search(ctx context.Context, query string) ([]domain.SearchHit, error)
}

// FeedProvider queries a search engine that can answer in RSS or Atom.
// URLTemplate carries a {query} placeholder.
type FeedProvider struct {
	Client      types.Fetcher
	URLTemplate string
}

func (p FeedProvider) URL(query string) string {
	return strings.ReplaceAll(p.URLTemplate, "{query}", url.QueryEscape(strings.TrimSpace(query)))
}

func (p FeedProvider) Search(ctx context.Context, query string) ([]domain.SearchHit, error) {
	res, err := p.Client.Get(ctx, p.URL(query), feedAccept)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := item.Link
		if link == "" && len(item.Links) > 0 {
			link = item.Links[0]
		}
		hit := domain.SearchHit{
			Query:   query,
			Title:   util.CleanText(item.Title),
			Link:    unwrapRedirect(link),
			Snippet: util.CleanText(stripTags(item.Description)),
		}
		switch {
		case item.PublishedParsed != nil:
			hit.Published = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			hit.Published = item.UpdatedParsed.UTC()
		}
		if hit.Published.After(time.Now().Add(time.Hour)) {
			hit.Published = time.Time{}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// unwrapRedirect follows the query-parameter redirects search engines wrap
// result links in (/l/?uddg=, /url?q=).
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	for _, k := range []string{"uddg", "q", "url"} {
		v := u.Query().Get(k)
		if v == "" {
			continue
		}
		if t, err := url.Parse(v); err == nil && t.Host != "" && (t.Scheme == "http" || t.Scheme == "https") {
			return v
		}
	}
	return href
}

func stripTags(s string) string {
	var b strings.Builder
	in := false
	for _, r := range s {
		switch {
		case r == '<':
			in = true
		case r == '>' && in:
			in = false
			b.WriteByte(' ')
		case !in:
			b.WriteRune(r)
		}
	}
	return b.String()
}
