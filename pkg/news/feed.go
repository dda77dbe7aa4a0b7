// Package news aggregates the crypto headlines shown by /rss/crypto.
package news

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/golix/golix-bridge/pkg/logger"
)

const perFeedLimit = 4

type item struct {
	title     string
	link      string
	published time.Time
}

type Aggregator struct {
	feeds    []string
	maxItems int
	parser   *gofeed.Parser
	now      func() time.Time
}

func NewAggregator(feeds []string, maxItems int) *Aggregator {
	if maxItems <= 0 {
		maxItems = 6
	}
	return &Aggregator{
		feeds:    feeds,
		maxItems: maxItems,
		parser:   gofeed.NewParser(),
		now:      time.Now,
	}
}

// TopHeadlines pulls every configured feed, keeps the newest entries and
// formats them as "2006-01-02 15:04 UTC — title (link)". A feed that
// fails to parse is logged and skipped.
func (a *Aggregator) TopHeadlines(ctx context.Context) []string {
	var items []item
	now := a.now().UTC()

	for _, feedURL := range a.feeds {
		feed, err := a.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			logger.WarnCF("news", "feed fetch failed", map[string]any{
				"feed":  feedURL,
				"error": err.Error(),
			})
			continue
		}

		count := 0
		for _, entry := range feed.Items {
			if count >= perFeedLimit {
				break
			}
			published := now
			if entry.PublishedParsed != nil {
				published = entry.PublishedParsed.UTC()
			}
			title := entry.Title
			if title == "" {
				title = "(sans titre)"
			}
			items = append(items, item{title: title, link: entry.Link, published: published})
			count++
		}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].published.After(items[j].published)
	})
	if len(items) > a.maxItems {
		items = items[:a.maxItems]
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprintf("%s — %s (%s)",
			it.published.Format("2006-01-02 15:04 UTC"), it.title, it.link))
	}
	return out
}
