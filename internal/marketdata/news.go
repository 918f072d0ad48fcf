package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/infra"
	"github.com/blueoak/oakdash/pkg/models"
)

// NewsService aggregates market headlines from configured RSS feeds.
// Feed failures are non-critical: a source that cannot be reached is
// skipped and the rest still contribute.
type NewsService struct {
	feeds  []config.NewsFeed
	cache  *infra.Cache
	parser *gofeed.Parser
}

// NewNewsService creates a news aggregator over the configured feeds.
func NewNewsService(cfg *config.Config, backend infra.Backend) *NewsService {
	return &NewsService{
		feeds:  cfg.News.Feeds,
		cache:  infra.NewCache(backend, "news:", cfg.Cache.NewsTTL),
		parser: gofeed.NewParser(),
	}
}

// MarketNews returns recent headlines across all feeds, newest first.
func (n *NewsService) MarketNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	cacheKey := fmt.Sprintf("market:%d", limit)
	if e, ok := n.cache.Fresh(ctx, cacheKey); ok {
		if items, err := infra.Decode[[]models.NewsItem](e); err == nil {
			return items, nil
		}
	}

	var all []models.NewsItem
	for _, feed := range n.feeds {
		items, err := n.fetchFeed(ctx, feed)
		if err != nil {
			continue
		}
		all = append(all, items...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	if len(all) > 0 {
		_ = n.cache.Set(ctx, cacheKey, all)
	}
	return all, nil
}

func (n *NewsService) fetchFeed(ctx context.Context, src config.NewsFeed) ([]models.NewsItem, error) {
	feed, err := n.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		it := models.NewsItem{
			Title:   item.Title,
			URL:     item.Link,
			Source:  src.Name,
			Summary: stripHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			it.PublishedAt = *item.PublishedParsed
		}
		items = append(items, it)
	}
	return items, nil
}

// stripHTML removes markup from feed descriptions using goquery.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
