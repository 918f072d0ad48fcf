package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blueoak/oakdash/internal/config"
	"github.com/blueoak/oakdash/internal/infra"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Markets</title>
    <item>
      <title>Stocks rally on rate cut hopes</title>
      <link>https://news.example/rally</link>
      <description>&lt;p&gt;Major indices closed &lt;b&gt;higher&lt;/b&gt; today.&lt;/p&gt;</description>
      <pubDate>Fri, 29 Aug 2025 14:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Dividend payers outperform</title>
      <link>https://news.example/dividends</link>
      <description>Quality income names led the session.</description>
      <pubDate>Fri, 29 Aug 2025 16:30:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func newTestNewsService(t *testing.T, feedURL string) *NewsService {
	t.Helper()
	cfg := &config.Config{}
	cfg.News.Feeds = []config.NewsFeed{{Name: "Test Markets", URL: feedURL}}
	cfg.Cache.NewsTTL = 10 * time.Minute
	return NewNewsService(cfg, infra.NewMemoryBackend())
}

func TestMarketNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSS))
	}))
	defer srv.Close()

	n := newTestNewsService(t, srv.URL)
	items, err := n.MarketNews(context.Background(), 10)
	if err != nil {
		t.Fatalf("MarketNews: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	// Newest first.
	if items[0].Title != "Dividend payers outperform" {
		t.Errorf("first item = %q, want newest", items[0].Title)
	}
	if items[1].Summary != "Major indices closed higher today." {
		t.Errorf("summary not stripped of markup: %q", items[1].Summary)
	}
	if items[0].Source != "Test Markets" {
		t.Errorf("source = %q", items[0].Source)
	}
}

func TestMarketNewsSkipsDeadFeeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestNewsService(t, srv.URL)
	items, err := n.MarketNews(context.Background(), 10)
	if err != nil {
		t.Fatalf("dead feed must not fail the call: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want none", len(items))
	}
}

func TestMarketNewsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(testRSS))
	}))
	defer srv.Close()

	n := newTestNewsService(t, srv.URL)
	items, err := n.MarketNews(context.Background(), 1)
	if err != nil {
		t.Fatalf("MarketNews: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %d, want limit of 1", len(items))
	}
}
