package news

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func rssFeed(title string, entries ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>` + title + `</title>`)
	for _, e := range entries {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://example.com/%s</link><pubDate>%s</pubDate></item>`,
			e[0], strings.ReplaceAll(e[0], " ", "-"), e[1])
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestTopHeadlinesOrdersNewestFirst(t *testing.T) {
	feedA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed("A",
			[2]string{"older story", "Mon, 02 Jun 2025 10:00:00 GMT"},
			[2]string{"newest story", "Tue, 03 Jun 2025 12:30:00 GMT"},
		)))
	}))
	defer feedA.Close()

	feedB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed("B",
			[2]string{"middle story", "Tue, 03 Jun 2025 08:00:00 GMT"},
		)))
	}))
	defer feedB.Close()

	a := NewAggregator([]string{feedA.URL, feedB.URL}, 6)
	lines := a.TopHeadlines(t.Context())

	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "newest story") {
		t.Errorf("lines[0] = %q, want newest first", lines[0])
	}
	if !strings.Contains(lines[1], "middle story") {
		t.Errorf("lines[1] = %q", lines[1])
	}
	if !strings.HasPrefix(lines[0], "2025-06-03 12:30 UTC") {
		t.Errorf("lines[0] = %q, want timestamp prefix", lines[0])
	}
}

func TestTopHeadlinesCapsPerFeedAndTotal(t *testing.T) {
	entries := make([][2]string, 0, 6)
	for i := range 6 {
		entries = append(entries, [2]string{
			fmt.Sprintf("story %d", i),
			time.Date(2025, 6, 1, 10+i, 0, 0, 0, time.UTC).Format(time.RFC1123),
		})
	}
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rssFeed("big", entries...)))
	}))
	defer feed.Close()

	a := NewAggregator([]string{feed.URL}, 3)
	lines := a.TopHeadlines(t.Context())
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want capped at 3", len(lines))
	}
}

func TestTopHeadlinesSkipsBrokenFeed(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rssFeed("good",
			[2]string{"surviving story", "Tue, 03 Jun 2025 12:00:00 GMT"},
		)))
	}))
	defer good.Close()

	a := NewAggregator([]string{broken.URL, good.URL}, 6)
	lines := a.TopHeadlines(t.Context())
	if len(lines) != 1 || !strings.Contains(lines[0], "surviving story") {
		t.Fatalf("lines = %v, want only the good feed's entry", lines)
	}
}
