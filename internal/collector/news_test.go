package collector

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// testCollector 返回一个指向测试服务器的采集器（不连真实外部 API）
func testCollector(newsURL, quoteURL string) *Collector {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return &Collector{
		log:          log,
		newsAPIKey:   "test-key",
		newsBaseURL:  newsURL,
		newsClient:   &http.Client{Timeout: 5 * time.Second},
		quoteBaseURL: quoteURL,
		quoteClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

func TestFetchNewsWindowAndOrdering(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		// 故意乱序返回，验证会重排为发布时间倒序
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"articles": []map[string]any{
				{"title": "older", "publishedAt": "2025-06-01T08:00:00Z",
					"source": map[string]string{"name": "A"}},
				{"title": "newest", "publishedAt": "2025-06-01T12:00:00Z",
					"source": map[string]string{"name": "B"}},
				{"title": "", "publishedAt": "2025-06-01T11:00:00Z",
					"source": map[string]string{"name": "C"}},
				{"title": "middle", "publishedAt": "2025-06-01T10:00:00Z",
					"source": map[string]string{"name": "D"}},
			},
		})
	}))
	defer srv.Close()

	c := testCollector(srv.URL, "")
	articles, err := c.FetchNews("bitcoin OR btc", 24, 100)
	if err != nil {
		t.Fatalf("FetchNews error: %v", err)
	}

	// 无标题的被丢弃
	if len(articles) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(articles))
	}
	if articles[0].Title != "newest" || articles[1].Title != "middle" || articles[2].Title != "older" {
		t.Fatalf("articles not sorted by publishedAt desc: %v, %v, %v",
			articles[0].Title, articles[1].Title, articles[2].Title)
	}

	// 校验时间窗口 [now-delay-24h, now-delay]
	from, err := time.Parse(time.RFC3339, gotQuery.Get("from"))
	if err != nil {
		t.Fatalf("parse from: %v", err)
	}
	to, err := time.Parse(time.RFC3339, gotQuery.Get("to"))
	if err != nil {
		t.Fatalf("parse to: %v", err)
	}
	if d := to.Sub(from); d != 24*time.Hour {
		t.Fatalf("window width = %v, want 24h", d)
	}
	wantTo := time.Now().UTC().Add(-24 * time.Hour)
	if diff := wantTo.Sub(to); diff < 0 || diff > time.Minute {
		t.Fatalf("window end = %v, want ~%v", to, wantTo)
	}

	if gotQuery.Get("language") != "en" || gotQuery.Get("sortBy") != "publishedAt" {
		t.Fatalf("unexpected query params: %v", gotQuery)
	}
	if gotQuery.Get("q") != "bitcoin OR btc" {
		t.Fatalf("q = %q", gotQuery.Get("q"))
	}
}

func TestFetchNewsTruncatesToMax(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arts := make([]map[string]any, 0, 10)
		for i := 0; i < 10; i++ {
			arts = append(arts, map[string]any{
				"title":       "t",
				"publishedAt": "2025-06-01T08:00:00Z",
				"source":      map[string]string{"name": "A"},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "articles": arts})
	}))
	defer srv.Close()

	c := testCollector(srv.URL, "")
	articles, err := c.FetchNews("q", 24, 3)
	if err != nil {
		t.Fatalf("FetchNews error: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("expected truncation to 3, got %d", len(articles))
	}
}

func TestFetchNewsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "error",
			"code":    "apiKeyInvalid",
			"message": "bad key",
		})
	}))
	defer srv.Close()

	c := testCollector(srv.URL, "")
	if _, err := c.FetchNews("q", 24, 10); err == nil {
		t.Fatalf("expected error on api error status")
	}
}

func TestFetchNewsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 立即关掉，模拟连接失败

	c := testCollector(srv.URL, "")
	if _, err := c.FetchNews("q", 24, 10); err == nil {
		t.Fatalf("expected transport error")
	}
}
