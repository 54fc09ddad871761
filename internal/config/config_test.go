package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "8000"); got != "8000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8000")
	}

	// 环境变量设置后，应优先返回环境变量
	if err := os.Setenv(key, "9000"); err != nil {
		t.Fatalf("Setenv error: %v", err)
	}
	defer os.Unsetenv(key)
	if got := getEnv(key, "8000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}
}

func TestLoadSourcesMissingFileFallsBack(t *testing.T) {
	s := loadSources(filepath.Join(t.TempDir(), "nope.json"))
	if len(s.Assets.Crypto) != 1 || s.Assets.Crypto[0].Symbol != "BTC-USD" {
		t.Fatalf("expected built-in Bitcoin source, got %+v", s.Assets.Crypto)
	}
	if len(s.NewsQueries) != 1 || s.NewsQueries[0].Collection != "global_economy_articles" {
		t.Fatalf("expected built-in news query, got %+v", s.NewsQueries)
	}
	if s.DefaultDelayHours != 24 {
		t.Fatalf("DefaultDelayHours = %d, want 24", s.DefaultDelayHours)
	}
}

func TestLoadSourcesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app_config.json")
	content := `{
		"assets": {
			"crypto": [
				{"name": "Ethereum", "symbol": "ETH-USD", "collection": "eth_price",
				 "query": "ethereum", "news_collection": "eth_articles", "delay_hours": 12}
			],
			"indices": []
		},
		"news_queries": [],
		"articles_per_query": 500,
		"default_delay_hours": 0
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	s := loadSources(path)
	if len(s.Assets.Crypto) != 1 || s.Assets.Crypto[0].Symbol != "ETH-USD" {
		t.Fatalf("unexpected crypto assets: %+v", s.Assets.Crypto)
	}
	// 超出接口上限的 articles_per_query 应被收敛到 100
	if s.ArticlesPerQuery != 100 {
		t.Fatalf("ArticlesPerQuery = %d, want 100", s.ArticlesPerQuery)
	}
	// 非法默认延迟回退到 24
	if s.DefaultDelayHours != 24 {
		t.Fatalf("DefaultDelayHours = %d, want 24", s.DefaultDelayHours)
	}
}

func TestLoadSourcesBrokenFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app_config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	s := loadSources(path)
	if len(s.Assets.Crypto) != 1 || s.Assets.Crypto[0].Symbol != "BTC-USD" {
		t.Fatalf("expected built-in sources on parse failure, got %+v", s.Assets.Crypto)
	}
}

func TestDelayOrDefault(t *testing.T) {
	s := defaultSources()
	if got := s.DelayOrDefault(6); got != 6 {
		t.Fatalf("DelayOrDefault(6) = %d, want 6", got)
	}
	if got := s.DelayOrDefault(0); got != 24 {
		t.Fatalf("DelayOrDefault(0) = %d, want 24", got)
	}
}

func TestCollectionListings(t *testing.T) {
	s := defaultSources()

	news := s.NewsCollections()
	if len(news) != 2 {
		t.Fatalf("NewsCollections = %v, want 2 entries", news)
	}
	if news[0] != "bitcoin_articles" || news[1] != "global_economy_articles" {
		t.Fatalf("unexpected news collections: %v", news)
	}

	prices := s.PriceCollections()
	if len(prices) != 2 || prices[0] != "bitcoin_price" || prices[1] != "sp500" {
		t.Fatalf("unexpected price collections: %v", prices)
	}
}
