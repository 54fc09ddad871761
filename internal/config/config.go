package config

import (
	"encoding/json"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	NewsAPIKey      string
	SentimentAPIURL string
	ExtractorURL    string

	LockFile string
	LogLevel string

	BasicAuthUser string
	BasicAuthPass string

	CollectCronSpec   string
	SentimentCronSpec string

	Sources *Sources
}

// CryptoAsset 数字资产：行情 + 对应的新闻查询（news_collection 可为空，表示只采价格）
type CryptoAsset struct {
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	Collection     string `json:"collection"`
	Query          string `json:"query"`
	NewsCollection string `json:"news_collection"`
	DelayHours     int    `json:"delay_hours"`
}

// IndexAsset 指数类资产，只采行情
type IndexAsset struct {
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	Collection string `json:"collection"`
	DelayHours int    `json:"delay_hours"`
}

// NewsQuery 纯新闻查询源
type NewsQuery struct {
	Name       string `json:"name"`
	Query      string `json:"query"`
	Collection string `json:"collection"`
	DelayHours int    `json:"delay_hours"`
}

// Sources 对应 config/app_config.json，一次加载后在整个运行期间只读
type Sources struct {
	Assets struct {
		Crypto  []CryptoAsset `json:"crypto"`
		Indices []IndexAsset  `json:"indices"`
	} `json:"assets"`
	NewsQueries []NewsQuery `json:"news_queries"`

	CollectionIntervalHours int    `json:"collection_interval_hours"`
	SentimentModel          string `json:"sentiment_model"`
	ArticlesPerQuery        int    `json:"articles_per_query"`
	DefaultDelayHours       int    `json:"default_delay_hours"`
	// 是否额外抓取站点头条作为新闻补充（搜索 API 配额紧张时有用）
	ScrapeHeadlines bool `json:"scrape_headlines"`
}

func Load() *Config {
	// .env 不存在时静默跳过，和环境变量直接注入的部署方式兼容
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "8000"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=sentimenthub password=sentimenthub dbname=financial_sentiment port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		NewsAPIKey:      os.Getenv("NEWS_API_KEY"),
		SentimentAPIURL: getEnv("SENTIMENT_API_URL", ""),
		ExtractorURL:    getEnv("EXTRACTOR_URL", ""),

		LockFile: getEnv("LOCK_FILE", "data_collection.lock"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BasicAuthUser: os.Getenv("APP_BASIC_USER"),
		BasicAuthPass: os.Getenv("APP_BASIC_PASS"),

		CollectCronSpec:   getEnv("COLLECT_CRON_SPEC", "0 */3 * * *"),
		SentimentCronSpec: getEnv("SENTIMENT_CRON_SPEC", "30 */3 * * *"),
	}

	cfg.Sources = loadSources(getEnv("APP_CONFIG_PATH", "config/app_config.json"))

	log.Printf("config loaded: port=%s assets=%d queries=%d", cfg.AppPort,
		len(cfg.Sources.Assets.Crypto)+len(cfg.Sources.Assets.Indices), len(cfg.Sources.NewsQueries))
	return cfg
}

// loadSources 读取数据源配置文件；文件缺失或损坏时退回内置默认源，保证采集不会空转
func loadSources(path string) *Sources {
	s := defaultSources()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config: %s not found, using built-in sources", path)
		return s
	}
	if err := json.Unmarshal(data, s); err != nil {
		log.Printf("config: parse %s failed (%v), using built-in sources", path, err)
		return defaultSources()
	}

	// NewsAPI 单页上限 100
	if s.ArticlesPerQuery <= 0 || s.ArticlesPerQuery > 100 {
		s.ArticlesPerQuery = 100
	}
	if s.DefaultDelayHours <= 0 {
		s.DefaultDelayHours = 24
	}
	return s
}

func defaultSources() *Sources {
	s := &Sources{
		CollectionIntervalHours: 3,
		SentimentModel:          "ProsusAI/finbert",
		ArticlesPerQuery:        100,
		DefaultDelayHours:       24,
	}
	s.Assets.Crypto = []CryptoAsset{
		{
			Name:           "Bitcoin",
			Symbol:         "BTC-USD",
			Collection:     "bitcoin_price",
			Query:          "bitcoin OR btc",
			NewsCollection: "bitcoin_articles",
			DelayHours:     24,
		},
	}
	s.Assets.Indices = []IndexAsset{
		{
			Name:       "S&P 500",
			Symbol:     "^GSPC",
			Collection: "sp500",
			DelayHours: 24,
		},
	}
	s.NewsQueries = []NewsQuery{
		{
			Name:       "Global Economy",
			Query:      "global economy OR economic outlook OR financial markets",
			Collection: "global_economy_articles",
			DelayHours: 24,
		},
	}
	return s
}

// DelayOrDefault 返回某个源的 delay_hours，未配置时用全局默认值
func (s *Sources) DelayOrDefault(delayHours int) int {
	if delayHours > 0 {
		return delayHours
	}
	return s.DefaultDelayHours
}

// NewsCollections 返回所有会写入文章的集合名（情感分析按此遍历）
func (s *Sources) NewsCollections() []string {
	var out []string
	for _, c := range s.Assets.Crypto {
		if c.NewsCollection != "" {
			out = append(out, c.NewsCollection)
		}
	}
	for _, q := range s.NewsQueries {
		if q.Collection != "" {
			out = append(out, q.Collection)
		}
	}
	return out
}

// PriceCollections 返回所有行情集合名（建索引时遍历）
func (s *Sources) PriceCollections() []string {
	var out []string
	for _, c := range s.Assets.Crypto {
		if c.Collection != "" {
			out = append(out, c.Collection)
		}
	}
	for _, i := range s.Assets.Indices {
		if i.Collection != "" {
			out = append(out, i.Collection)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
