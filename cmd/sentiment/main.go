package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/logging"
	"github.com/LJTian/SentimentHub/internal/sentiment"
	"github.com/LJTian/SentimentHub/internal/storage"
)

// 面向 crontab 的单次打分入口：给所有未打分文章补写情感分，
// 然后生成跨源对比快照（落库 + 本地 JSON 一份，方便不连库排查）。
func main() {
	cfg := config.Load()
	log := logging.NewWithFile("sentiment", cfg.LogLevel,
		"logs/cron-sentiment-"+time.Now().Format("20060102")+".log")

	if cfg.SentimentAPIURL == "" {
		log.Error("SENTIMENT_API_URL not configured")
		os.Exit(1)
	}

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, log)
	if err != nil {
		log.Errorf("init store failed: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureCollections(cfg.Sources.NewsCollections(), cfg.Sources.PriceCollections()); err != nil {
		log.Errorf("ensure collections failed: %v", err)
		os.Exit(1)
	}

	analyzer := sentiment.NewAnalyzer(
		cfg.Sources,
		store,
		sentiment.NewHTTPScorer(cfg.SentimentAPIURL),
		sentiment.NewExtractor(cfg.ExtractorURL),
		log,
	)

	comparison := analyzer.RunAll()
	for name, v := range comparison {
		log.Infof("sentiment %s: %+v", name, v)
	}

	dumpComparison(comparison, log)
	log.Info("sentiment analysis script completed successfully")
}

// dumpComparison 把对比结果写一份本地 JSON；写失败只告警，不影响退出码
func dumpComparison(comparison map[string]any, log interface{ Warnf(string, ...any) }) {
	if err := os.MkdirAll("data", 0o755); err != nil {
		log.Warnf("create data dir: %v", err)
		return
	}
	bs, err := json.MarshalIndent(comparison, "", "  ")
	if err != nil {
		log.Warnf("marshal comparison: %v", err)
		return
	}
	path := "data/sentiment-" + time.Now().Format("20060102-150405") + ".json"
	if err := os.WriteFile(path, bs, 0o644); err != nil {
		log.Warnf("write %s: %v", path, err)
	}
}
