package main

import (
	"os"
	"time"

	"github.com/LJTian/SentimentHub/internal/collector"
	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/lockfile"
	"github.com/LJTian/SentimentHub/internal/logging"
	"github.com/LJTian/SentimentHub/internal/storage"
)

// 面向 crontab 的单次采集入口：加锁 -> 采集 -> 汇总 -> 退出。
// 退出码：0 成功或主动跳过（锁被占用），1 全部源失败或初始化失败。
func main() {
	cfg := config.Load()
	log := logging.NewWithFile("collector", cfg.LogLevel,
		"logs/cron-collector-"+time.Now().Format("20060102")+".log")

	// 锁未过期说明上一轮还在跑，本轮直接让位（exit 0，不触发 cron 告警）
	held, err := lockfile.Acquire(cfg.LockFile)
	if err != nil {
		log.Errorf("acquire lock failed: %v", err)
		os.Exit(1)
	}
	if !held {
		if age, ok := lockfile.Age(cfg.LockFile); ok {
			log.Warnf("another collection appears to be running (lock age %.0fs), exiting", age.Seconds())
		}
		os.Exit(0)
	}
	defer lockfile.Release(cfg.LockFile)

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, log)
	if err != nil {
		log.Errorf("init store failed: %v", err)
		lockfile.Release(cfg.LockFile)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureCollections(cfg.Sources.NewsCollections(), cfg.Sources.PriceCollections()); err != nil {
		log.Errorf("ensure collections failed: %v", err)
		lockfile.Release(cfg.LockFile)
		os.Exit(1)
	}

	start := time.Now()
	results := collector.New(cfg, store, log).RunAll()

	log.Infof("collection finished in %.1f minutes", time.Since(start).Minutes())
	if !results.Succeeded() {
		log.Error("collection cycle failed to collect any data")
		lockfile.Release(cfg.LockFile)
		os.Exit(1)
	}
	log.Info("collection script completed successfully")
}
