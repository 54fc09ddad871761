package main

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/LJTian/SentimentHub/internal/api"
	"github.com/LJTian/SentimentHub/internal/collector"
	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/lockfile"
	"github.com/LJTian/SentimentHub/internal/logging"
	"github.com/LJTian/SentimentHub/internal/sentiment"
	"github.com/LJTian/SentimentHub/internal/storage"
)

// 仪表盘服务 + 进程内定时采集（daemon 模式）。
// 生产环境推荐用 crontab 调 cmd/collect / cmd/sentiment，这里的内置调度
// 用于单机一体化部署；采集入口共用 cmd/collect 的锁文件，两种模式不会互踩。
func main() {
	cfg := config.Load()
	log := logging.New("api", cfg.LogLevel)

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, log)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	if err := store.EnsureCollections(cfg.Sources.NewsCollections(), cfg.Sources.PriceCollections()); err != nil {
		log.Fatalf("ensure collections failed: %v", err)
	}

	// 按各自节奏调度采集与打分；失败只记日志，等下一轮
	c := cron.New()
	coll := collector.New(cfg, store, log)
	if _, err := c.AddFunc(cfg.CollectCronSpec, func() {
		held, err := lockfile.Acquire(cfg.LockFile)
		if err != nil || !held {
			log.Warn("skip scheduled collection: lock held by another run")
			return
		}
		defer lockfile.Release(cfg.LockFile)

		if !coll.RunAll().Succeeded() {
			log.Error("scheduled collection produced no data")
		}
	}); err != nil {
		log.Fatalf("add collect cron failed: %v", err)
	}

	if cfg.SentimentAPIURL != "" {
		analyzer := sentiment.NewAnalyzer(
			cfg.Sources,
			store,
			sentiment.NewHTTPScorer(cfg.SentimentAPIURL),
			sentiment.NewExtractor(cfg.ExtractorURL),
			log,
		)
		if _, err := c.AddFunc(cfg.SentimentCronSpec, func() { analyzer.RunAll() }); err != nil {
			log.Fatalf("add sentiment cron failed: %v", err)
		}
	} else {
		log.Warn("SENTIMENT_API_URL not configured, scoring disabled")
	}
	c.Start()

	r := gin.Default()
	// 配置了全局访问密码时启用 Basic Auth（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(store, cfg.Sources)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Infof("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// basicAuthMiddleware 为整个站点增加一个简单的访问密码；/health 免认证便于探活
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
