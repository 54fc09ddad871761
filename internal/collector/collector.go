package collector

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/storage"
)

// Collector 负责一轮完整采集：遍历配置的新闻查询与资产，逐源拉取并入库。
// 进程内无并发协调，单线程跑完即退出；重叠调度由外部锁文件挡掉。
type Collector struct {
	sources *config.Sources
	store   *storage.Store
	log     *logrus.Logger

	newsAPIKey  string
	newsBaseURL string
	newsClient  *http.Client

	quoteBaseURL string
	quoteClient  *http.Client
}

func New(cfg *config.Config, store *storage.Store, log *logrus.Logger) *Collector {
	return &Collector{
		sources: cfg.Sources,
		store:   store,
		log:     log,

		newsAPIKey:  cfg.NewsAPIKey,
		newsBaseURL: newsAPIBaseURL,
		newsClient:  &http.Client{Timeout: newsClientTimeout},

		quoteBaseURL: quoteBaseURL,
		quoteClient:  &http.Client{Timeout: quoteClientTimeout},
	}
}

// SourceResult 单个源的采集结果：成功带计数，失败带原因，不用异常做控制流
type SourceResult struct {
	Name         string
	ArticleCount int
	PriceStored  bool
	Err          error
}

// RunResult 一轮采集的汇总，key 为源名；只存在于本次进程，不落库
type RunResult map[string]SourceResult

// Succeeded 只要有一个源产出数据，这一轮就算成功
func (r RunResult) Succeeded() bool {
	for _, sr := range r {
		if sr.ArticleCount > 0 || sr.PriceStored {
			return true
		}
	}
	return false
}

// RunAll 遍历全部配置源。单个源失败只记入该源的结果，绝不中断其余源。
func (c *Collector) RunAll() RunResult {
	start := time.Now()
	c.log.Infof("starting collection cycle (%d news queries, %d crypto, %d indices)",
		len(c.sources.NewsQueries), len(c.sources.Assets.Crypto), len(c.sources.Assets.Indices))

	results := RunResult{}

	for _, q := range c.sources.NewsQueries {
		results[q.Name] = c.collectNewsSource(q.Name, q.Query, q.Collection, q.DelayHours)
	}

	for _, asset := range c.sources.Assets.Crypto {
		if asset.NewsCollection != "" && asset.Query != "" {
			results[asset.Name+" news"] = c.collectNewsSource(asset.Name, asset.Query, asset.NewsCollection, asset.DelayHours)
		}
		results[asset.Name+" price"] = c.collectPriceSource(asset.Name, asset.Symbol, asset.Collection, asset.DelayHours)
	}

	for _, idx := range c.sources.Assets.Indices {
		results[idx.Name+" price"] = c.collectPriceSource(idx.Name, idx.Symbol, idx.Collection, idx.DelayHours)
	}

	if c.sources.ScrapeHeadlines {
		for _, asset := range c.sources.Assets.Crypto {
			if asset.NewsCollection != "" {
				results["CoinDesk headlines"] = c.collectHeadlines(asset.NewsCollection)
				break
			}
		}
	}

	c.log.Infof("collection cycle done in %.1fs", time.Since(start).Seconds())
	for name, sr := range results {
		if sr.Err != nil {
			c.log.Errorf("- %s: failed: %v", name, sr.Err)
		} else if sr.PriceStored {
			c.log.Infof("- %s: price stored", name)
		} else {
			c.log.Infof("- %s: %d new articles", name, sr.ArticleCount)
		}
	}
	return results
}

// collectNewsSource 抓一个新闻源并入库；任何一步失败都折叠成该源的失败结果
func (c *Collector) collectNewsSource(name, query, collection string, delayHours int) SourceResult {
	sr := SourceResult{Name: name}

	if c.newsAPIKey == "" {
		sr.Err = fmt.Errorf("NEWS_API_KEY not configured")
		return sr
	}

	articles, err := c.FetchNews(query, c.sources.DelayOrDefault(delayHours), c.sources.ArticlesPerQuery)
	if err != nil {
		sr.Err = err
		return sr
	}

	count, err := c.store.SaveArticles(collection, articles)
	if err != nil {
		sr.Err = err
		return sr
	}
	sr.ArticleCount = count
	return sr
}

// collectPriceSource 抓一个资产的行情并入库
func (c *Collector) collectPriceSource(name, symbol, collection string, delayHours int) SourceResult {
	sr := SourceResult{Name: name}

	point, err := c.FetchPrice(symbol, c.sources.DelayOrDefault(delayHours))
	if err != nil {
		sr.Err = err
		return sr
	}
	if point == nil {
		sr.Err = fmt.Errorf("no price data for %s", symbol)
		return sr
	}

	stored, err := c.store.SavePricePoint(collection, point)
	if err != nil {
		sr.Err = err
		return sr
	}
	sr.PriceStored = stored
	return sr
}

// collectHeadlines 补充抓取站点头条并入同一文章集合
func (c *Collector) collectHeadlines(collection string) SourceResult {
	sr := SourceResult{Name: "CoinDesk headlines"}

	articles, err := c.FetchCoinDeskHeadlines()
	if err != nil {
		sr.Err = err
		return sr
	}
	if len(articles) == 0 {
		return sr
	}

	count, err := c.store.SaveArticles(collection, articles)
	if err != nil {
		sr.Err = err
		return sr
	}
	sr.ArticleCount = count
	return sr
}
