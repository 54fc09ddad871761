package collector

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/LJTian/SentimentHub/internal/storage"
)

const coindeskMaxHeadlines = 30

// FetchCoinDeskHeadlines 抓取 CoinDesk 首页头条作为新闻补充源。
// 页面结构可能调整，此处基于当前的 DOM 结构做尽力而为的解析；
// 抓不到任何条目不算错误，只会少一份补充数据。
func (c *Collector) FetchCoinDeskHeadlines() ([]storage.IncomingArticle, error) {
	cc := colly.NewCollector(
		colly.AllowedDomains("www.coindesk.com", "coindesk.com"),
		colly.UserAgent("SentimentHubBot/1.0"),
	)
	cc.SetRequestTimeout(10 * time.Second)

	now := time.Now().UTC().Format(time.RFC3339)
	results := make([]storage.IncomingArticle, 0, coindeskMaxHeadlines)

	cc.OnHTML("a[href*='/markets/'], a[href*='/business/'], a[href*='/policy/']", func(e *colly.HTMLElement) {
		if len(results) >= coindeskMaxHeadlines {
			return
		}

		title := headlineTitle(e.DOM)
		// 导航链接和按钮文本很短，过滤掉
		if len(title) < 20 {
			return
		}

		link := e.Attr("href")
		if !strings.HasPrefix(link, "http") {
			link = "https://www.coindesk.com" + link
		}

		results = append(results, storage.IncomingArticle{
			Title:      title,
			SourceName: "CoinDesk",
			URL:        link,
			// 列表页拿不到发布时间，用抓取时间近似
			PublishedAt: now,
			Raw: map[string]any{
				"scraped": true,
			},
		})
	})

	if err := cc.Visit("https://www.coindesk.com/"); err != nil {
		return nil, err
	}
	cc.Wait()

	// 同一条头条可能出现在多个栏位，按 URL 去一次重
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, a := range results {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}

	c.log.Infof("scraped %d CoinDesk headlines", len(out))
	return out, nil
}

// headlineTitle 优先取卡片链接里的标题元素，没有再退回整段链接文本
func headlineTitle(sel *goquery.Selection) string {
	if h := sel.Find("h2, h3, h4"); h.Length() > 0 {
		return strings.TrimSpace(h.First().Text())
	}
	return strings.TrimSpace(sel.Text())
}
