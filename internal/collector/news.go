package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/LJTian/SentimentHub/internal/storage"
)

const (
	newsAPIBaseURL       = "https://newsapi.org/v2"
	newsMaxResponseBytes = 4 << 20 // 4MB，everything 接口单页最多 100 条
	newsClientTimeout    = 15 * time.Second
)

// NewsAPI /v2/everything 的响应结构
type newsAPIResp struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []newsArticle `json:"articles"`
}

type newsArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// FetchNews 按 [now-delay-24h, now-delay] 的时间窗口查询外部搜索 API，
// 结果按发布时间倒序截断到 maxArticles 条。
func (c *Collector) FetchNews(query string, delayHours, maxArticles int) ([]storage.IncomingArticle, error) {
	now := time.Now().UTC()
	to := now.Add(-time.Duration(delayHours) * time.Hour)
	from := to.Add(-24 * time.Hour)

	params := url.Values{
		"q":        {query},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {fmt.Sprintf("%d", maxArticles)},
		"from":     {from.Format(time.RFC3339)},
		"to":       {to.Format(time.RFC3339)},
	}

	req, err := http.NewRequest(http.MethodGet, c.newsBaseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("news: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.newsAPIKey)

	resp, err := c.newsClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news: fetch %q: %w", query, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, newsMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("news: read response: %w", err)
	}

	var data newsAPIResp
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("news: unmarshal response: %w", err)
	}
	if data.Status != "ok" {
		return nil, fmt.Errorf("news: api error %s: %s", data.Code, data.Message)
	}

	// 接口本身已按 publishedAt 排序，这里再排一次防御上游行为变化
	arts := data.Articles
	sort.SliceStable(arts, func(i, j int) bool {
		return arts[i].PublishedAt > arts[j].PublishedAt
	})
	if len(arts) > maxArticles {
		arts = arts[:maxArticles]
	}

	out := make([]storage.IncomingArticle, 0, len(arts))
	for _, a := range arts {
		if a.Title == "" {
			continue
		}
		out = append(out, storage.IncomingArticle{
			Title:       a.Title,
			SourceName:  a.Source.Name,
			Author:      a.Author,
			URL:         a.URL,
			Description: a.Description,
			Content:     a.Content,
			PublishedAt: a.PublishedAt,
			Raw: map[string]any{
				"source_id": a.Source.ID,
				"query":     query,
			},
		})
	}

	c.log.Infof("collected %d articles for query %q", len(out), query)
	return out, nil
}
