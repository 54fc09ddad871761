package sentiment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	extractClientTimeout    = 45 * time.Second
	extractMaxResponseBytes = 1 << 20 // 1MB
	extractMaxChars         = 8000
)

// Extractor 调用独立的浏览器抽取服务（cmd/extractor）拉取文章全文。
// 打分前用它补全被上游截断的正文；服务未配置时传 nil 即可。
type Extractor struct {
	URL    string
	Client *http.Client
}

func NewExtractor(url string) *Extractor {
	if url == "" {
		return nil
	}
	return &Extractor{
		URL:    url,
		Client: &http.Client{Timeout: extractClientTimeout},
	}
}

type extractRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type extractResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (e *Extractor) Extract(articleURL string) (string, error) {
	payload, err := json.Marshal(extractRequest{URL: articleURL, MaxChars: extractMaxChars})
	if err != nil {
		return "", err
	}

	resp, err := e.Client.Post(e.URL+"/extract", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("extractor: post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, extractMaxResponseBytes))
	if err != nil {
		return "", err
	}

	var out extractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("extractor: unmarshal response: %w", err)
	}
	if !out.OK {
		return "", fmt.Errorf("extractor: %s", out.Error)
	}
	return out.Text, nil
}
