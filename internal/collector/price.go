package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/LJTian/SentimentHub/internal/storage"
)

const (
	quoteBaseURL          = "https://query1.finance.yahoo.com/v8/finance/chart"
	quoteMaxResponseBytes = 1 << 20 // 1MB
	quoteClientTimeout    = 10 * time.Second
)

// 行情 chart 接口的响应结构（只取用到的字段）
type chartResp struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// chooseInterval 按延迟选采样粒度：延迟短用小时线，延迟长用日线，控制返回数据量
func chooseInterval(delayHours int) string {
	if delayHours <= 48 {
		return "1h"
	}
	return "1d"
}

// chooseRange 返回能覆盖目标时间的历史窗口（多留 2 天余量）
func chooseRange(delayHours int) string {
	days := delayHours/24 + 2
	return fmt.Sprintf("%dd", days)
}

// FetchPrice 拉取 symbol 的历史行情，取观测时间最接近 now-delay 的那一条。
// 序列为空时返回 nil（不算错误）。
func (c *Collector) FetchPrice(symbol string, delayHours int) (*storage.PricePoint, error) {
	now := time.Now().UTC()
	target := now.Add(-time.Duration(delayHours) * time.Hour)

	params := url.Values{
		"interval": {chooseInterval(delayHours)},
		"range":    {chooseRange(delayHours)},
	}
	u := c.quoteBaseURL + "/" + url.PathEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("price: build request: %w", err)
	}
	req.Header.Set("User-Agent", "SentimentHubBot/1.0")

	resp, err := c.quoteClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price: fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, quoteMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("price: read response: %w", err)
	}

	var data chartResp
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("price: unmarshal response: %w", err)
	}
	if data.Chart.Error != nil {
		return nil, fmt.Errorf("price: api error %s: %s", data.Chart.Error.Code, data.Chart.Error.Description)
	}
	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Timestamp) == 0 {
		c.log.Warnf("no price data available for %s", symbol)
		return nil, nil
	}

	result := data.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		c.log.Warnf("no quote series for %s", symbol)
		return nil, nil
	}
	quote := result.Indicators.Quote[0]

	// 选观测时间最接近目标时间的点
	best := 0
	bestDiff := math.MaxFloat64
	for i, ts := range result.Timestamp {
		diff := math.Abs(target.Sub(time.Unix(ts, 0)).Seconds())
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}

	at := func(vals []float64, i int) float64 {
		if i < len(vals) {
			return vals[i]
		}
		return 0
	}

	observed := time.Unix(result.Timestamp[best], 0).UTC()
	point := &storage.PricePoint{
		Symbol:        symbol,
		Timestamp:     observed,
		CollectedAt:   now,
		TargetTime:    target,
		Open:          at(quote.Open, best),
		High:          at(quote.High, best),
		Low:           at(quote.Low, best),
		Close:         at(quote.Close, best),
		Volume:        at(quote.Volume, best),
		Price:         at(quote.Close, best),
		OffsetMinutes: bestDiff / 60,
		Raw: map[string]any{
			"interval": chooseInterval(delayHours),
			"range":    chooseRange(delayHours),
			"points":   len(result.Timestamp),
		},
	}

	c.log.Infof("collected price for %s: %.2f from %s (offset %.0f min from target)",
		symbol, point.Price, observed.Format(time.RFC3339), point.OffsetMinutes)
	return point, nil
}
