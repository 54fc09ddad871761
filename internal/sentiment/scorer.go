package sentiment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clipperhouse/uax29/v2/sentences"

	"github.com/LJTian/SentimentHub/internal/storage"
)

const (
	// 分类标签
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
	LabelPositive = "positive"

	// score ∈ [0,1]，0 为负面，0.5 为中性，1 为正面
	negativeThreshold = 0.4
	positiveThreshold = 0.6

	neutralScore = 0.5

	minTextLen     = 10
	minSentenceLen = 5

	scorerClientTimeout    = 30 * time.Second
	scorerMaxResponseBytes = 64 * 1024
)

// Scorer 把一段文本映射成 [0,1] 的情感分。模型本身是外部黑盒。
type Scorer interface {
	Score(text string) (storage.Sentiment, error)
}

// HTTPScorer 调用一个托管的推理服务（FinBERT 风格），
// 请求 {"inputs": "..."}，响应为各分类的概率列表。
type HTTPScorer struct {
	URL    string
	Client *http.Client
}

func NewHTTPScorer(url string) *HTTPScorer {
	return &HTTPScorer{
		URL:    url,
		Client: &http.Client{Timeout: scorerClientTimeout},
	}
}

// 推理服务的响应：[[{"label":"positive","score":0.9}, ...]]
type inferenceClass struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score 把整段文本拆句逐句打分后取平均。模型有输入长度上限，
// 逐句调用也让单句失败不影响整体。
func (s *HTTPScorer) Score(text string) (storage.Sentiment, error) {
	text = normalizeText(text)
	if len(text) < minTextLen {
		return storage.Sentiment{Score: neutralScore, Label: LabelNeutral}, nil
	}

	var scores []float64
	seg := sentences.FromString(text)
	for seg.Next() {
		sentence := strings.TrimSpace(seg.Value())
		if len(sentence) < minSentenceLen {
			continue
		}

		score, err := s.scoreSentence(sentence)
		if err != nil {
			// 单句失败跳过，和整体失败区分开
			continue
		}
		scores = append(scores, score)
	}

	if len(scores) == 0 {
		return storage.Sentiment{Score: neutralScore, Label: LabelNeutral}, nil
	}

	sum := 0.0
	for _, v := range scores {
		sum += v
	}
	avg := sum / float64(len(scores))

	return storage.Sentiment{Score: avg, Label: LabelForScore(avg)}, nil
}

func (s *HTTPScorer) scoreSentence(sentence string) (float64, error) {
	payload, err := json.Marshal(map[string]string{"inputs": sentence})
	if err != nil {
		return 0, err
	}

	resp, err := s.Client.Post(s.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("scorer: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scorer: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, scorerMaxResponseBytes))
	if err != nil {
		return 0, err
	}

	var batches [][]inferenceClass
	if err := json.Unmarshal(body, &batches); err != nil {
		// 有的部署不带外层 batch 维度
		var flat []inferenceClass
		if err2 := json.Unmarshal(body, &flat); err2 != nil {
			return 0, fmt.Errorf("scorer: unmarshal response: %w", err)
		}
		batches = [][]inferenceClass{flat}
	}
	if len(batches) == 0 || len(batches[0]) == 0 {
		return 0, fmt.Errorf("scorer: empty response")
	}

	return scoreFromClasses(batches[0]), nil
}

// scoreFromClasses 把 (negative, neutral, positive) 概率折算成单一分值：
// score = P(positive) + 0.5 * P(neutral)
func scoreFromClasses(classes []inferenceClass) float64 {
	score := 0.0
	for _, c := range classes {
		switch strings.ToLower(c.Label) {
		case LabelPositive:
			score += c.Score
		case LabelNeutral:
			score += c.Score * 0.5
		}
	}
	return score
}

// LabelForScore 按阈值映射标签：<0.4 负面，>0.6 正面，其余中性
func LabelForScore(score float64) string {
	switch {
	case score < negativeThreshold:
		return LabelNegative
	case score > positiveThreshold:
		return LabelPositive
	default:
		return LabelNeutral
	}
}

// normalizeText 压掉多余空白
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
