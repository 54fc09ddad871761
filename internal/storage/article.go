package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Article 是入库后的文章结构；唯一键为 (title, source_name)，
// 插入后不再覆盖，只会由打分流程补写 sentiment 字段。
type Article struct {
	ID         string `gorm:"primaryKey;size:40" json:"id"`
	Title      string `gorm:"size:512" json:"title"`
	SourceName string `gorm:"size:128" json:"sourceName"`
	Author     string `gorm:"size:256" json:"author"`
	URL        string `gorm:"size:1024" json:"url"`

	Description string `gorm:"size:2048" json:"description"`
	Content     string `gorm:"type:text" json:"content"`

	PublishedAt time.Time `gorm:"index" json:"publishedAt"`
	StoredAt    time.Time `json:"storedAt"`

	// sentiment_score 为 NULL 表示尚未打分
	SentimentScore     *float64   `json:"sentimentScore,omitempty"`
	SentimentLabel     string     `gorm:"size:16;default:''" json:"sentimentLabel,omitempty"`
	SentimentUpdatedAt *time.Time `json:"sentimentUpdatedAt,omitempty"`

	Raw datatypes.JSONMap `gorm:"type:jsonb" json:"raw,omitempty"`
}

// IncomingArticle 是采集端拿到的原始文章，published_at 保留外部 API 给的字符串
type IncomingArticle struct {
	Title       string
	SourceName  string
	Author      string
	URL         string
	Description string
	Content     string
	PublishedAt string
	Raw         map[string]any
}

// Sentiment 打分结果：score ∈ [0,1]，label ∈ {negative, neutral, positive}
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// 发布时间早于入库时间超过该阈值时告警（通常说明外部 API 返回了陈旧数据）
const stalePublishThreshold = 48 * time.Hour

// SaveArticles 把一批文章按 (title, source_name) 去重后插入 collection，
// 已存在的记录静默跳过（不更新），返回真正新增的条数。
// 单条写入失败只记日志不中断；全部失败时返回第一个错误，供调用方做 tagged result。
func (s *Store) SaveArticles(collection string, articles []IncomingArticle) (int, error) {
	if len(articles) == 0 {
		s.log.Warnf("no articles to insert into %s", collection)
		return 0, nil
	}

	storedAt := time.Now().UTC()
	inserted := 0
	var firstErr error

	for _, a := range articles {
		if a.Title == "" {
			continue
		}

		publishedAt, ok := parsePublishedAt(a.PublishedAt)
		if !ok {
			// 解析不了就用入库时间兜底
			s.log.Warnf("unparseable published time %q, using stored time: %s", a.PublishedAt, a.Title)
			publishedAt = storedAt
		} else if storedAt.Sub(publishedAt) > stalePublishThreshold {
			s.log.Warnf("article published %.1f hours before collection: %s",
				storedAt.Sub(publishedAt).Hours(), a.Title)
		}

		rec := Article{
			ID:          articleID(a.Title, a.SourceName),
			Title:       toValidUTF8(a.Title),
			SourceName:  a.SourceName,
			Author:      truncateRunesDB(a.Author, 256),
			URL:         a.URL,
			Description: truncateRunesDB(toValidUTF8(a.Description), 2048),
			Content:     toValidUTF8(a.Content),
			PublishedAt: publishedAt,
			StoredAt:    storedAt,
			Raw:         datatypes.JSONMap(a.Raw),
		}

		tx := s.DB.Table(collection).
			Where("title = ? AND source_name = ?", rec.Title, rec.SourceName).
			FirstOrCreate(&rec)
		if tx.Error != nil {
			s.log.Errorf("insert article into %s failed: %v", collection, tx.Error)
			if firstErr == nil {
				firstErr = tx.Error
			}
			continue
		}
		if tx.RowsAffected > 0 {
			inserted++
		}
	}

	if inserted == 0 && firstErr != nil {
		return 0, fmt.Errorf("insert articles into %s: %w", collection, firstErr)
	}

	s.log.Infof("inserted %d new articles into %s (%d submitted)", inserted, collection, len(articles))
	return inserted, nil
}

// ListArticles 按发布时间倒序返回最近 days 天的文章，结果在 Redis 缓存 5 分钟
func (s *Store) ListArticles(collection string, days, limit int) ([]Article, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	if days <= 0 {
		days = 7
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("articles:%s:%d:%d", collection, days, limit)
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Article
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	var list []Article
	err := s.DB.Table(collection).
		Where("published_at >= ?", since).
		Order("published_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}
	return list, nil
}

// ListUnscored 返回尚未打分的文章（发布时间倒序），供情感分析批处理消费
func (s *Store) ListUnscored(collection string, limit int) ([]Article, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var list []Article
	err := s.DB.Table(collection).
		Where("sentiment_score IS NULL").
		Order("published_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// AttachSentiment 给指定文章补写情感分；记录不存在（被删或从未入库）时返回 false
func (s *Store) AttachSentiment(collection, articleID string, sentiment Sentiment) (bool, error) {
	now := time.Now().UTC()
	tx := s.DB.Table(collection).
		Where("id = ?", articleID).
		Updates(map[string]any{
			"sentiment_score":      sentiment.Score,
			"sentiment_label":      sentiment.Label,
			"sentiment_updated_at": now,
		})
	if tx.Error != nil {
		return false, fmt.Errorf("attach sentiment in %s: %w", collection, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// AverageSentiment 返回最近 days 天已打分文章的平均分与条数；无数据时 count 为 0
func (s *Store) AverageSentiment(collection string, days int) (float64, int, error) {
	if days <= 0 {
		days = 1
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var row struct {
		Avg   *float64
		Count int
	}
	err := s.DB.Table(collection).
		Select("AVG(sentiment_score) AS avg, COUNT(*) AS count").
		Where("sentiment_score IS NOT NULL AND published_at >= ?", since).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	if row.Avg == nil {
		return 0, 0, nil
	}
	return *row.Avg, row.Count, nil
}

// articleID 以 (title, source) 生成稳定主键，与去重键保持一致
func articleID(title, source string) string {
	h := sha1.New()
	h.Write([]byte(title))
	h.Write([]byte{'|'})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// 外部 API 返回过的几种发布时间格式
var publishedAtLayouts = []string{
	time.RFC3339,          // 2025-01-02T15:04:05Z / +07:00
	"2006-01-02T15:04:05", // ISO 无时区
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parsePublishedAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
