package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 列表接口的 Redis 缓存时长
const listCacheTTL = 5 * time.Minute

// PricePoint 一条行情观测；唯一键为 (symbol, timestamp)。
// timestamp 是行情源给出的观测时间，target_time 是采集器本想采样的时间，
// offset_minutes 记录两者偏差，便于观察采样质量。
type PricePoint struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Symbol string `gorm:"size:32" json:"symbol"`

	Timestamp   time.Time `json:"timestamp"`
	CollectedAt time.Time `json:"collectedAt"`
	TargetTime  time.Time `json:"targetTime"`

	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	// price 与 close 同值，保留是为了和旧数据的字段名兼容
	Price float64 `json:"price"`

	OffsetMinutes float64 `json:"offsetMinutes"`

	Raw datatypes.JSONMap `gorm:"type:jsonb" json:"raw,omitempty"`
}

// SavePricePoint 插入一条行情。(symbol, timestamp) 已存在时视为已满足，
// 直接返回成功而不重插；collected_at 缺省补当前时间。
func (s *Store) SavePricePoint(collection string, point *PricePoint) (bool, error) {
	if point == nil {
		s.log.Warnf("no price data to insert into %s", collection)
		return false, nil
	}

	if point.Timestamp.IsZero() {
		s.log.Warn("no timestamp in price data, using current time")
		point.Timestamp = time.Now().UTC()
	}
	if point.CollectedAt.IsZero() {
		point.CollectedAt = time.Now().UTC()
	}

	var existing PricePoint
	err := s.silent().Table(collection).
		Where("symbol = ? AND timestamp = ?", point.Symbol, point.Timestamp).
		First(&existing).Error
	if err == nil {
		s.log.Infof("price for %s at %s already exists in %s", point.Symbol,
			point.Timestamp.Format(time.RFC3339), collection)
		return true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("check existing price in %s: %w", collection, err)
	}

	if err := s.DB.Table(collection).Create(point).Error; err != nil {
		return false, fmt.Errorf("insert price into %s: %w", collection, err)
	}
	s.log.Infof("inserted price for %s from %s into %s", point.Symbol,
		point.Timestamp.Format(time.RFC3339), collection)
	return true, nil
}

// ListPrices 按观测时间升序返回最近 days 天的行情，结果在 Redis 缓存 5 分钟
func (s *Store) ListPrices(collection string, days int) ([]PricePoint, error) {
	if days <= 0 {
		days = 7
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("prices:%s:%d", collection, days)
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []PricePoint
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	var list []PricePoint
	err := s.DB.Table(collection).
		Where("timestamp >= ?", since).
		Order("timestamp ASC").
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
