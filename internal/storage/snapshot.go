package storage

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const snapshotCollection = "sentiment_results"

// SentimentSnapshot 一次情感对比的快照：results 是 源名 -> {score, label, article_count}
type SentimentSnapshot struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Results   datatypes.JSONMap `gorm:"type:jsonb" json:"results"`
	CreatedAt time.Time         `gorm:"index" json:"createdAt"`
}

// SaveSentimentSnapshot 保存一次对比结果，供仪表盘展示趋势
func (s *Store) SaveSentimentSnapshot(results map[string]any) error {
	snap := SentimentSnapshot{
		Results:   datatypes.JSONMap(results),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.DB.Table(snapshotCollection).Create(&snap).Error; err != nil {
		return err
	}
	s.log.Infof("stored sentiment snapshot with id %d", snap.ID)
	return nil
}

// LatestSentimentSnapshot 返回最近一次对比快照；没有数据时返回 nil
func (s *Store) LatestSentimentSnapshot() (*SentimentSnapshot, error) {
	var snap SentimentSnapshot
	err := s.silent().Table(snapshotCollection).
		Order("created_at DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
