package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store 持有进程内唯一的数据库连接与 Redis 缓存句柄。
// 在 main 里构造一次后以引用传入各组件，不做包级单例。
type Store struct {
	DB    *gorm.DB
	Redis *redis.Client

	log *logrus.Logger
}

func NewStore(dsn, redisAddr string, log *logrus.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Redis 只用作读缓存，连不上时降级为直查 DB
		log.Warnf("redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb, log: log}, nil
}

// EnsureCollections 幂等地建表和索引，每次进程启动都可以安全调用。
// 文章集合：(published_at DESC, source_name) 查询索引、(title, source_name) 唯一键、
// 已打分文章的部分索引；行情集合：(symbol, timestamp DESC) 唯一键。
func (s *Store) EnsureCollections(articleCollections, priceCollections []string) error {
	for _, name := range articleCollections {
		if err := s.DB.Table(name).AutoMigrate(&Article{}); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		stmts := []string{
			fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_title_source ON %s (title, source_name)`, name, name),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_published_source ON %s (published_at DESC, source_name)`, name, name),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_scored ON %s (published_at DESC) WHERE sentiment_label <> ''`, name, name),
		}
		for _, stmt := range stmts {
			if err := s.DB.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index %s: %w", name, err)
			}
		}
	}

	for _, name := range priceCollections {
		if err := s.DB.Table(name).AutoMigrate(&PricePoint{}); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		stmt := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_symbol_ts ON %s (symbol, timestamp DESC)`, name, name)
		if err := s.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}

	if err := s.DB.Table(snapshotCollection).AutoMigrate(&SentimentSnapshot{}); err != nil {
		return fmt.Errorf("migrate %s: %w", snapshotCollection, err)
	}

	s.log.Infof("ensured %d article and %d price collections", len(articleCollections), len(priceCollections))
	return nil
}

// silent 返回一个不打印 record-not-found 噪音的会话，用于存在性探测
func (s *Store) silent() *gorm.DB {
	return s.DB.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(gormlogger.Silent)})
}

func (s *Store) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if db, err := s.DB.DB(); err == nil {
		_ = db.Close()
	}
}
