package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/storage"
)

type Server struct {
	store   *storage.Store
	sources *config.Sources
}

func NewServer(store *storage.Store, sources *config.Sources) *Server {
	return &Server{store: store, sources: sources}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/assets", s.listAssets)
		v1.GET("/articles", s.listArticles)
		v1.GET("/prices", s.listPrices)
		v1.GET("/sentiment/summary", s.sentimentSummary)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listAssets 返回配置的全部数据源，前端据此渲染下拉框
func (s *Server) listAssets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data": gin.H{
			"crypto":  s.sources.Assets.Crypto,
			"indices": s.sources.Assets.Indices,
			"news":    s.sources.NewsQueries,
		},
	})
}

// isKnownCollection 只放行配置里出现过的集合名，集合名会拼进 SQL 的表名
func (s *Server) isKnownCollection(name string, collections []string) bool {
	for _, c := range collections {
		if c == name {
			return true
		}
	}
	return false
}

func (s *Server) listArticles(c *gin.Context) {
	collection := c.Query("collection")
	if !s.isKnownCollection(collection, s.sources.NewsCollections()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "unknown collection",
		})
		return
	}

	days := queryInt(c, "days", 7)
	limit := queryInt(c, "limit", 20)

	items, err := s.store.ListArticles(collection, days, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) listPrices(c *gin.Context) {
	collection := c.Query("collection")
	if !s.isKnownCollection(collection, s.sources.PriceCollections()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "unknown collection",
		})
		return
	}

	days := queryInt(c, "days", 7)

	items, err := s.store.ListPrices(collection, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

// sentimentSummary 返回最近一次的跨源情感对比快照
func (s *Server) sentimentSummary(c *gin.Context) {
	snap, err := s.store.LatestSentimentSnapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	if snap == nil {
		c.JSON(http.StatusOK, gin.H{
			"code":    "ok",
			"message": "no sentiment data yet",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    snap,
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
