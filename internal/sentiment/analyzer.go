package sentiment

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/storage"
)

const articlesPerPass = 100

// Analyzer 跑一遍打分流程：读未打分文章 -> 调模型 -> 回写；
// 打过分的记录不会重打。
type Analyzer struct {
	sources   *config.Sources
	store     *storage.Store
	scorer    Scorer
	extractor *Extractor
	log       *logrus.Logger
}

func NewAnalyzer(sources *config.Sources, store *storage.Store, scorer Scorer, extractor *Extractor, log *logrus.Logger) *Analyzer {
	return &Analyzer{
		sources:   sources,
		store:     store,
		scorer:    scorer,
		extractor: extractor,
		log:       log,
	}
}

// ScoreCollection 给一个集合里最多 articlesPerPass 条未打分文章打分，返回成功条数
func (a *Analyzer) ScoreCollection(collection string) int {
	articles, err := a.store.ListUnscored(collection, articlesPerPass)
	if err != nil {
		a.log.Errorf("list unscored articles from %s: %v", collection, err)
		return 0
	}
	if len(articles) == 0 {
		a.log.Infof("no unscored articles in %s", collection)
		return 0
	}

	scored := 0
	for _, art := range articles {
		text := a.articleText(art)

		s, err := a.scorer.Score(text)
		if err != nil {
			a.log.Warnf("score article %s failed: %v", art.ID, err)
			continue
		}

		ok, err := a.store.AttachSentiment(collection, art.ID, s)
		if err != nil {
			a.log.Warnf("attach sentiment for %s failed: %v", art.ID, err)
			continue
		}
		if !ok {
			a.log.Warnf("article %s vanished from %s before scoring", art.ID, collection)
			continue
		}
		scored++
	}

	a.log.Infof("scored %d/%d articles in %s", scored, len(articles), collection)
	return scored
}

// articleText 拼出送入模型的文本；正文被上游截断且配置了抽取服务时，先抓全文
func (a *Analyzer) articleText(art storage.Article) string {
	content := art.Content
	if a.extractor != nil && art.URL != "" && looksTruncated(content) {
		if full, err := a.extractor.Extract(art.URL); err == nil && len(full) > len(content) {
			content = full
		}
	}
	return strings.TrimSpace(art.Title + " " + art.Description + " " + content)
}

// 搜索 API 的 content 会被截成 "... [+1234 chars]" 的形式
func looksTruncated(content string) bool {
	return content == "" || strings.Contains(content, "[+")
}

// RunAll 对所有新闻集合跑一遍打分，然后生成跨源对比快照。
// 返回对比结果（源名 -> score/label/article_count），用于日志与落盘。
func (a *Analyzer) RunAll() map[string]any {
	for _, collection := range a.sources.NewsCollections() {
		a.ScoreCollection(collection)
	}
	return a.Compare()
}

// Compare 计算各源最近一天的平均情感并保存快照
func (a *Analyzer) Compare() map[string]any {
	results := map[string]any{}

	add := func(name, collection string) {
		avg, count, err := a.store.AverageSentiment(collection, 1)
		if err != nil {
			a.log.Errorf("average sentiment for %s: %v", collection, err)
			return
		}
		if count == 0 {
			results[name] = map[string]any{
				"score":         neutralScore,
				"label":         LabelNeutral,
				"article_count": 0,
			}
			return
		}
		results[name] = map[string]any{
			"score":         avg,
			"label":         LabelForScore(avg),
			"article_count": count,
		}
	}

	for _, c := range a.sources.Assets.Crypto {
		if c.NewsCollection != "" {
			add(c.Name, c.NewsCollection)
		}
	}
	for _, q := range a.sources.NewsQueries {
		add(q.Name, q.Collection)
	}

	if err := a.store.SaveSentimentSnapshot(results); err != nil {
		a.log.Errorf("save sentiment snapshot: %v", err)
	}
	return results
}
