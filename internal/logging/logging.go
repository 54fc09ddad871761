package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New 创建一个带 service 字段的 logger；level 非法时退回 info
func New(service, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	logger.AddHook(&serviceHook{service: service})
	return logger
}

// NewWithFile 同 New，但同时输出到日志文件（cron 场景：stderr 进邮件，文件留档）。
// 文件打不开时只输出到 stderr。
func NewWithFile(service, level, path string) *logrus.Logger {
	logger := New(service, level)
	if path == "" {
		return logger
	}
	if dir := filepath.Dir(path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Warnf("open log file %s failed: %v", path, err)
		return logger
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return logger
}

// serviceHook 给所有日志条目加上 service 字段
type serviceHook struct {
	service string
}

func (h *serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *serviceHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = h.service
	return nil
}
