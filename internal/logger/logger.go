// Package logger 初始化全局 logrus 日志
// 支持 JSON / 文本格式，可选输出到按大小滚动的日志文件
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"gate-control/internal/config"
)

// Setup 根据配置初始化标准 logger
// 参数:
//   - cfg: 日志配置
//
// 返回:
//   - io.Closer: 文件输出的关闭句柄，未配置文件时为 nil
//   - error: 日志级别无法解析时返回错误
func Setup(cfg config.LogConfig) (io.Closer, error) {
	log := logrus.StandardLogger()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File == "" {
		log.SetOutput(os.Stdout)
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, err
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		LocalTime:  true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	return file, nil
}
