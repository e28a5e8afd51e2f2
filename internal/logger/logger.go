// 包 logger：统一初始化与获取日志器；级别、格式与源码位置由环境变量控制，所有记录带 service 属性
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ServiceName 写入每条日志的 service 属性，便于与同机其它进程的日志区分
const ServiceName = "evimap"

var defaultLogger *slog.Logger

// Setup：初始化默认日志器并设为 slog 全局默认
// 背景：LOG_LEVEL=debug|info|warn|error，LOG_FORMAT=json|text，LOG_SOURCE=true 时附带调用位置。
// 约束：输出固定为标准错误。
func Setup() *slog.Logger {
	defaultLogger = New(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("LOG_SOURCE") == "true")
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// New：按参数构建日志器，未知级别按 info 处理
func New(w io.Writer, level, format string, source bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl, AddSource: source}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", ServiceName)
}

// L：获取默认日志器；未初始化时回退到 Setup
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup()
	}
	return defaultLogger
}
