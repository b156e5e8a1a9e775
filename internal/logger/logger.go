package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"log/slog"
)

var (
	levelVar slog.LevelVar
	mu       sync.RWMutex
	base     *slog.Logger
	format   = "text"
)

func init() {
	levelVar.Set(slog.LevelInfo)
	base = build(os.Stdout)
}

func build(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: &levelVar}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup 根据配置一次性初始化默认日志器。
func Setup(level, handlerFormat string, w io.Writer) {
	mu.Lock()
	if f := strings.ToLower(strings.TrimSpace(handlerFormat)); f == "json" || f == "text" {
		format = f
	}
	base = build(w)
	mu.Unlock()
	SetLevel(level)
}

func SetOutput(w io.Writer) {
	mu.Lock()
	base = build(w)
	mu.Unlock()
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info":
		levelVar.Set(slog.LevelInfo)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func active() *slog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l != nil {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		base = build(os.Stdout)
	}
	return base
}

func Debugf(f string, v ...any) { active().Debug(fmt.Sprintf(f, v...)) }

func Infof(f string, v ...any) { active().Info(fmt.Sprintf(f, v...)) }

func Warnf(f string, v ...any) { active().Warn(fmt.Sprintf(f, v...)) }

func Errorf(f string, v ...any) { active().Error(fmt.Sprintf(f, v...)) }

// InfoBlock 将多行文本逐行输出，用于启动横幅。
func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		Infof("%s", line)
	}
}
