package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"tradewind/internal/app"
	"tradewind/internal/config"
	"tradewind/internal/logger"
)

func main() {
	// .env 不存在时静默跳过,密钥也可以直接走进程环境变量
	_ = godotenv.Load()

	cfgPath := os.Getenv("TRADEWIND_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}

	logFile, err := setupLogOutput(cfg.App.LogLevel, cfg.App.LogFormat, cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	if cfg.App.DumpPayload {
		f, err := setupTranscript(cfg.App.TranscriptPath)
		if err != nil {
			log.Fatalf("初始化推理誊录失败: %v", err)
		}
		if f != nil {
			defer f.Close()
		}
	}
	logger.EnablePayloadDump(cfg.App.DumpPayload)
	logger.Infof("✓ 配置加载成功 env=%s provider=%s addr=%s",
		cfg.App.Env, cfg.Market.Provider, cfg.App.HTTPAddr)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}

// setupLogOutput 把日志同时写到 stdout 和文件;未配置文件路径时只写 stdout。
func setupLogOutput(level, format, path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		logger.Setup(level, format, os.Stdout)
		return nil, nil
	}
	if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.Setup(level, format, mw)
	return file, nil
}

// setupTranscript 打开推理对话誊录文件,记录每次 run 的完整 prompt 往返。
func setupTranscript(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetTranscriptWriter(f)
	return f, nil
}
