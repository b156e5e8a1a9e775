package apihttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tradewind/internal/agent"
	"tradewind/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server 是对外的 HTTP 入口,承载 agent run、订单审批与券商回报。
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr   string
	Agent  AgentRunner
	Orders OrderService
	Traces agent.TraceRecorder
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Agent == nil {
		return nil, fmt.Errorf("apihttp: agent runner is required")
	}
	if cfg.Orders == nil {
		return nil, fmt.Errorf("apihttp: order service is required")
	}
	if cfg.Traces == nil {
		return nil, fmt.Errorf("apihttp: trace recorder is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := NewRouter(cfg.Agent, cfg.Orders, cfg.Traces)
	api.Register(router.Group("/api/v1"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Start 启动监听并阻塞到 ctx 取消,退出前给 5 秒优雅停机窗口。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[api] HTTP 服务启动 addr=%s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("[api] HTTP 服务停机异常: %v", err)
			return err
		}
		logger.Infof("[api] HTTP 服务已停止")
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("[api] %s %s -> %d (%s) ip=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Millisecond), c.ClientIP())
	}
}
