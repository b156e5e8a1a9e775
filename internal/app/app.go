// Package app 负责应用级编排:配置 -> 依赖装配 -> 启动 HTTP 服务与后台协程。
package app

import (
	"context"
	"fmt"

	"tradewind/internal/config"
	"tradewind/internal/market"
	"tradewind/internal/store/gormstore"
	"tradewind/internal/store/tracedb"
	"tradewind/internal/symbolbook"
	apihttp "tradewind/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 持有装配完成的全部组件。构建不等于启动,Run 才开始监听。
type App struct {
	cfg        *config.Config
	server     *apihttp.Server
	preheater  *market.Preheater
	book       *symbolbook.Book
	cache      market.SnapshotCache
	orderStore *gormstore.OrderStore
	traceStore *tracedb.Store

	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象(不启动)。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return build(cfg)
}

// Run 启动 HTTP 服务与预热协程,阻塞到 ctx 取消或任一组件失败。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.Close()

	if path := a.cfg.Symbols.BookPath; path != "" && a.book != nil {
		a.book.Watch(path)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	if a.preheater != nil {
		group.Go(func() error {
			return a.preheater.Run(ctx)
		})
	}

	return group.Wait()
}

// Close 释放持久化句柄。Run 退出时自动调用,重复调用无害。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.orderStore != nil {
		_ = a.orderStore.Close()
	}
	if a.traceStore != nil {
		_ = a.traceStore.Close()
	}
	// 内存缓存没有 Close,只有 redis 后端需要断开。
	if c, ok := a.cache.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
