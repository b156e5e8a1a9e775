package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradewind/internal/agent"
	"tradewind/internal/config"
	"tradewind/internal/decision"
	"tradewind/internal/gateway/alphavantage"
	"tradewind/internal/gateway/binance"
	"tradewind/internal/gateway/notifier"
	"tradewind/internal/gateway/reasoning"
	"tradewind/internal/gateway/yahoo"
	"tradewind/internal/logger"
	"tradewind/internal/market"
	"tradewind/internal/metrics"
	"tradewind/internal/order"
	"tradewind/internal/pkg/circuit"
	"tradewind/internal/scheduler"
	"tradewind/internal/store/gormstore"
	"tradewind/internal/store/memcache"
	"tradewind/internal/store/rediscache"
	"tradewind/internal/store/tracedb"
	"tradewind/internal/symbolbook"
	apihttp "tradewind/internal/transport/http/api"
)

// build 按依赖顺序装配全部组件:存储 -> 行情 -> 推理 -> 编排 -> HTTP。
// 任一环节失败都立即返回,不留半初始化状态。
func build(cfg *config.Config) (*App, error) {
	m := metrics.New()

	traceStore, err := tracedb.New(cfg.Trace.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open trace store: %w", err)
	}
	orderStore, err := gormstore.New(cfg.Orders.DBPath)
	if err != nil {
		_ = traceStore.Close()
		return nil, fmt.Errorf("open order store: %w", err)
	}

	source, err := buildSource(cfg.Market)
	if err != nil {
		_ = traceStore.Close()
		_ = orderStore.Close()
		return nil, err
	}
	cache, err := buildCache(cfg.Cache)
	if err != nil {
		_ = traceStore.Close()
		_ = orderStore.Close()
		return nil, err
	}
	notif := buildNotifier(cfg.Notify)

	breaker := circuit.New(source.Name(), 5, 0)
	breaker.OnOpen(func(name string) {
		m.ObserveBreakerTrip(name)
		_ = notif.SendText(fmt.Sprintf("⚠️ 行情源 %s 熔断开启,进入冷却", name))
	})

	data := market.NewDataService(market.DataServiceParams{
		Cache:       cache,
		Source:      source,
		Breaker:     breaker,
		Metrics:     m,
		HistoryDays: cfg.Market.HistoryDays,
		CallTimeout: cfg.Market.QuoteTimeout(),
	})

	book := buildBook(cfg.Symbols)

	reasoner := reasoning.NewOpenAIChatClient(
		cfg.Reasoning.BaseURL,
		cfg.Reasoning.APIKey,
		cfg.Reasoning.Model,
		cfg.Reasoning.Timeout(),
		cfg.Reasoning.Temperature,
		cfg.Reasoning.MaxRetries,
	)

	orch := agent.New(agent.Params{
		Book:             book,
		Data:             data,
		Reasoner:         reasoner,
		Parser:           decision.NewParser(cfg.Orders.DefaultQuantity),
		Traces:           traceStore,
		Notifier:         notif,
		Metrics:          m,
		Model:            cfg.Reasoning.Model,
		ReasoningTimeout: cfg.Reasoning.Timeout(),
	})

	orders := order.NewService(order.ServiceParams{
		Store:       orderStore,
		Runs:        traceStore,
		Notifier:    notif,
		Metrics:     m,
		Environment: cfg.Orders.Environment,
	})

	server, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Agent:  orch,
		Orders: orders,
		Traces: traceStore,
	})
	if err != nil {
		_ = traceStore.Close()
		_ = orderStore.Close()
		return nil, err
	}

	return &App{
		cfg:        cfg,
		server:     server,
		preheater:  buildPreheater(cfg.Watchlist, data),
		book:       book,
		cache:      cache,
		orderStore: orderStore,
		traceStore: traceStore,
		Summary:    newStartupSummary(cfg, source.Name(), book.Size()),
	}, nil
}

func buildSource(cfg config.MarketConfig) (market.Source, error) {
	switch cfg.Provider {
	case "yahoo":
		return yahoo.New(), nil
	case "alphavantage":
		return alphavantage.New(cfg.AlphaVantageKey, cfg.QuoteTimeout()), nil
	case "binance":
		return binance.New(cfg.BinanceBaseURL), nil
	case "synthetic":
		return market.NewSyntheticSource(cfg.HistoryDays), nil
	default:
		return nil, fmt.Errorf("unknown market provider %q", cfg.Provider)
	}
}

func buildCache(cfg config.CacheConfig) (market.SnapshotCache, error) {
	if cfg.Backend == "redis" {
		rc := rediscache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL())
		if err := rc.Ping(context.Background()); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("redis cache ping %s: %w", cfg.RedisAddr, err)
		}
		return rc, nil
	}
	return memcache.New(cfg.TTL()), nil
}

func buildNotifier(cfg config.NotifyConfig) notifier.TextNotifier {
	if cfg.Telegram.Enabled {
		return notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}
	return notifier.Noop{}
}

func buildBook(cfg config.SymbolsConfig) *symbolbook.Book {
	book := symbolbook.Default()
	if path := strings.TrimSpace(cfg.BookPath); path != "" {
		if err := book.LoadFile(path); err != nil {
			logger.Warnf("[启动] 加载别名文件失败,沿用内置表: %v", err)
		}
	}
	return book
}

func buildPreheater(cfg config.WatchlistConfig, data *market.DataService) *market.Preheater {
	if !cfg.Enabled || len(cfg.Symbols) == 0 {
		return nil
	}
	interval, ok := scheduler.ParseInterval(cfg.Refresh)
	if !ok {
		// 校验层已经拦过非法值,这里只兜底
		interval = 10 * time.Minute
	}
	return market.NewPreheater(data, cfg.Symbols, interval)
}
