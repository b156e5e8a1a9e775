package app

import (
	"fmt"
	"strings"

	"tradewind/internal/config"
)

// StartupSummary 启动时打印一次的配置摘要,敏感字段只显示有无。
type StartupSummary struct {
	Env        string
	HTTPAddr   string
	Provider   string
	CacheStack string
	Model      string
	OrderEnv   string
	OrderDB    string
	TraceDB    string
	AliasCount int
	Watchlist  []string
	Refresh    string
	Telegram   bool
}

func newStartupSummary(cfg *config.Config, providerName string, aliasCount int) *StartupSummary {
	s := &StartupSummary{
		Env:        cfg.App.Env,
		HTTPAddr:   cfg.App.HTTPAddr,
		Provider:   providerName,
		CacheStack: fmt.Sprintf("%s (ttl=%s)", cfg.Cache.Backend, cfg.Cache.TTL()),
		Model:      cfg.Reasoning.Model,
		OrderEnv:   cfg.Orders.Environment,
		OrderDB:    cfg.Orders.DBPath,
		TraceDB:    cfg.Trace.DBPath,
		AliasCount: aliasCount,
		Refresh:    cfg.Watchlist.Refresh,
		Telegram:   cfg.Notify.Telegram.Enabled,
	}
	if cfg.Watchlist.Enabled {
		s.Watchlist = cfg.Watchlist.Symbols
	}
	return s
}

func (s *StartupSummary) Print() {
	if s == nil {
		return
	}
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("  tradewind 启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 72))

	fmt.Println("[运行环境 (RUNTIME)]")
	fmt.Printf("  环境: %s\n", s.Env)
	fmt.Printf("  监听: %s\n", s.HTTPAddr)
	fmt.Println()

	fmt.Println("[行情 (MARKET DATA)]")
	fmt.Printf("  数据源: %s\n", s.Provider)
	fmt.Printf("  缓存: %s\n", s.CacheStack)
	if len(s.Watchlist) > 0 {
		fmt.Printf("  预热列表: %s (每 %s)\n", formatList(s.Watchlist), s.Refresh)
	} else {
		fmt.Println("  预热列表: (未启用)")
	}
	fmt.Printf("  别名表: %d 条\n", s.AliasCount)
	fmt.Println()

	fmt.Println("[推理与订单 (REASONING & ORDERS)]")
	fmt.Printf("  模型: %s\n", s.Model)
	fmt.Printf("  订单环境: %s\n", s.OrderEnv)
	fmt.Printf("  订单库: %s\n", s.OrderDB)
	fmt.Printf("  审计库: %s\n", s.TraceDB)
	fmt.Printf("  Telegram 通知: %v\n", s.Telegram)
	fmt.Println(strings.Repeat("=", 72))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
