package config

import (
	"fmt"
	"strings"

	"tradewind/internal/scheduler"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(c.App); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.Reasoning.validate(c.App); err != nil {
		return err
	}
	if err := c.Orders.validate(); err != nil {
		return err
	}
	if err := c.Watchlist.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (a AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.Env)) {
	case "dev", "development", "staging", "production", "prod":
		return nil
	default:
		return fmt.Errorf("app.env must be one of dev/development/staging/production, got %q", a.Env)
	}
}

func (m MarketConfig) validate(app AppConfig) error {
	switch m.Provider {
	case "yahoo", "binance":
	case "alphavantage":
		if strings.TrimSpace(m.AlphaVantageKey) == "" {
			return fmt.Errorf("market.provider=alphavantage requires alpha_vantage_key (or ALPHAVANTAGE_API_KEY)")
		}
	case "synthetic":
		// 合成数据仅限演示/测试，严禁出现在生产配置里
		if app.IsProduction() {
			return fmt.Errorf("market.provider=synthetic is not allowed when app.env=production")
		}
	default:
		return fmt.Errorf("market.provider must be one of yahoo/alphavantage/binance/synthetic, got %q", m.Provider)
	}
	if m.HistoryDays < 30 {
		return fmt.Errorf("market.history_days must be >= 30, got %d", m.HistoryDays)
	}
	return nil
}

func (c CacheConfig) validate() error {
	switch c.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("cache.backend=redis requires redis_addr")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Backend)
	}
	if c.TTLMinutes <= 0 {
		return fmt.Errorf("cache.ttl_minutes must be > 0")
	}
	return nil
}

func (r ReasoningConfig) validate(app AppConfig) error {
	if strings.TrimSpace(r.BaseURL) == "" {
		return fmt.Errorf("reasoning.base_url cannot be empty")
	}
	if strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("reasoning.model cannot be empty")
	}
	// 本地推理服务可以无 key，生产必须有
	if app.IsProduction() && strings.TrimSpace(r.APIKey) == "" {
		return fmt.Errorf("reasoning.api_key required in production (or set OPENAI_API_KEY)")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("reasoning.temperature must be in [0,2]")
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("reasoning.max_retries cannot be negative")
	}
	return nil
}

func (o OrdersConfig) validate() error {
	switch o.Environment {
	case "paper", "live":
	default:
		return fmt.Errorf("orders.environment must be paper or live, got %q", o.Environment)
	}
	if strings.TrimSpace(o.DBPath) == "" {
		return fmt.Errorf("orders.db_path cannot be empty")
	}
	return nil
}

func (w WatchlistConfig) validate() error {
	if !w.Enabled {
		return nil
	}
	if len(w.Symbols) == 0 {
		return fmt.Errorf("watchlist.enabled requires at least one symbol")
	}
	if _, ok := scheduler.ParseInterval(w.Refresh); !ok {
		return fmt.Errorf("watchlist.refresh is not a valid interval: %q", w.Refresh)
	}
	return nil
}

func (n NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}
