package config

import (
	"strings"
	"time"
)

// Config 是 tradewind 服务的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	Market    MarketConfig    `toml:"market"`
	Cache     CacheConfig     `toml:"cache"`
	Reasoning ReasoningConfig `toml:"reasoning"`
	Orders    OrdersConfig    `toml:"orders"`
	Trace     TraceConfig     `toml:"trace"`
	Watchlist WatchlistConfig `toml:"watchlist"`
	Symbols   SymbolsConfig   `toml:"symbols"`
	Notify    NotifyConfig    `toml:"notify"`
}

type AppConfig struct {
	Env            string `toml:"env"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	HTTPAddr       string `toml:"http_addr"`
	LogPath        string `toml:"log_path"`
	TranscriptPath string `toml:"transcript_path"`
	DumpPayload    bool   `toml:"dump_payload"`
}

// IsProduction 判断是否运行在生产环境。
func (a AppConfig) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(a.Env)) {
	case "production", "prod":
		return true
	default:
		return false
	}
}

type MarketConfig struct {
	Provider            string `toml:"provider"` // yahoo | alphavantage | binance | synthetic
	QuoteTimeoutSeconds int    `toml:"quote_timeout_seconds"`
	HistoryDays         int    `toml:"history_days"`
	AlphaVantageKey     string `toml:"alpha_vantage_key"`
	BinanceBaseURL      string `toml:"binance_base_url"`
}

func (m MarketConfig) QuoteTimeout() time.Duration {
	return time.Duration(m.QuoteTimeoutSeconds) * time.Second
}

type CacheConfig struct {
	Backend       string `toml:"backend"` // memory | redis
	TTLMinutes    int    `toml:"ttl_minutes"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

type ReasoningConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
	Temperature    float64 `toml:"temperature"`
}

func (r ReasoningConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

type OrdersConfig struct {
	DBPath          string `toml:"db_path"`
	Environment     string `toml:"environment"` // paper | live
	DefaultQuantity int    `toml:"default_quantity"`
}

type TraceConfig struct {
	DBPath string `toml:"db_path"`
}

type WatchlistConfig struct {
	Enabled bool     `toml:"enabled"`
	Symbols []string `toml:"symbols"`
	Refresh string   `toml:"refresh"` // e.g. "10m"
}

type SymbolsConfig struct {
	BookPath string `toml:"book_path"` // optional YAML alias book
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
