package config

import "strings"

// 默认值常量
const (
	defaultAppEnv         = "development"
	defaultAppLogLevel    = "info"
	defaultAppLogFormat   = "text"
	defaultAppHTTPAddr    = ":8090"
	defaultAppLogPath     = "logs/tradewind.log"
	defaultTranscriptPath = "logs/reasoning.log"

	defaultMarketProvider = "yahoo"
	defaultQuoteTimeout   = 10
	defaultHistoryDays    = 250

	defaultCacheBackend = "memory"
	defaultCacheTTLMin  = 15
	defaultRedisAddr    = "127.0.0.1:6379"

	defaultReasoningBaseURL = "https://api.openai.com/v1"
	defaultReasoningModel   = "gpt-4o-mini"
	defaultReasoningTimeout = 60
	defaultReasoningRetries = 2
	defaultTemperature      = 0.3

	defaultOrdersDBPath  = "data/tradewind.db"
	defaultOrdersEnv     = "paper"
	defaultOrderQuantity = 10

	defaultTraceDBPath = "data/trace.db"

	defaultWatchlistRefresh = "10m"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Cache.applyDefaults(keys)
	c.Reasoning.applyDefaults(keys)
	c.Orders.applyDefaults(keys)
	c.Trace.applyDefaults(keys)
	c.Watchlist.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.transcript_path", &a.TranscriptPath, defaultTranscriptPath),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.provider", &m.Provider, defaultMarketProvider),
		fieldDefault{
			key:   "market.quote_timeout_seconds",
			need:  func() bool { return m.QuoteTimeoutSeconds <= 0 },
			apply: func() { m.QuoteTimeoutSeconds = defaultQuoteTimeout },
		},
		fieldDefault{
			key:   "market.history_days",
			need:  func() bool { return m.HistoryDays <= 0 },
			apply: func() { m.HistoryDays = defaultHistoryDays },
		},
	)
	m.Provider = strings.ToLower(strings.TrimSpace(m.Provider))
}

func (c *CacheConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("cache.backend", &c.Backend, defaultCacheBackend),
		stringFieldDefault("cache.redis_addr", &c.RedisAddr, defaultRedisAddr),
		fieldDefault{
			key:   "cache.ttl_minutes",
			need:  func() bool { return c.TTLMinutes <= 0 },
			apply: func() { c.TTLMinutes = defaultCacheTTLMin },
		},
	)
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
}

func (r *ReasoningConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("reasoning.base_url", &r.BaseURL, defaultReasoningBaseURL),
		stringFieldDefault("reasoning.model", &r.Model, defaultReasoningModel),
		fieldDefault{
			key:   "reasoning.timeout_seconds",
			need:  func() bool { return r.TimeoutSeconds <= 0 },
			apply: func() { r.TimeoutSeconds = defaultReasoningTimeout },
		},
		fieldDefault{
			key:   "reasoning.max_retries",
			need:  func() bool { return r.MaxRetries <= 0 },
			apply: func() { r.MaxRetries = defaultReasoningRetries },
		},
		fieldDefault{
			key:   "reasoning.temperature",
			need:  func() bool { return r.Temperature <= 0 },
			apply: func() { r.Temperature = defaultTemperature },
		},
	)
}

func (o *OrdersConfig) applyDefaults(keys keySet) {
	if o == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("orders.db_path", &o.DBPath, defaultOrdersDBPath),
		stringFieldDefault("orders.environment", &o.Environment, defaultOrdersEnv),
		fieldDefault{
			key:   "orders.default_quantity",
			need:  func() bool { return o.DefaultQuantity <= 0 },
			apply: func() { o.DefaultQuantity = defaultOrderQuantity },
		},
	)
	o.Environment = strings.ToLower(strings.TrimSpace(o.Environment))
}

func (t *TraceConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("trace.db_path", &t.DBPath, defaultTraceDBPath),
	)
}

func (w *WatchlistConfig) applyDefaults(keys keySet) {
	if w == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("watchlist.refresh", &w.Refresh, defaultWatchlistRefresh),
	)
	out := w.Symbols[:0]
	for _, s := range w.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	w.Symbols = out
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
