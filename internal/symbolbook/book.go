// Package symbolbook 负责从自由文本意图里识别股票代码:
// 先查公司名别名表(不区分大小写的子串匹配),再扫描 2-5 位
// 连续大写字母并剔除停用词。表是有界的,宁可识别失败也不猜测。
package symbolbook

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// builtinAliases 内置公司名到代码映射,键一律小写。
// 子串匹配意味着 meta/intel 这类词可能误命中,换取零配置可用。
var builtinAliases = map[string]string{
	"nvidia":      "NVDA",
	"apple":       "AAPL",
	"microsoft":   "MSFT",
	"tesla":       "TSLA",
	"alphabet":    "GOOGL",
	"google":      "GOOGL",
	"amazon":      "AMZN",
	"meta":        "META",
	"facebook":    "META",
	"netflix":     "NFLX",
	"intel":       "INTC",
	"broadcom":    "AVGO",
	"qualcomm":    "QCOM",
	"micron":      "MU",
	"oracle":      "ORCL",
	"salesforce":  "CRM",
	"palantir":    "PLTR",
	"coinbase":    "COIN",
	"paypal":      "PYPL",
	"uber":        "UBER",
	"airbnb":      "ABNB",
	"spotify":     "SPOT",
	"shopify":     "SHOP",
	"snowflake":   "SNOW",
	"datadog":     "DDOG",
	"cloudflare":  "NET",
	"crowdstrike": "CRWD",
	"robinhood":   "HOOD",
	"boeing":      "BA",
	"disney":      "DIS",
	"starbucks":   "SBUX",
	"walmart":     "WMT",
	"jpmorgan":    "JPM",
	"goldman":     "GS",
}

// builtinStopwords 长得像代码但不是代码的大写词。
var builtinStopwords = []string{
	// 常见英文短词
	"AN", "AS", "AT", "BE", "BY", "DO", "GO", "IF", "IN", "IS", "IT",
	"MY", "NO", "OF", "OK", "ON", "OR", "SO", "TO", "UP", "US", "WE",
	"ALL", "AND", "ANY", "ARE", "BUT", "CAN", "FOR", "GET", "HAS",
	"NEW", "NOT", "NOW", "OUT", "THE", "TOP", "WAS", "WHY", "YES", "YOU",
	"FROM", "JUST", "THAT", "THIS", "WHAT", "WHEN", "WILL", "WITH",
	"TODAY",
	// 交易指令词
	"BUY", "SELL", "HOLD", "LONG", "SHORT", "CALL", "PUT", "STOP",
	"STOCK", "TRADE", "PRICE", "SHARE", "DIP",
	// 财经缩写
	"AI", "ML", "PE", "PM", "AM", "API", "ATH", "CEO", "CFO", "CTO",
	"CPI", "DCA", "EPS", "ETF", "EUR", "FAQ", "FED", "GBP", "GDP",
	"IPO", "NYSE", "SEC", "USA", "USD", "YOY", "FOMO", "YOLO", "NEWS",
	"ASAP",
}

var tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// Book 别名表与停用词的并发安全容器,支持热更新整体替换。
type Book struct {
	mu        sync.RWMutex
	aliases   map[string]string
	ordered   []string // 按长度降序的别名键,保证匹配确定性
	stopwords map[string]struct{}
}

// Default 返回只含内置表的 Book。
func Default() *Book {
	b := &Book{}
	b.apply(Override{})
	return b
}

// Override 外部 YAML 提供的增量:别名可新增或覆盖,停用词只增。
type Override struct {
	Aliases   map[string]string `yaml:"aliases" json:"aliases,omitempty"`
	Stopwords []string          `yaml:"stopwords" json:"stopwords,omitempty"`
}

// apply 用内置表加 override 整体重建,reload 语义是替换不是累加。
func (b *Book) apply(o Override) {
	aliases := make(map[string]string, len(builtinAliases)+len(o.Aliases))
	for k, v := range builtinAliases {
		aliases[k] = v
	}
	for k, v := range o.Aliases {
		aliases[strings.ToLower(strings.TrimSpace(k))] = strings.ToUpper(strings.TrimSpace(v))
	}

	ordered := make([]string, 0, len(aliases))
	for k := range aliases {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})

	stopwords := make(map[string]struct{}, len(builtinStopwords)+len(o.Stopwords))
	for _, w := range builtinStopwords {
		stopwords[w] = struct{}{}
	}
	for _, w := range o.Stopwords {
		stopwords[strings.ToUpper(strings.TrimSpace(w))] = struct{}{}
	}

	b.mu.Lock()
	b.aliases = aliases
	b.ordered = ordered
	b.stopwords = stopwords
	b.mu.Unlock()
}

// Resolve 从意图文本解析股票代码。找不到返回 ("", false),
// 调用方负责翻译成业务错误。
func (b *Book) Resolve(intent string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lowered := strings.ToLower(intent)
	for _, alias := range b.ordered {
		if strings.Contains(lowered, alias) {
			return b.aliases[alias], true
		}
	}

	for _, tok := range tickerPattern.FindAllString(intent, -1) {
		if _, stop := b.stopwords[tok]; stop {
			continue
		}
		return tok, true
	}
	return "", false
}

// Size 返回别名条数,日志用。
func (b *Book) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.aliases)
}
