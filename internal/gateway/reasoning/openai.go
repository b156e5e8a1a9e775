// Package reasoning 封装 OpenAI 兼容的聊天补全接口
// (/v1/chat/completions),DeepSeek/Qwen 等同协议服务直接换 BaseURL。
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradewind/internal/logger"
)

type OpenAIChatClient struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	// MaxRetries 针对 429/5xx 的有限重试次数,0 即单次调用不重试。
	MaxRetries   int
	ExtraHeaders map[string]string

	httpc *http.Client
}

func NewOpenAIChatClient(baseURL, apiKey, model string, timeout time.Duration, temperature float64, maxRetries int) *OpenAIChatClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIChatClient{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       model,
		Timeout:     timeout,
		Temperature: temperature,
		MaxRetries:  maxRetries,
		httpc:       &http.Client{Timeout: timeout},
	}
}

func (c *OpenAIChatClient) ModelName() string { return c.Model }

// Call 发送 system+user 两条消息并返回首个 choice 的文本。
// 仅对 429/5xx 做带退避的重试,其余错误立即上抛。
func (c *OpenAIChatClient) Call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	url := c.endpoint()

	messages := make([]map[string]string, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})

	body := map[string]any{"model": c.Model, "messages": messages, "temperature": c.Temperature}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpc := c.httpc
	if httpc == nil {
		httpc = &http.Client{Timeout: c.Timeout}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt == 0 {
			logger.Debugf("[推理] POST %s model=%s auth=%s body_bytes=%d", url, c.Model, c.maskedKey(), len(b))
			logger.LogReasoningPayload(c.Model, string(b))
		}

		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if rerr != nil {
			return "", rerr
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}

		resp, derr := httpc.Do(req)
		if derr != nil {
			return "", derr
		}

		if resp.StatusCode/100 == 2 {
			out, perr := decodeChatReply(resp)
			if perr != nil {
				return "", perr
			}
			return out, nil
		}

		msg := decodeAPIError(resp)
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryableStatus(resp.StatusCode) || attempt >= maxRetries {
			break
		}
		wait := retryAfter(resp, attempt)
		logger.Warnf("[推理] status=%d, %s 后重试 (attempt %d/%d)", resp.StatusCode, wait, attempt+1, maxRetries)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

// endpoint 规范化 BaseURL,配置里多写或少写 /chat/completions 都兼容。
func (c *OpenAIChatClient) endpoint() string {
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func (c *OpenAIChatClient) maskedKey() string {
	if c.APIKey == "" {
		return "none"
	}
	tail := c.APIKey
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return "****" + tail
}

func decodeChatReply(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return r.Choices[0].Message.Content, nil
}

func decodeAPIError(resp *http.Response) string {
	defer resp.Body.Close()
	var eresp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&eresp)
	if msg := strings.TrimSpace(eresp.Error.Message); msg != "" {
		return msg
	}
	return resp.Status
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter 优先使用响应头,否则 0.8s 起步指数退避,封顶 8s。
func retryAfter(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	wait := 800 * time.Millisecond << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}
