package notifier

import (
	"strings"
	"time"
)

const maxMessageLen = 3800

// Message 统一推送格式:标题、键值段落、时间戳。
type Message struct {
	Icon      string
	Title     string
	Lines     []string
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown 生成 Telegram Markdown 文本,超长自动截断。
func (m Message) RenderMarkdown() string {
	var b strings.Builder
	header := strings.TrimSpace(m.Icon + " " + m.Title)
	if header != "" {
		b.WriteString(header + "\n\n")
	}

	lines := make([]string, 0, len(m.Lines))
	for _, line := range m.Lines {
		if text := strings.TrimSpace(line); text != "" {
			lines = append(lines, sanitize(text))
		}
	}
	if len(lines) > 0 {
		b.WriteString("```\n")
		for _, line := range lines {
			b.WriteString("- " + line + "\n")
		}
		b.WriteString("```\n\n")
	}

	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer) + "\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}

	body := strings.TrimSpace(b.String())
	if len(body) > maxMessageLen {
		body = body[:maxMessageLen] + "..."
	}
	return body
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
