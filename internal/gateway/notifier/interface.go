package notifier

// TextNotifier 最小文本通知接口,上层组件依赖它而不是具体渠道。
type TextNotifier interface {
	SendText(text string) error
}

// Noop 未配置通知渠道时的空实现。
type Noop struct{}

func (Noop) SendText(string) error { return nil }

var _ TextNotifier = Noop{}
