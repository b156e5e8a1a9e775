package agent

import "context"

// TraceRecorder 审计落盘。Append 在 run 创建时写入一条记录,
// Complete 在终态时整体回写;两者都必须幂等,trace 层失败
// 不允许影响 run 的业务结果。
type TraceRecorder interface {
	Append(ctx context.Context, run *Run) error
	Complete(ctx context.Context, run *Run) error
	Get(ctx context.Context, runID string) (*Run, error)
	// ListByOwner 按创建时间倒序返回某个 owner 的历史 run。
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Run, error)
}
