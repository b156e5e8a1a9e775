package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradewind/internal/agent"
	"tradewind/internal/gateway/notifier"
	"tradewind/internal/logger"
	"tradewind/internal/metrics"
)

// Store 订单持久化抽象。Transition 必须是原子 CAS:
// 只有当前状态等于 from 时才写入,否则返回
// *InvalidTransitionError 并附带真实状态。
type Store interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// GetByRunID 无记录时返回 ErrNotFound。
	GetByRunID(ctx context.Context, runID string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]*Order, error)
	Transition(ctx context.Context, id string, from, to Status, mutate func(*Order)) (*Order, error)
}

// ListFilter 列表筛选,零值字段不过滤。
type ListFilter struct {
	OwnerID string
	Status  Status
	Limit   int
}

// Service 订单生命周期服务,在存储 CAS 之上做业务校验。
type Service struct {
	Store       Store
	Runs        agent.TraceRecorder
	Notifier    notifier.TextNotifier
	Metrics     *metrics.Metrics
	Environment string

	nowFn func() time.Time
}

type ServiceParams struct {
	Store       Store
	Runs        agent.TraceRecorder
	Notifier    notifier.TextNotifier
	Metrics     *metrics.Metrics
	Environment string
}

func NewService(p ServiceParams) *Service {
	if p.Notifier == nil {
		p.Notifier = notifier.Noop{}
	}
	if p.Environment == "" {
		p.Environment = "paper"
	}
	return &Service{
		Store:       p.Store,
		Runs:        p.Runs,
		Notifier:    p.Notifier,
		Metrics:     p.Metrics,
		Environment: p.Environment,
		nowFn:       time.Now,
	}
}

// CreateFromRun 把一次已完成 run 的提案固化为待审批订单。
// 只有 COMPLETED 且带提案的 run 可以转化,每个 run 至多一单。
func (s *Service) CreateFromRun(ctx context.Context, runID string) (*Order, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	run, err := s.Runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != agent.StatusCompleted {
		return nil, fmt.Errorf("run %s is %s, only completed runs convert to orders", runID, run.Status)
	}
	p := run.Proposal
	if p == nil {
		return nil, fmt.Errorf("run %s produced no trade proposal", runID)
	}
	if existing, err := s.Store.GetByRunID(ctx, runID); err == nil {
		return nil, fmt.Errorf("%w: run %s -> order %s", ErrDuplicateRun, runID, existing.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := s.nowFn()
	o := &Order{
		ID:            "ord-" + uuid.NewString(),
		RunID:         run.ID,
		OwnerID:       run.OwnerID,
		Symbol:        p.Symbol,
		Action:        p.Action,
		OrderType:     TypeMarket,
		Environment:   s.Environment,
		Quantity:      p.Quantity,
		EntryPrice:    p.EntryPrice,
		StopLoss:      p.StopLoss,
		TargetPrice:   p.TargetPrice,
		Confidence:    p.Confidence,
		HoldingWindow: p.HoldingWindow,
		Status:        StatusProposed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if run.Decision != nil {
		o.Reasoning = run.Decision.Rationale
	}
	if err := s.Store.Insert(ctx, o); err != nil {
		return nil, err
	}
	s.Metrics.ObserveOrderTransition(string(StatusProposed))
	logger.Infof("[订单] %s 创建 %s %s x%d @%.2f run=%s", o.ID, o.Action, o.Symbol, o.Quantity, o.EntryPrice, runID)
	return o, nil
}

// Approve 审批通过,审批人必填。
func (s *Service) Approve(ctx context.Context, id, approver string) (*Order, error) {
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return nil, fmt.Errorf("approver is required")
	}
	now := s.nowFn()
	o, err := s.transition(ctx, id, StatusProposed, StatusApproved, func(o *Order) {
		o.ApprovedBy = approver
		o.ApprovedAt = &now
	})
	if err != nil {
		return nil, err
	}
	s.notifyReview("✅", fmt.Sprintf("%s %s 审批通过", o.Action, o.Symbol), o, "审批人: "+approver)
	return o, nil
}

// Reject 驳回提案,理由必填。
func (s *Service) Reject(ctx context.Context, id, reason string) (*Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("rejection reason is required")
	}
	o, err := s.transition(ctx, id, StatusProposed, StatusRejected, func(o *Order) {
		o.RejectReason = reason
	})
	if err != nil {
		return nil, err
	}
	s.notifyReview("🚫", fmt.Sprintf("%s %s 提案被驳回", o.Action, o.Symbol), o, "理由: "+reason)
	return o, nil
}

// Cancel 从任意非终态取消。先读当前状态再 CAS,
// 并发下状态被抢先改掉时返回非法流转。
func (s *Service) Cancel(ctx context.Context, id string) (*Order, error) {
	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, StatusCancelled) {
		s.Metrics.ObserveInvalidTransition()
		return nil, &InvalidTransitionError{OrderID: id, From: cur.Status, To: StatusCancelled}
	}
	return s.transition(ctx, id, cur.Status, StatusCancelled, nil)
}

// MarkSubmitted 已提交给券商,回执号选填。
func (s *Service) MarkSubmitted(ctx context.Context, id, brokerRef string) (*Order, error) {
	brokerRef = strings.TrimSpace(brokerRef)
	return s.transition(ctx, id, StatusApproved, StatusSubmitted, func(o *Order) {
		o.BrokerRef = brokerRef
	})
}

// MarkFilled 成交回报。成交价缺省按委托价记。
func (s *Service) MarkFilled(ctx context.Context, id string, fillPrice float64) (*Order, error) {
	now := s.nowFn()
	return s.transition(ctx, id, StatusSubmitted, StatusFilled, func(o *Order) {
		if fillPrice > 0 {
			o.FillPrice = fillPrice
		} else {
			o.FillPrice = o.EntryPrice
		}
		o.FilledAt = &now
	})
}

// MarkFailed 执行失败,任意非终态可进入。
func (s *Service) MarkFailed(ctx context.Context, id, reason string) (*Order, error) {
	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, StatusFailed) {
		s.Metrics.ObserveInvalidTransition()
		return nil, &InvalidTransitionError{OrderID: id, From: cur.Status, To: StatusFailed}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "execution failed"
	}
	return s.transition(ctx, id, cur.Status, StatusFailed, func(o *Order) {
		o.FailReason = reason
	})
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Order, error) {
	return s.Store.List(ctx, f)
}

// notifyReview 推送审批结论,发送失败不影响订单状态,只记告警。
func (s *Service) notifyReview(icon, title string, o *Order, detail string) {
	msg := notifier.Message{
		Icon:  icon,
		Title: title,
		Lines: []string{
			fmt.Sprintf("数量: %d", o.Quantity),
			fmt.Sprintf("入场: %.2f", o.EntryPrice),
			detail,
			"订单: " + o.ID,
		},
		Timestamp: s.nowFn(),
	}
	if err := s.Notifier.SendText(msg.RenderMarkdown()); err != nil {
		logger.Warnf("[通知] 审批结果推送失败: %v", err)
	}
}

func (s *Service) transition(ctx context.Context, id string, from, to Status, mutate func(*Order)) (*Order, error) {
	o, err := s.Store.Transition(ctx, id, from, to, mutate)
	if err != nil {
		var ite *InvalidTransitionError
		if errors.As(err, &ite) {
			s.Metrics.ObserveInvalidTransition()
			logger.Warnf("[订单] %s 非法流转 %s -> %s", id, ite.From, ite.To)
		}
		return nil, err
	}
	s.Metrics.ObserveOrderTransition(string(to))
	logger.Infof("[订单] %s %s -> %s", id, from, to)
	return o, nil
}
