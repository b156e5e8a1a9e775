// Package order 管理交易提案审批后的订单生命周期。
// 状态机固定:proposed → approved → submitted → filled,
// proposed 可被驳回,所有非终态可取消或标记失败。
package order

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusProposed  Status = "proposed"
	StatusApproved  Status = "approved"
	StatusSubmitted Status = "submitted"
	StatusFilled    Status = "filled"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrDuplicateRun = errors.New("run already converted to an order")
)

// transitions 是唯一的流转权威表,终态不出现在 key 的后继里。
var transitions = map[Status][]Status{
	StatusProposed:  {StatusApproved, StatusRejected, StatusCancelled, StatusFailed},
	StatusApproved:  {StatusSubmitted, StatusCancelled, StatusFailed},
	StatusSubmitted: {StatusFilled, StatusCancelled, StatusFailed},
	StatusFilled:    nil,
	StatusRejected:  nil,
	StatusCancelled: nil,
	StatusFailed:    nil,
}

// Known 是否为合法状态值。
func (s Status) Known() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal 终态订单不再流转。
func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransition 查表判断 from → to 是否合法。
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError 非法流转,携带当时的真实状态,
// 绝不静默吞掉。
type InvalidTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot transition %s -> %s", e.OrderID, e.From, e.To)
}

// TypeMarket 目前唯一支持的订单类型,限价单等 broker 能力
// 接入后再扩展。
const TypeMarket = "market"

// Order 一笔从提案转化而来的订单。价格字段在创建时从
// run 的提案冻结,后续只追加审批/执行元数据。
type Order struct {
	ID            string     `json:"order_id"`
	RunID         string     `json:"run_id"`
	OwnerID       string     `json:"owner_id"`
	Symbol        string     `json:"symbol"`
	Action        string     `json:"action"`
	OrderType     string     `json:"order_type"`
	Environment   string     `json:"environment"`
	Quantity      int        `json:"quantity"`
	EntryPrice    float64    `json:"entry_price"`
	StopLoss      float64    `json:"stop_loss"`
	TargetPrice   float64    `json:"target_price"`
	Confidence    float64    `json:"confidence"`
	Reasoning     string     `json:"reasoning,omitempty"`
	HoldingWindow string     `json:"holding_window"`
	Status        Status     `json:"status"`
	ApprovedBy    string     `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	RejectReason  string     `json:"reject_reason,omitempty"`
	BrokerRef     string     `json:"broker_ref,omitempty"`
	FillPrice     float64    `json:"fill_price,omitempty"`
	FilledAt      *time.Time `json:"filled_at,omitempty"`
	FailReason    string     `json:"fail_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Clone 深拷贝,存储层进出都用副本,杜绝外部改写内部状态。
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.ApprovedAt != nil {
		t := *o.ApprovedAt
		c.ApprovedAt = &t
	}
	if o.FilledAt != nil {
		t := *o.FilledAt
		c.FilledAt = &t
	}
	return &c
}
