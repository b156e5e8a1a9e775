// Package gormstore 用 Gorm + SQLite 持久化订单,
// 状态流转走条件 UPDATE 保证 CAS 语义跨进程成立。
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradewind/internal/order"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OrderStore 实现 order.Store。
type OrderStore struct {
	db *gorm.DB
}

func New(path string) (*OrderStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("order store: 数据库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&orderModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL:留一点并发给 HTTP 读,写锁竞争保持最小。
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &OrderStore{db: db}, nil
}

func (s *OrderStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ order.Store = (*OrderStore)(nil)

func (s *OrderStore) Insert(ctx context.Context, o *order.Order) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("order store 未初始化")
	}
	if o == nil || strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("order id is required")
	}
	m := newOrderModel(o)
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("order store 未初始化")
	}
	var m orderModel
	if err := s.db.WithContext(ctx).Where("order_id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}
	return modelToOrder(m), nil
}

func (s *OrderStore) GetByRunID(ctx context.Context, runID string) (*order.Order, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("order store 未初始化")
	}
	var m orderModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}
	return modelToOrder(m), nil
}

func (s *OrderStore) List(ctx context.Context, f order.ListFilter) ([]*order.Order, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("order store 未初始化")
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := s.db.WithContext(ctx).Model(&orderModel{})
	if owner := strings.TrimSpace(f.OwnerID); owner != "" {
		query = query.Where("owner_id = ?", owner)
	}
	if f.Status != "" {
		query = query.Where("status = ?", string(f.Status))
	}
	var models []orderModel
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*order.Order, 0, len(models))
	for _, m := range models {
		out = append(out, modelToOrder(m))
	}
	return out, nil
}

// Transition 在事务里先读后写:真实状态对不上 from 时直接返回
// 非法流转;条件 UPDATE 命中 0 行说明并发抢先,同样回读报错。
func (s *OrderStore) Transition(ctx context.Context, id string, from, to order.Status, mutate func(*order.Order)) (*order.Order, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("order store 未初始化")
	}
	var out *order.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m orderModel
		if err := tx.Where("order_id = ?", id).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return order.ErrNotFound
			}
			return err
		}
		cur := modelToOrder(m)
		if cur.Status != from {
			return &order.InvalidTransitionError{OrderID: id, From: cur.Status, To: to}
		}
		next := cur.Clone()
		if mutate != nil {
			mutate(next)
		}
		next.Status = to
		next.UpdatedAt = time.Now()

		res := tx.Model(&orderModel{}).
			Where("order_id = ? AND status = ?", id, string(from)).
			Updates(transitionAssignments(next))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var again orderModel
			if err := tx.Where("order_id = ?", id).First(&again).Error; err != nil {
				return order.ErrNotFound
			}
			return &order.InvalidTransitionError{OrderID: id, From: order.Status(again.Status), To: to}
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// 流转只改审批/执行元数据,提案字段在 Insert 后冻结。
func transitionAssignments(o *order.Order) map[string]interface{} {
	return map[string]interface{}{
		"status":        string(o.Status),
		"approved_by":   o.ApprovedBy,
		"approved_at":   timeToMillis(o.ApprovedAt),
		"reject_reason": o.RejectReason,
		"broker_ref":    o.BrokerRef,
		"fill_price":    o.FillPrice,
		"filled_at":     timeToMillis(o.FilledAt),
		"fail_reason":   o.FailReason,
		"updated_at":    o.UpdatedAt.UnixMilli(),
	}
}

type orderModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	OrderID       string         `gorm:"column:order_id;uniqueIndex"`
	RunID         string         `gorm:"column:run_id;uniqueIndex"`
	OwnerID       string         `gorm:"column:owner_id;index"`
	Symbol        string         `gorm:"column:symbol;index"`
	Action        string         `gorm:"column:action"`
	OrderType     string         `gorm:"column:order_type"`
	Environment   string         `gorm:"column:environment"`
	Quantity      int            `gorm:"column:quantity"`
	EntryPrice    float64        `gorm:"column:entry_price"`
	StopLoss      float64        `gorm:"column:stop_loss"`
	TargetPrice   float64        `gorm:"column:target_price"`
	Confidence    float64        `gorm:"column:confidence"`
	Reasoning     string         `gorm:"column:reasoning"`
	HoldingWindow string         `gorm:"column:holding_window"`
	ProposalJSON  datatypes.JSON `gorm:"column:proposal_json"`
	Status        string         `gorm:"column:status;index"`
	ApprovedBy    string         `gorm:"column:approved_by"`
	ApprovedAtMS  int64          `gorm:"column:approved_at"`
	RejectReason  string         `gorm:"column:reject_reason"`
	BrokerRef     string         `gorm:"column:broker_ref"`
	FillPrice     float64        `gorm:"column:fill_price"`
	FilledAtMS    int64          `gorm:"column:filled_at"`
	FailReason    string         `gorm:"column:fail_reason"`
	CreatedAtMS   int64          `gorm:"column:created_at;index"`
	UpdatedAtMS   int64          `gorm:"column:updated_at"`
}

func (orderModel) TableName() string { return "orders" }

func newOrderModel(o *order.Order) orderModel {
	// 提案原文留档,排查时整列可读。
	blob, _ := json.Marshal(map[string]interface{}{
		"action":         o.Action,
		"symbol":         o.Symbol,
		"quantity":       o.Quantity,
		"entry_price":    o.EntryPrice,
		"stop_loss":      o.StopLoss,
		"target_price":   o.TargetPrice,
		"confidence":     o.Confidence,
		"holding_window": o.HoldingWindow,
	})
	return orderModel{
		OrderID:       o.ID,
		RunID:         o.RunID,
		OwnerID:       o.OwnerID,
		Symbol:        strings.ToUpper(strings.TrimSpace(o.Symbol)),
		Action:        o.Action,
		OrderType:     o.OrderType,
		Environment:   o.Environment,
		Quantity:      o.Quantity,
		EntryPrice:    o.EntryPrice,
		StopLoss:      o.StopLoss,
		TargetPrice:   o.TargetPrice,
		Confidence:    o.Confidence,
		Reasoning:     o.Reasoning,
		HoldingWindow: o.HoldingWindow,
		ProposalJSON:  datatypes.JSON(blob),
		Status:        string(o.Status),
		ApprovedBy:    o.ApprovedBy,
		ApprovedAtMS:  timeToMillis(o.ApprovedAt),
		RejectReason:  o.RejectReason,
		BrokerRef:     o.BrokerRef,
		FillPrice:     o.FillPrice,
		FilledAtMS:    timeToMillis(o.FilledAt),
		FailReason:    o.FailReason,
		CreatedAtMS:   o.CreatedAt.UnixMilli(),
		UpdatedAtMS:   o.UpdatedAt.UnixMilli(),
	}
}

func modelToOrder(m orderModel) *order.Order {
	o := &order.Order{
		ID:            m.OrderID,
		RunID:         m.RunID,
		OwnerID:       m.OwnerID,
		Symbol:        m.Symbol,
		Action:        m.Action,
		OrderType:     m.OrderType,
		Environment:   m.Environment,
		Quantity:      m.Quantity,
		EntryPrice:    m.EntryPrice,
		StopLoss:      m.StopLoss,
		TargetPrice:   m.TargetPrice,
		Confidence:    m.Confidence,
		Reasoning:     m.Reasoning,
		HoldingWindow: m.HoldingWindow,
		Status:        order.Status(m.Status),
		ApprovedBy:    m.ApprovedBy,
		RejectReason:  m.RejectReason,
		BrokerRef:     m.BrokerRef,
		FillPrice:     m.FillPrice,
		FailReason:    m.FailReason,
		CreatedAt:     millisToTime(m.CreatedAtMS),
		UpdatedAt:     millisToTime(m.UpdatedAtMS),
	}
	if m.ApprovedAtMS > 0 {
		ts := millisToTime(m.ApprovedAtMS)
		o.ApprovedAt = &ts
	}
	if m.FilledAtMS > 0 {
		ts := millisToTime(m.FilledAtMS)
		o.FilledAt = &ts
	}
	return o
}

func timeToMillis(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisToTime(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}
