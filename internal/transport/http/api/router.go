// Package apihttp 暴露决策流水线与订单审批的 REST 接口。
package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tradewind/internal/agent"
	"tradewind/internal/logger"
	"tradewind/internal/order"

	"github.com/gin-gonic/gin"
)

// AgentRunner 由 agent.Orchestrator 实现。
type AgentRunner interface {
	RunPipeline(ctx context.Context, req agent.Request) (*agent.Run, error)
}

// OrderService 由 order.Service 实现。
type OrderService interface {
	CreateFromRun(ctx context.Context, runID string) (*order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context, f order.ListFilter) ([]*order.Order, error)
	Approve(ctx context.Context, id, approver string) (*order.Order, error)
	Reject(ctx context.Context, id, reason string) (*order.Order, error)
	Cancel(ctx context.Context, id string) (*order.Order, error)
	MarkSubmitted(ctx context.Context, id, brokerRef string) (*order.Order, error)
	MarkFilled(ctx context.Context, id string, fillPrice float64) (*order.Order, error)
	MarkFailed(ctx context.Context, id, reason string) (*order.Order, error)
}

type Router struct {
	Agent  AgentRunner
	Orders OrderService
	Traces agent.TraceRecorder
}

func NewRouter(runner AgentRunner, orders OrderService, traces agent.TraceRecorder) *Router {
	return &Router{Agent: runner, Orders: orders, Traces: traces}
}

// Register 把 /api/v1 的全部路由挂到给定分组。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/agent/runs", r.handleCreateRun)
	group.GET("/agent/runs", r.handleListRuns)
	group.GET("/agent/runs/:id", r.handleGetRun)

	group.POST("/orders", r.handleCreateOrder)
	group.GET("/orders", r.handleListOrders)
	group.GET("/orders/:id", r.handleGetOrder)
	group.POST("/orders/:id/approve", r.handleApprove)
	group.POST("/orders/:id/reject", r.handleReject)
	group.POST("/orders/:id/cancel", r.handleCancel)

	group.POST("/broker/events", r.handleBrokerEvent)
}

func (r *Router) handleCreateRun(c *gin.Context) {
	var req agent.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	run, err := r.Agent.RunPipeline(c.Request.Context(), req)
	if err != nil {
		// 只有 owner/intent 本身非法才走到这里,流水线内部失败都在 run 里。
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (r *Router) handleGetRun(c *gin.Context) {
	run, err := r.Traces.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, agent.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		logger.Errorf("[api] 查询 run 失败 ip=%s id=%s err=%v", c.ClientIP(), c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (r *Router) handleListRuns(c *gin.Context) {
	owner := strings.TrimSpace(c.Query("owner_id"))
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := r.Traces.ListByOwner(c.Request.Context(), owner, limit)
	if err != nil {
		logger.Errorf("[api] 查询 run 列表失败 ip=%s owner=%s err=%v", c.ClientIP(), owner, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (r *Router) handleCreateOrder(c *gin.Context) {
	var req struct {
		RunID string `json:"run_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	o, err := r.Orders.CreateFromRun(c.Request.Context(), req.RunID)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (r *Router) handleGetOrder(c *gin.Context) {
	o, err := r.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		logger.Errorf("[api] 查询订单失败 ip=%s id=%s err=%v", c.ClientIP(), c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (r *Router) handleListOrders(c *gin.Context) {
	f := order.ListFilter{OwnerID: strings.TrimSpace(c.Query("owner_id"))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		st := order.Status(strings.ToLower(raw))
		if !st.Known() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + raw})
			return
		}
		f.Status = st
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	orders, err := r.Orders.List(c.Request.Context(), f)
	if err != nil {
		logger.Errorf("[api] 查询订单列表失败 ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (r *Router) handleApprove(c *gin.Context) {
	var req struct {
		Approver string `json:"approver"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	o, err := r.Orders.Approve(c.Request.Context(), c.Param("id"), req.Approver)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (r *Router) handleReject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	o, err := r.Orders.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (r *Router) handleCancel(c *gin.Context) {
	o, err := r.Orders.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// handleBrokerEvent 接收券商执行回报,推动订单进入
// submitted / filled / failed。
func (r *Router) handleBrokerEvent(c *gin.Context) {
	var req struct {
		OrderID   string  `json:"order_id"`
		Event     string  `json:"event"`
		BrokerRef string  `json:"broker_ref"`
		FillPrice float64 `json:"fill_price"`
		Reason    string  `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	var (
		o   *order.Order
		err error
	)
	switch strings.ToLower(strings.TrimSpace(req.Event)) {
	case "submitted":
		o, err = r.Orders.MarkSubmitted(ctx, req.OrderID, req.BrokerRef)
	case "filled":
		o, err = r.Orders.MarkFilled(ctx, req.OrderID, req.FillPrice)
	case "failed":
		o, err = r.Orders.MarkFailed(ctx, req.OrderID, req.Reason)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown broker event: " + req.Event})
		return
	}
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// writeOrderError 统一映射订单域错误:缺失 404、重复/非法流转 409、
// 其余按参数问题一律 400。
func writeOrderError(c *gin.Context, err error) {
	var ite *order.InvalidTransitionError
	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, agent.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrDuplicateRun):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &ite):
		c.JSON(http.StatusConflict, gin.H{
			"error": ite.Error(),
			"from":  ite.From,
			"to":    ite.To,
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
