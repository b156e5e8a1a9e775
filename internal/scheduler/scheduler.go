package scheduler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"tradewind/internal/logger"
)

// ParseInterval parses "30s", "15m", "1h", "1d" into a time.Duration.
// Returns (0, false) on invalid input.
func ParseInterval(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return 0, false
	}
	unit := interval[len(interval)-1]
	numStr := strings.TrimSpace(interval[:len(interval)-1])
	if numStr == "" {
		return 0, false
	}
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, true
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Loop 按固定周期运行任务，首次触发对齐到整周期边界。
type Loop struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	nowFn func() time.Time
}

func NewLoop(name string, interval time.Duration) *Loop {
	return &Loop{Name: name, Interval: interval, nowFn: time.Now}
}

// Run blocks until ctx is done, invoking task once per interval.
// Always returns nil so errgroup shutdown stays clean.
func (l *Loop) Run(ctx context.Context, task func(ctx context.Context)) error {
	if l == nil || task == nil {
		return nil
	}
	if l.Interval <= 0 {
		logger.Warnf("scheduler[%s]: invalid interval=%s, exit", l.Name, l.Interval)
		return nil
	}
	if l.nowFn == nil {
		l.nowFn = time.Now
	}

	logger.Infof("scheduler[%s]: started interval=%s run_immediately=%v", l.Name, l.Interval, l.RunImmediately)
	if l.RunImmediately {
		task(ctx)
	}

	now := l.nowFn().UTC()
	next := now.Truncate(l.Interval).Add(l.Interval)
	for {
		if !waitUntil(ctx, l.nowFn, next) {
			logger.Infof("scheduler[%s]: ctx done, exit", l.Name)
			return nil
		}
		task(ctx)
		next = nextAfter(next, l.Interval, l.nowFn().UTC())
	}
}

func waitUntil(ctx context.Context, nowFn func() time.Time, target time.Time) bool {
	wait := target.Sub(nowFn().UTC())
	if wait <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextAfter 返回 anchor + k*interval 中第一个晚于 now 的时刻，长任务跑过点位时自动跳过。
func nextAfter(anchor time.Time, interval time.Duration, now time.Time) time.Time {
	if interval <= 0 {
		return now
	}
	delta := now.Sub(anchor)
	if delta < 0 {
		return anchor
	}
	k := delta / interval
	return anchor.Add((k + 1) * interval)
}
