package circuit

import (
	"sync"
	"time"

	"tradewind/internal/logger"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker guards a flaky upstream: consecutive failures trip it open,
// a cooldown later one probe call is let through.
type Breaker struct {
	mu          sync.Mutex
	name        string
	threshold   int
	cooldown    time.Duration
	state       State
	failures    int
	lastFailure time.Time

	now    func() time.Time
	onOpen func(name string)
}

func New(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Minute
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		state:     Closed,
		now:       time.Now,
	}
}

// OnOpen registers a hook fired whenever the breaker trips open.
func (b *Breaker) OnOpen(fn func(name string)) {
	b.mu.Lock()
	b.onOpen = fn
	b.mu.Unlock()
}

func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.lastFailure) > b.cooldown {
			b.shift(HalfOpen)
			return true
		}
		return false
	default: // HalfOpen: probe in flight, let callers through
		return true
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.shift(Closed)
	}
	b.failures = 0
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.now()
	switch b.state {
	case Closed:
		if b.failures >= b.threshold {
			b.shift(Open)
		}
	case HalfOpen:
		b.shift(Open)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) shift(to State) {
	from := b.state
	b.state = to
	logger.Warnf("circuit %s: %s -> %s (failures=%d/%d cooldown=%s)",
		b.name, from, to, b.failures, b.threshold, b.cooldown)
	if to == Open && b.onOpen != nil {
		go b.onOpen(b.name)
	}
}
