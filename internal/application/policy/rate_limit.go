package policy

import (
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/leadledger-go/internal/domain/operator"
	"github.com/AtRiskMedia/leadledger-go/pkg/config"
)

// adminLimitMultiplier loosens the command budget for admins, who run the
// heavier report commands back to back during a review.
const adminLimitMultiplier = 3

type windowCounter struct {
	window int64
	count  int
}

// RateLimitPolicy caps commands per operator in fixed windows. The counter
// keys on the window index, so a new window starts clean without a sweeper;
// stale entries are dropped whenever an operator's first request of a new
// window comes in.
type RateLimitPolicy struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	counters map[string]*windowCounter
}

// NewRateLimitPolicy creates the policy from the configured budget.
func NewRateLimitPolicy() *RateLimitPolicy {
	return &RateLimitPolicy{
		limit:    config.CommandRateLimit,
		window:   config.CommandRateWindow,
		counters: make(map[string]*windowCounter),
	}
}

// Name implements Policy.
func (p *RateLimitPolicy) Name() string { return "rate_limit" }

// Check implements Policy. A misconfigured zero budget fails open rather
// than locking every operator out.
func (p *RateLimitPolicy) Check(req Request) Decision {
	if p.limit <= 0 || p.window <= 0 {
		return Allow()
	}

	limit := p.limit
	if req.Role == operator.RoleAdmin {
		limit *= adminLimitMultiplier
	}

	window := req.At.UnixNano() / int64(p.window)
	key := req.VenueID + ":" + req.OperatorID

	p.mu.Lock()
	defer p.mu.Unlock()

	counter, ok := p.counters[key]
	if !ok || counter.window != window {
		p.counters[key] = &windowCounter{window: window, count: 1}
		return Allow()
	}

	if counter.count >= limit {
		windowEnd := time.Unix(0, (window+1)*int64(p.window))
		return Decision{
			Allowed:    false,
			Reason:     fmt.Sprintf("command budget of %d per %s exhausted", limit, p.window),
			RetryAfter: windowEnd.Sub(req.At),
		}
	}
	counter.count++
	return Allow()
}
