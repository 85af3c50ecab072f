// Package budget guards calls to the model-assisted classifier with a per-run
// cost ceiling and a consecutive-failure circuit breaker.
package budget

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

type Config struct {
	// CostCeiling is the per-run budget in cost units. Zero means unlimited.
	CostCeiling      int
	FailureThreshold int
	// CoolDown is how long the breaker stays open. Zero means one minute.
	CoolDown time.Duration
}

// Snapshot is a point-in-time copy of the guard counters.
type Snapshot struct {
	State        State
	CostUsed     int
	Calls        int
	Failures     int
	Denied       int
	BudgetDenied int
	Exhausted    bool
}

// Guard is created once per run and shared by every classification in it.
//
// The ceiling is checked when a call is granted and charged when it finishes,
// so calls already in flight may overshoot it by at most their combined cost.
// With sequential classification that is a single call.
type Guard struct {
	breaker *gobreaker.TwoStepCircuitBreaker

	mu         sync.Mutex
	ceiling    int
	used       int
	calls      int
	failures   int
	denied     int
	budgetDeny int
}

func NewGuard(cfg Config) *Guard {
	threshold := uint32(max(cfg.FailureThreshold, 1))
	return &Guard{
		ceiling: cfg.CostCeiling,
		breaker: gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
			Name:        "classifier",
			MaxRequests: 1,
			Timeout:     cfg.CoolDown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
	}
}

// Allow reserves one model call. Once the budget is exhausted it refuses for
// the rest of the run. While the breaker is open it refuses until the
// cool-down elapses; then exactly one trial is granted until it finishes.
//
// done must be called with the outcome and cost of the granted call. Calls
// after the first are ignored, and so is the outcome of a call granted before
// the breaker last changed state.
func (g *Guard) Allow() (done func(success bool, cost int), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.exhausted() {
		g.budgetDeny++
		return nil, false
	}

	report, err := g.breaker.Allow()
	if err != nil {
		g.denied++
		return nil, false
	}

	var once sync.Once
	return func(success bool, cost int) {
		once.Do(func() {
			report(success)
			g.record(success, cost)
		})
	}, true
}

func (g *Guard) Snapshot() Snapshot {
	state := fromBreaker(g.breaker.State())

	g.mu.Lock()
	defer g.mu.Unlock()

	return Snapshot{
		State:        state,
		CostUsed:     g.used,
		Calls:        g.calls,
		Failures:     g.failures,
		Denied:       g.denied,
		BudgetDenied: g.budgetDeny,
		Exhausted:    g.exhausted(),
	}
}

func (g *Guard) record(success bool, cost int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls++
	if cost > 0 {
		g.used += cost
	}
	if !success {
		g.failures++
	}
}

func (g *Guard) exhausted() bool {
	return g.ceiling > 0 && g.used >= g.ceiling
}

func fromBreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
