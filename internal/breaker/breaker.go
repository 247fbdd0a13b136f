// Package breaker implements per-domain circuit breaking for fetch admission.
//
// Each domain owns an independent state machine: CLOSED (normal), OPEN
// (fail-fast, no network attempt), and HALF_OPEN (limited probing after the
// recovery timeout). State is created lazily on first reference and never
// deleted; stale entries are cheap.
package breaker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketlens/harvest/internal/harvest"
	"github.com/marketlens/harvest/internal/metrics"
)

// State is the position of a domain's breaker in its lifecycle.
type State int

// Breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config controls breaker thresholds shared by every domain in a Registry.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long an open circuit rejects calls before probing.
	RecoveryTimeout time.Duration
	// HalfOpenMaxCalls bounds concurrent probes in half-open state and is the
	// number of consecutive probe successes required to close the circuit.
	HalfOpenMaxCalls int
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = 1
	}
	return c
}

// domainBreaker is the state machine for a single domain. All fields are
// guarded by mu so concurrent fetches to the same domain observe a single
// consistent admit decision.
type domainBreaker struct {
	mu sync.Mutex

	state             State
	failureCount      int
	lastFailure       time.Time
	halfOpenAdmitted  int
	halfOpenSuccesses int
}

// Registry owns one breaker per domain.
type Registry struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.RWMutex
	breakers map[string]*domainBreaker

	nowFunc func() time.Time
}

// NewRegistry builds a Registry with the given thresholds.
func NewRegistry(cfg Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:      cfg.withDefaults(),
		logger:   logger,
		breakers: make(map[string]*domainBreaker),
		nowFunc:  time.Now,
	}
}

func (r *Registry) get(domain string) *domainBreaker {
	r.mu.RLock()
	b, ok := r.breakers[domain]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.breakers[domain]; ok {
		return b
	}
	b = &domainBreaker{state: StateClosed}
	r.breakers[domain] = b
	return b
}

// Admit decides whether a fetch to domain may proceed. An open circuit whose
// recovery timeout has not elapsed returns a CircuitOpenError without
// touching the network; a rejected call is not recorded as a failure.
func (r *Registry) Admit(domain string) error {
	b := r.get(domain)
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if r.nowFunc().Sub(b.lastFailure) < r.cfg.RecoveryTimeout {
			return &harvest.CircuitOpenError{Domain: domain}
		}
		r.transition(domain, b, StateHalfOpen)
		b.halfOpenAdmitted = 1
		b.halfOpenSuccesses = 0
		return nil
	case StateHalfOpen:
		if b.halfOpenAdmitted >= r.cfg.HalfOpenMaxCalls {
			return &harvest.CircuitOpenError{Domain: domain}
		}
		b.halfOpenAdmitted++
		return nil
	default:
		return nil
	}
}

// RecordSuccess notes a successful fetch. In half-open state the circuit
// closes once HalfOpenMaxCalls consecutive probe successes accumulate; in
// closed state the failure count resets so isolated failures recover fast.
func (r *Registry) RecordSuccess(domain string) {
	b := r.get(domain)
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= r.cfg.HalfOpenMaxCalls {
			r.transition(domain, b, StateClosed)
			b.failureCount = 0
			b.halfOpenAdmitted = 0
			b.halfOpenSuccesses = 0
		}
	case StateClosed:
		b.failureCount = 0
	case StateOpen:
		// A success reported while open can only come from a call admitted
		// before the circuit tripped; the open state stands until probing.
	}
}

// RecordFailure notes a failed fetch and opens the circuit once the
// consecutive-failure threshold is reached. Any failure while half-open
// reopens the circuit immediately.
func (r *Registry) RecordFailure(domain string) {
	b := r.get(domain)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = r.nowFunc()

	switch b.state {
	case StateClosed:
		if b.failureCount >= r.cfg.FailureThreshold {
			r.transition(domain, b, StateOpen)
		}
	case StateHalfOpen:
		r.transition(domain, b, StateOpen)
		b.halfOpenAdmitted = 0
		b.halfOpenSuccesses = 0
	case StateOpen:
	}
}

// StateOf returns the current state for a domain, for observability.
func (r *Registry) StateOf(domain string) State {
	b := r.get(domain)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the consecutive-failure count for a domain.
func (r *Registry) FailureCount(domain string) int {
	b := r.get(domain)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// transition is called with b.mu held.
func (r *Registry) transition(domain string, b *domainBreaker, to State) {
	from := b.state
	b.state = to
	metrics.ObserveBreakerTransition(from.String(), to.String())
	r.logger.Info("circuit breaker state change",
		zap.String("domain", domain),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("failure_count", b.failureCount),
	)
}
