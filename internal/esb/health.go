package esb

import (
	"sync"
	"time"
)

// CircuitState is the health state of one ESB endpoint.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

const (
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit for an endpoint.
	FailureThreshold = 5
	// ResetTimeout is how long an open circuit stays open before a
	// half-open probe is allowed through.
	ResetTimeout = 30 * time.Second
)

// EndpointHealth tracks one transaction type's downstream endpoint, so a
// persistently failing ESB route is short-circuited locally instead of
// retried and timed out on every single request. Adapted from the
// teacher's per-region circuit breaker (router/health.go) onto a
// per-transaction-type ESB endpoint instead of a per-region gRPC target.
type EndpointHealth struct {
	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	lastStateChange     time.Time
}

func newEndpointHealth() *EndpointHealth {
	return &EndpointHealth{state: CircuitClosed, lastStateChange: time.Now()}
}

func (h *EndpointHealth) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures = 0
	if h.state == CircuitHalfOpen {
		h.state = CircuitClosed
		h.lastStateChange = time.Now()
	}
}

func (h *EndpointHealth) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	if h.state == CircuitClosed && h.consecutiveFailures >= FailureThreshold {
		h.state = CircuitOpen
		h.lastStateChange = time.Now()
	}
}

// Allow reports whether a call should be attempted, transitioning an open
// circuit to half-open once ResetTimeout has elapsed.
func (h *EndpointHealth) Allow() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == CircuitOpen && time.Since(h.lastStateChange) > ResetTimeout {
		h.state = CircuitHalfOpen
		h.lastStateChange = time.Now()
	}
	return h.state != CircuitOpen
}

// healthRegistry hands out one EndpointHealth per transaction type, created
// lazily on first use.
type healthRegistry struct {
	mu   sync.Mutex
	byTx map[string]*EndpointHealth
}

func newHealthRegistry() *healthRegistry {
	return &healthRegistry{byTx: make(map[string]*EndpointHealth)}
}

func (r *healthRegistry) get(transactionType string) *EndpointHealth {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byTx[transactionType]
	if !ok {
		h = newEndpointHealth()
		r.byTx[transactionType] = h
	}
	return h
}
