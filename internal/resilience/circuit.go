// Package resilience provides retry and circuit breaking for calls to brand sites.
package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCircuitOpen is returned when a host has failed too often recently.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls when a host's circuit opens and for how long.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// breaker tracks consecutive failures for one host. After ResetTimeout an
// open breaker lets a single trial call through; its outcome decides the state.
type breaker struct {
	failures int
	openedAt time.Time
	open     bool
	inTrial  bool
}

// HostBreakers keeps one breaker per host.
type HostBreakers struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	breakers map[string]*breaker
}

// NewHostBreakers creates an empty breaker registry.
func NewHostBreakers(cfg BreakerConfig) *HostBreakers {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = time.Minute
	}
	return &HostBreakers{
		cfg:      cfg,
		now:      time.Now,
		breakers: make(map[string]*breaker),
	}
}

// Allow returns ErrCircuitOpen if calls to host should be skipped.
func (h *HostBreakers) Allow(host string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.breakers[host]
	if !ok || !b.open {
		return nil
	}
	if b.inTrial || h.now().Sub(b.openedAt) < h.cfg.ResetTimeout {
		return eris.Wrapf(ErrCircuitOpen, "host %s", host)
	}
	b.inTrial = true
	return nil
}

// Record reports the outcome of a call to host. Only failures that
// count (per the caller) should be passed as non-nil.
func (h *HostBreakers) Record(host string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.breakers[host]
	if !ok {
		b = &breaker{}
		h.breakers[host] = b
	}

	if err == nil {
		*b = breaker{}
		return
	}

	b.failures++
	b.inTrial = false
	if b.open || b.failures >= h.cfg.FailureThreshold {
		b.open = true
		b.openedAt = h.now()
	}
}

// Release ends a half-open trial call whose outcome says nothing about the
// host's health, such as a cancelled call. The next Allow lets another through.
func (h *HostBreakers) Release(host string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.breakers[host]; ok {
		b.inTrial = false
	}
}

// Open reports whether host's circuit is currently open.
func (h *HostBreakers) Open(host string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.breakers[host]
	return ok && b.open
}
