package health

import (
	"sort"
	"sync"
	"time"
)

// UpdateOption attaches optional fields to a status update.
type UpdateOption func(*Health)

// WithResponseTime records how long the probe or call took.
func WithResponseTime(d time.Duration) UpdateOption {
	return func(h *Health) {
		h.ResponseTime = &d
	}
}

// WithError records the failure message behind an Error status.
func WithError(err error) UpdateOption {
	return func(h *Health) {
		if err != nil {
			h.ErrorMessage = err.Error()
		}
	}
}

// WithRateLimitReset records when a rate-limited provider becomes usable again.
func WithRateLimitReset(t time.Time) UpdateOption {
	return func(h *Health) {
		h.RateLimitReset = &t
	}
}

// Registry is the single source of truth for provider health. Entries are
// created at registration and live for the process lifetime; all mutation
// funnels through Update so that the monitor loop and in-flight dispatches
// can report concurrently without callers managing locks.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Health

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewRegistry creates an empty health registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Health),
		nowFunc: time.Now,
	}
}

// Register creates the entry for a provider, starting as inactive. Calling
// it again for the same name is a no-op.
func (r *Registry) Register(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; ok {
		return
	}
	r.entries[name] = &Health{
		Name:      name,
		Status:    StatusInactive,
		LastCheck: r.nowFunc(),
	}
}

// Update is the sole mutation path for an entry. It overwrites the status,
// stamps LastCheck, clears stale error/rate-limit fields, and applies opts.
// Updates for unregistered names are dropped.
func (r *Registry) Update(name string, status Status, opts ...UpdateOption) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[name]
	if !ok {
		return
	}
	h.Status = status
	h.LastCheck = r.nowFunc()
	h.ErrorMessage = ""
	if status != StatusRateLimited {
		h.RateLimitReset = nil
	}
	for _, opt := range opts {
		opt(h)
	}
}

// Get returns a copy of the entry for name.
func (r *Registry) Get(name string) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.entries[name]
	if !ok {
		return Health{}, false
	}
	return *h, true
}

// Snapshot returns a copy of every entry, keyed by provider name.
func (r *Registry) Snapshot() map[string]Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[string]Health, len(r.entries))
	for name, h := range r.entries {
		snap[name] = *h
	}
	return snap
}

// IsUsable reports whether a provider can take traffic right now. A
// rate-limited provider whose reset time has passed is flipped back to
// active here, so transient limits heal without waiting for the next
// monitor tick.
func (r *Registry) IsUsable(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[name]
	if !ok {
		return false
	}

	if h.Status == StatusRateLimited {
		if h.RateLimitReset != nil && !r.nowFunc().Before(*h.RateLimitReset) {
			h.Status = StatusActive
			h.RateLimitReset = nil
			return true
		}
		return false
	}

	return h.Status == StatusActive
}

// Active returns the names of providers currently usable, healing expired
// rate limits along the way.
func (r *Registry) Active() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	var active []string
	for _, name := range names {
		if r.IsUsable(name) {
			active = append(active, name)
		}
	}
	return active
}
