package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Prober is the slice of a provider the monitor needs: a cheap, bounded
// round-trip that reports reachability.
type Prober interface {
	Name() string
	HealthCheck(ctx context.Context) bool
}

// Monitor periodically probes every provider and writes the outcome into the
// registry. It runs for the orchestrator's lifetime and is stopped by
// cancelling the context passed to Run.
type Monitor struct {
	registry *Registry
	probers  []Prober
	interval time.Duration
	timeout  time.Duration
}

// NewMonitor creates a background health monitor. interval defaults to 5
// minutes, timeout (the bound on a single probe) to 10 seconds.
func NewMonitor(registry *Registry, probers []Prober, interval, timeout time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Monitor{
		registry: registry,
		probers:  probers,
		interval: interval,
		timeout:  timeout,
	}
}

// Run starts the probe loop. It blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "health.monitor"))
	log.Info("starting health monitor",
		zap.Duration("interval", m.interval),
		zap.Int("providers", len(m.probers)),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("health monitor stopped")
			return
		case <-ticker.C:
			m.probeAll(ctx, log)
		}
	}
}

// probeAll checks every provider concurrently. Each probe is individually
// time-bounded and panic-isolated so one hung or broken provider cannot
// stall the cycle or take down the loop.
func (m *Monitor) probeAll(ctx context.Context, log *zap.Logger) {
	var wg sync.WaitGroup
	for _, p := range m.probers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.probe(ctx, log, p)
		}()
	}
	wg.Wait()
}

func (m *Monitor) probe(ctx context.Context, log *zap.Logger, p Prober) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("health check panicked",
				zap.String("provider", p.Name()),
				zap.Any("panic", r),
			)
			m.registry.Update(p.Name(), StatusError)
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// Skip rate-limited providers that have not reset yet; probing them
	// would burn budget for nothing and the lazy transition in IsUsable
	// already handles recovery.
	if h, ok := m.registry.Get(p.Name()); ok &&
		h.Status == StatusRateLimited && h.RateLimitReset != nil &&
		m.registry.nowFunc().Before(*h.RateLimitReset) {
		return
	}

	start := time.Now()
	ok := p.HealthCheck(probeCtx)
	elapsed := time.Since(start)

	if ok {
		m.registry.Update(p.Name(), StatusActive, WithResponseTime(elapsed))
		return
	}

	log.Warn("health check failed",
		zap.String("provider", p.Name()),
		zap.Duration("elapsed", elapsed),
	)
	m.registry.Update(p.Name(), StatusError, WithResponseTime(elapsed))
}
