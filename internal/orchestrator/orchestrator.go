// Package orchestrator is the façade over the provider fleet: lifecycle,
// health monitoring, and the search/lookup operations callers actually use.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cotai/tendersearch/internal/dispatch"
	"github.com/cotai/tendersearch/internal/health"
	"github.com/cotai/tendersearch/internal/provider"
)

// Config tunes the orchestrator.
type Config struct {
	// MonitorInterval is the background probe cadence. Zero uses the
	// monitor's default.
	MonitorInterval time.Duration
	// MonitorTimeout bounds a single probe.
	MonitorTimeout time.Duration
	// Dispatch configures result capping and fan-out concurrency.
	Dispatch dispatch.Options
}

// InitResult is the per-provider outcome of Initialize.
type InitResult struct {
	OK  bool
	Err error
}

// Orchestrator owns the provider registry, the health registry, and the
// background monitor. Create it with New, call Initialize before use and
// Shutdown when done.
type Orchestrator struct {
	providers  *provider.Registry
	health     *health.Registry
	dispatcher *dispatch.Dispatcher
	monitor    *health.Monitor
	log        *zap.Logger

	mu          sync.Mutex
	started     bool
	stopMonitor context.CancelFunc
	monitorDone chan struct{}
}

// New assembles an orchestrator over the registered providers. Nothing
// touches the network until Initialize.
func New(providers *provider.Registry, cfg Config) *Orchestrator {
	healthReg := health.NewRegistry()

	probers := make([]health.Prober, 0)
	for _, p := range providers.All() {
		healthReg.Register(p.Name())
		probers = append(probers, p)
	}

	return &Orchestrator{
		providers:  providers,
		health:     healthReg,
		dispatcher: dispatch.New(providers, healthReg, cfg.Dispatch),
		monitor:    health.NewMonitor(healthReg, probers, cfg.MonitorInterval, cfg.MonitorTimeout),
		log:        zap.L().With(zap.String("component", "orchestrator")),
	}
}

// Initialize brings up every provider and starts the health monitor. A
// provider failing to initialize is reported in the result map and marked
// errored, but does not abort the others; Initialize only errors when every
// provider failed.
func (o *Orchestrator) Initialize(ctx context.Context) (map[string]InitResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return nil, eris.New("orchestrator: already initialized")
	}

	results := make(map[string]InitResult)
	initialized := 0
	for _, p := range o.providers.All() {
		if err := p.Initialize(ctx); err != nil {
			wrapped := &provider.InitError{Provider: p.Name(), Err: err}
			o.health.Update(p.Name(), health.StatusError, health.WithError(wrapped))
			o.log.Error("provider failed to initialize", zap.String("provider", p.Name()), zap.Error(err))
			results[p.Name()] = InitResult{Err: wrapped}
			continue
		}
		o.health.Update(p.Name(), health.StatusActive)
		results[p.Name()] = InitResult{OK: true}
		initialized++
	}

	if initialized == 0 && len(results) > 0 {
		return results, eris.New("orchestrator: no provider initialized")
	}

	monitorCtx, cancel := context.WithCancel(context.Background())
	o.stopMonitor = cancel
	o.monitorDone = make(chan struct{})
	go func() {
		defer close(o.monitorDone)
		o.monitor.Run(monitorCtx)
	}()

	o.started = true
	o.log.Info("orchestrator initialized", zap.Int("providers", initialized))
	return results, nil
}

// Shutdown stops the monitor and closes every provider. Safe to call more
// than once.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		return nil
	}

	o.stopMonitor()
	select {
	case <-o.monitorDone:
	case <-ctx.Done():
	}

	var errs []error
	for _, p := range o.providers.All() {
		if err := p.Close(ctx); err != nil {
			o.log.Error("provider close failed", zap.String("provider", p.Name()), zap.Error(err))
			errs = append(errs, err)
		}
		o.health.Update(p.Name(), health.StatusInactive)
	}

	o.started = false
	o.log.Info("orchestrator shut down")

	if len(errs) > 0 {
		return eris.Wrapf(errs[0], "orchestrator: %d provider(s) failed to close", len(errs))
	}
	return nil
}

// Search fans the query out to the requested sources (all searchers when
// sources is empty) and returns ranked results. Provider failures degrade
// the result set, they never fail the call.
func (o *Orchestrator) Search(ctx context.Context, query string, sources []string, filters map[string]any) ([]provider.Tender, error) {
	return o.dispatcher.Search(ctx, query, sources, filters)
}

// Details fetches one tender from a specific source. It returns (nil, nil)
// when the tender does not exist or the source is temporarily unusable.
func (o *Orchestrator) Details(ctx context.Context, source, id string) (*provider.Tender, error) {
	return o.dispatcher.Details(ctx, source, id)
}

// ValidateCompany checks a CNPJ against Receita Federal.
func (o *Orchestrator) ValidateCompany(ctx context.Context, cnpj string) (bool, error) {
	v, ok := o.providers.CompanyValidator()
	if !ok || !o.health.IsUsable(v.Name()) {
		return false, eris.New("orchestrator: no company validator available")
	}

	valid, err := v.ValidateCompany(ctx, cnpj)
	if err != nil {
		o.recordFailure(v.Name(), err)
		return false, err
	}
	o.health.Update(v.Name(), health.StatusActive)
	return valid, nil
}

// CompanyInfo fetches CNPJ registration data.
func (o *Orchestrator) CompanyInfo(ctx context.Context, cnpj string) (*provider.Company, error) {
	v, ok := o.providers.CompanyValidator()
	if !ok || !o.health.IsUsable(v.Name()) {
		return nil, eris.New("orchestrator: no company validator available")
	}

	company, err := v.CompanyInfo(ctx, cnpj)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, err
		}
		o.recordFailure(v.Name(), err)
		return nil, err
	}
	o.health.Update(v.Name(), health.StatusActive)
	return company, nil
}

// Transfers returns federal transfers matching filters.
func (o *Orchestrator) Transfers(ctx context.Context, filters map[string]any) ([]provider.Transfer, error) {
	t, ok := o.providers.TransferSearcher()
	if !ok || !o.health.IsUsable(t.Name()) {
		return nil, eris.New("orchestrator: no transfer source available")
	}

	transfers, err := t.Transfers(ctx, filters)
	if err != nil {
		o.recordFailure(t.Name(), err)
		return nil, err
	}
	o.health.Update(t.Name(), health.StatusActive)
	return transfers, nil
}

// Agreements returns federal agreements matching filters.
func (o *Orchestrator) Agreements(ctx context.Context, filters map[string]any) ([]provider.Transfer, error) {
	t, ok := o.providers.TransferSearcher()
	if !ok || !o.health.IsUsable(t.Name()) {
		return nil, eris.New("orchestrator: no transfer source available")
	}

	agreements, err := t.Agreements(ctx, filters)
	if err != nil {
		o.recordFailure(t.Name(), err)
		return nil, err
	}
	o.health.Update(t.Name(), health.StatusActive)
	return agreements, nil
}

// Agencies merges the agency lists of every provider that can enumerate
// them.
func (o *Orchestrator) Agencies(ctx context.Context) ([]provider.Agency, error) {
	var agencies []provider.Agency
	for _, p := range o.providers.All() {
		lister, ok := p.(provider.AgencyLister)
		if !ok || !o.health.IsUsable(p.Name()) {
			continue
		}
		list, err := lister.Agencies(ctx)
		if err != nil {
			o.recordFailure(p.Name(), err)
			o.log.Warn("agency listing failed", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		agencies = append(agencies, list...)
	}
	return agencies, nil
}

// Modalities merges the modality catalogs of every provider that has one.
// Catalogs are static, so no health gate or network call is involved.
func (o *Orchestrator) Modalities() []provider.Modality {
	var modalities []provider.Modality
	for _, p := range o.providers.All() {
		lister, ok := p.(provider.ModalityLister)
		if !ok {
			continue
		}
		modalities = append(modalities, lister.Modalities()...)
	}
	return modalities
}

// Health returns a snapshot of every provider's health.
func (o *Orchestrator) Health() map[string]health.Health {
	return o.health.Snapshot()
}

// AvailableProviders lists the providers currently usable for dispatch.
func (o *Orchestrator) AvailableProviders() []string {
	return o.health.Active()
}

func (o *Orchestrator) recordFailure(name string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if rle, ok := provider.AsRateLimit(err); ok {
		o.health.Update(name, health.StatusRateLimited,
			health.WithError(err),
			health.WithRateLimitReset(rle.ResetAt))
		return
	}
	o.health.Update(name, health.StatusError, health.WithError(err))
}
