// Package receita validates companies against Receita Federal registration
// data via the public CNPJ consultation APIs. There is no single official
// endpoint, so the adapter walks a list of mirrors and normalizes whichever
// answers first.
package receita

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cotai/tendersearch/internal/fetch"
	"github.com/cotai/tendersearch/internal/provider"
	"github.com/cotai/tendersearch/internal/ratelimit"
	"github.com/cotai/tendersearch/internal/resilience"
)

const (
	// Name is the source identifier for Receita Federal.
	Name = "receita_federal"

	// probeCNPJ is Receita Federal's own registration, used for health
	// probes because it is guaranteed to exist.
	probeCNPJ = "00394460000187"

	upstreamCooldown = time.Minute
)

// defaultEndpoints are the public CNPJ mirrors, tried in order. Each is a
// format string taking the cleaned CNPJ.
var defaultEndpoints = []string{
	"https://www.receitaws.com.br/v1/cnpj/%s",
	"https://publica.cnpj.ws/cnpj/%s",
	"https://brasilapi.com.br/api/cnpj/v1/%s",
}

// Config tunes the adapter. The default budget is 30 requests per minute,
// the strictest limit among the free mirrors.
type Config struct {
	Endpoints   []string
	MaxRequests int
	Window      time.Duration
	Timeout     time.Duration
}

// Provider is the Receita Federal adapter.
type Provider struct {
	endpoints []string
	timeout   time.Duration
	window    *ratelimit.Window
	client    *fetch.Client
	log       *zap.Logger
}

// New creates a Receita Federal provider. Initialize must run before traffic.
func New(cfg Config) *Provider {
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = defaultEndpoints
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Provider{
		endpoints: cfg.Endpoints,
		timeout:   cfg.Timeout,
		window:    ratelimit.NewWindow(cfg.MaxRequests, cfg.Window),
		log:       zap.L().With(zap.String("provider", Name)),
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return Name }

// Initialize builds the HTTP client.
func (p *Provider) Initialize(_ context.Context) error {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger(Name, "http")
	p.client = fetch.NewClient(fetch.Options{Timeout: p.timeout, Retry: retry})
	p.log.Info("receita federal provider initialized")
	return nil
}

// Close releases the adapter. Safe to call repeatedly.
func (p *Provider) Close(_ context.Context) error {
	p.client = nil
	return nil
}

// HealthCheck looks up a known CNPJ. It does not consume the lookup budget.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	if _, err := p.lookup(ctx, probeCNPJ); err != nil {
		p.log.Warn("health check failed", zap.Error(err))
		return false
	}
	return true
}

// CompanyInfo fetches registration data for a CNPJ. A CNPJ that fails the
// check-digit validation never reaches the network.
func (p *Provider) CompanyInfo(ctx context.Context, cnpj string) (*provider.Company, error) {
	if p.client == nil {
		return nil, eris.New("receita: provider not initialized")
	}

	clean := CleanCNPJ(cnpj)
	if !ValidCNPJ(clean) {
		return nil, eris.Errorf("receita: invalid cnpj %q", cnpj)
	}

	if !p.window.Allow() {
		return nil, provider.NewRateLimitError(Name, p.window.ResetAt())
	}
	return p.lookup(ctx, clean)
}

// ValidateCompany reports whether the CNPJ exists and its registration is
// active. A malformed CNPJ is simply invalid, not an error.
func (p *Provider) ValidateCompany(ctx context.Context, cnpj string) (bool, error) {
	clean := CleanCNPJ(cnpj)
	if !ValidCNPJ(clean) {
		return false, nil
	}

	company, err := p.CompanyInfo(ctx, clean)
	if err != nil {
		if provider.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	status := strings.ToLower(company.Status)
	for _, marker := range []string{"ok", "ativa", "ativo", "active"} {
		if strings.Contains(status, marker) {
			return true, nil
		}
	}
	return false, nil
}

// lookup walks the mirror list until one answers with usable data. A 429
// from a mirror moves on to the next; only when every mirror is throttled
// does it surface as a rate-limit signal.
func (p *Provider) lookup(ctx context.Context, cnpj string) (*provider.Company, error) {
	var (
		lastErr     error
		rateLimited bool
		notFound    bool
	)
	for _, tmpl := range p.endpoints {
		u := fmt.Sprintf(tmpl, cnpj)
		resp, err := p.client.Get(ctx, u, nil, nil)
		if err != nil {
			var se *fetch.StatusError
			if errors.As(err, &se) {
				switch se.Code {
				case http.StatusTooManyRequests:
					rateLimited = true
				case http.StatusNotFound:
					notFound = true
				}
			}
			lastErr = err
			p.log.Warn("cnpj mirror failed", zap.String("url", u), zap.Error(err))
			continue
		}

		company, err := normalizeCompany(resp.Body)
		if err != nil {
			lastErr = err
			p.log.Warn("cnpj mirror returned unusable payload", zap.String("url", u), zap.Error(err))
			continue
		}
		return company, nil
	}

	// A 404 from any mirror is a definite miss; the mirrors serve the same
	// registry, so a throttled sibling cannot contradict it.
	if notFound {
		return nil, provider.ErrNotFound
	}
	if rateLimited {
		return nil, provider.NewRateLimitError(Name, time.Now().Add(upstreamCooldown))
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "receita: all cnpj mirrors failed")
	}
	return nil, provider.ErrNotFound
}
