// Package pncp adapts the Portal Nacional de Contratações Públicas API.
package pncp

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cotai/tendersearch/internal/category"
	"github.com/cotai/tendersearch/internal/fetch"
	"github.com/cotai/tendersearch/internal/provider"
	"github.com/cotai/tendersearch/internal/ratelimit"
	"github.com/cotai/tendersearch/internal/resilience"
)

const (
	// Name is the source identifier for PNCP.
	Name = "pncp"

	defaultBaseURL  = "https://pncp.gov.br/api"
	searchEndpoint  = "/consulta/v1/contratacoes"
	detailsEndpoint = "/consulta/v1/contratacoes/"
	agencyEndpoint  = "/consulta/v1/orgaos"
	statusEndpoint  = "/status"

	pageSize = 50

	// upstreamCooldown is how long we back off when PNCP itself answers
	// 429 without a usable Retry-After.
	upstreamCooldown = 5 * time.Minute
)

// Config tunes the adapter. Zero values fall back to PNCP's documented
// limits (100 requests per hour).
type Config struct {
	BaseURL     string
	MaxRequests int
	Window      time.Duration
	Timeout     time.Duration
}

// Provider is the PNCP adapter. It owns its HTTP client and fixed-window
// budget; a denied window fails fast with a RateLimitError.
type Provider struct {
	baseURL    string
	timeout    time.Duration
	window     *ratelimit.Window
	classifier *category.Classifier
	client     *fetch.Client
	log        *zap.Logger
}

// New creates a PNCP provider. Initialize must run before traffic.
func New(cfg Config, classifier *category.Classifier) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if classifier == nil {
		classifier = category.NewClassifier()
	}
	return &Provider{
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		window:     ratelimit.NewWindow(cfg.MaxRequests, cfg.Window),
		classifier: classifier,
		log:        zap.L().With(zap.String("provider", Name)),
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return Name }

// Initialize builds the HTTP client.
func (p *Provider) Initialize(_ context.Context) error {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger(Name, "http")
	p.client = fetch.NewClient(fetch.Options{Timeout: p.timeout, Retry: retry})
	p.log.Info("pncp provider initialized")
	return nil
}

// Close releases the adapter. Safe to call repeatedly.
func (p *Provider) Close(_ context.Context) error {
	p.client = nil
	return nil
}

// HealthCheck probes the PNCP status endpoint. It does not consume the
// search budget.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	resp, err := p.client.Get(ctx, p.baseURL+statusEndpoint, nil, nil)
	if err != nil {
		p.log.Warn("health check failed", zap.Error(err))
		return false
	}
	return resp.StatusCode == http.StatusOK
}

// Search queries PNCP for tenders matching query and filters.
func (p *Provider) Search(ctx context.Context, query string, filters map[string]any) ([]provider.Tender, error) {
	if p.client == nil {
		return nil, eris.New("pncp: provider not initialized")
	}
	if !p.window.Allow() {
		return nil, provider.NewRateLimitError(Name, p.window.ResetAt())
	}

	params := searchParams(query, filters)

	var payload searchPayload
	if err := p.client.GetJSON(ctx, p.baseURL+searchEndpoint, params, &payload); err != nil {
		return nil, p.translate(err, "search")
	}

	tenders := make([]provider.Tender, 0, len(payload.Data))
	for _, item := range payload.Data {
		tenders = append(tenders, item.toTender(p.classifier))
	}
	return tenders, nil
}

// Details fetches a single tender. A missing ID is provider.ErrNotFound.
func (p *Provider) Details(ctx context.Context, id string) (*provider.Tender, error) {
	if p.client == nil {
		return nil, eris.New("pncp: provider not initialized")
	}
	if !p.window.Allow() {
		return nil, provider.NewRateLimitError(Name, p.window.ResetAt())
	}

	var item tenderItem
	err := p.client.GetJSON(ctx, p.baseURL+detailsEndpoint+url.PathEscape(id), nil, &item)
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, provider.ErrNotFound
		}
		return nil, p.translate(err, "details")
	}

	t := item.toTender(p.classifier)
	return &t, nil
}

// Agencies lists PNCP's contracting agencies.
func (p *Provider) Agencies(ctx context.Context) ([]provider.Agency, error) {
	if p.client == nil {
		return nil, eris.New("pncp: provider not initialized")
	}
	if !p.window.Allow() {
		return nil, provider.NewRateLimitError(Name, p.window.ResetAt())
	}

	var payload agencyPayload
	if err := p.client.GetJSON(ctx, p.baseURL+agencyEndpoint, nil, &payload); err != nil {
		return nil, p.translate(err, "agencies")
	}

	agencies := make([]provider.Agency, 0, len(payload.Data))
	for _, a := range payload.Data {
		agencies = append(agencies, provider.Agency{
			ID:     a.ID,
			Name:   a.Name,
			CNPJ:   a.CNPJ,
			Sphere: a.Sphere,
		})
	}
	return agencies, nil
}

// Modalities returns the standardized PNCP contracting modalities.
func (p *Provider) Modalities() []provider.Modality {
	return []provider.Modality{
		{ID: 1, Name: "Convite", Description: "Modalidade para valores menores"},
		{ID: 2, Name: "Tomada de Preços", Description: "Modalidade para valores médios"},
		{ID: 3, Name: "Concorrência", Description: "Modalidade para valores maiores"},
		{ID: 4, Name: "Pregão", Description: "Modalidade eletrônica preferencial"},
		{ID: 5, Name: "Dispensa", Description: "Dispensa de licitação"},
		{ID: 6, Name: "Inexigibilidade", Description: "Inexigibilidade de licitação"},
		{ID: 7, Name: "Registro de Preços", Description: "Sistema de registro de preços"},
	}
}

// translate maps an upstream 429 to a rate-limit signal; everything else
// passes through wrapped.
func (p *Provider) translate(err error, op string) error {
	var se *fetch.StatusError
	if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
		cooldown := se.RetryAfter
		if cooldown <= 0 {
			cooldown = upstreamCooldown
		}
		return provider.NewRateLimitError(Name, time.Now().Add(cooldown))
	}
	return eris.Wrapf(err, "pncp: %s", op)
}

// searchParams maps the caller's filter keys onto PNCP query parameters.
func searchParams(query string, filters map[string]any) url.Values {
	params := url.Values{
		"q":    {query},
		"size": {strconv.Itoa(pageSize)},
		"from": {"0"},
	}

	keys := map[string]string{
		"start_date": "dataInicio",
		"end_date":   "dataFim",
		"min_value":  "valorMinimo",
		"max_value":  "valorMaximo",
		"agency_id":  "orgaoId",
		"modality":   "modalidade",
		"status":     "situacao",
		"state":      "uf",
		"city":       "municipio",
	}
	for key, param := range keys {
		if v, ok := filters[key]; ok {
			params.Set(param, toString(v))
		}
	}
	return params
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
