// Package siconv adapts the federal transfer data served by the Portal da
// Transparência API (the SICONV successor). An API key unlocks higher
// quotas but anonymous access works for small volumes.
package siconv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
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
	// Name is the source identifier for SICONV.
	Name = "siconv"

	defaultBaseURL     = "https://api.portaldatransparencia.gov.br/api-de-dados"
	transfersEndpoint  = "/transferencias"
	agreementsEndpoint = "/convenios"

	// apiKeyHeader carries the Portal da Transparência access key.
	apiKeyHeader = "chave-api-dados"

	pageSize = 50

	upstreamCooldown = 5 * time.Minute
)

// Config tunes the adapter. The default budget is 100 requests per hour.
type Config struct {
	BaseURL     string
	APIKey      string
	MaxRequests int
	Window      time.Duration
	Timeout     time.Duration
}

// Provider is the SICONV adapter.
type Provider struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	window  *ratelimit.Window
	client  *fetch.Client
	log     *zap.Logger
}

// New creates a SICONV provider. Initialize must run before traffic.
func New(cfg Config) *Provider {
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
	return &Provider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		window:  ratelimit.NewWindow(cfg.MaxRequests, cfg.Window),
		log:     zap.L().With(zap.String("provider", Name)),
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return Name }

// Initialize builds the HTTP client.
func (p *Provider) Initialize(_ context.Context) error {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger(Name, "http")
	p.client = fetch.NewClient(fetch.Options{Timeout: p.timeout, Retry: retry})
	p.log.Info("siconv provider initialized", zap.Bool("api_key", p.apiKey != ""))
	return nil
}

// Close releases the adapter. Safe to call repeatedly.
func (p *Provider) Close(_ context.Context) error {
	p.client = nil
	return nil
}

// HealthCheck fetches a single-row transfer page. It does not consume the
// search budget.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	params := url.Values{"pagina": {"1"}, "tamanhoPagina": {"1"}}
	resp, err := p.client.Get(ctx, p.baseURL+transfersEndpoint, params, p.headers())
	if err != nil {
		p.log.Warn("health check failed", zap.Error(err))
		return false
	}
	return resp.StatusCode == http.StatusOK
}

// Transfers returns federal transfers matching filters.
func (p *Provider) Transfers(ctx context.Context, filters map[string]any) ([]provider.Transfer, error) {
	if p.client == nil {
		return nil, eris.New("siconv: provider not initialized")
	}
	if !p.window.Allow() {
		return nil, provider.NewRateLimitError(Name, p.window.ResetAt())
	}

	var items []transferItem
	if err := p.getJSON(ctx, transfersEndpoint, transferParams(filters), &items); err != nil {
		return nil, p.translate(err, "transfers")
	}

	out := make([]provider.Transfer, 0, len(items))
	for _, item := range items {
		out = append(out, item.toTransfer())
	}
	return out, nil
}

// Agreements returns federal agreements (convênios) matching filters.
func (p *Provider) Agreements(ctx context.Context, filters map[string]any) ([]provider.Transfer, error) {
	if p.client == nil {
		return nil, eris.New("siconv: provider not initialized")
	}
	if !p.window.Allow() {
		return nil, provider.NewRateLimitError(Name, p.window.ResetAt())
	}

	var items []agreementItem
	if err := p.getJSON(ctx, agreementsEndpoint, agreementParams(filters), &items); err != nil {
		return nil, p.translate(err, "agreements")
	}

	out := make([]provider.Transfer, 0, len(items))
	for _, item := range items {
		out = append(out, item.toTransfer())
	}
	return out, nil
}

// Municipalities returns the major municipality codes, optionally filtered
// by state. The API has no listing endpoint, so this is a curated table.
func (p *Provider) Municipalities(state string) []provider.Municipality {
	all := []provider.Municipality{
		{Code: "3550308", Name: "São Paulo", State: "SP"},
		{Code: "3304557", Name: "Rio de Janeiro", State: "RJ"},
		{Code: "3106200", Name: "Belo Horizonte", State: "MG"},
		{Code: "4314902", Name: "Porto Alegre", State: "RS"},
		{Code: "4106902", Name: "Curitiba", State: "PR"},
		{Code: "2304400", Name: "Fortaleza", State: "CE"},
		{Code: "2927408", Name: "Salvador", State: "BA"},
		{Code: "5300108", Name: "Brasília", State: "DF"},
		{Code: "1302603", Name: "Manaus", State: "AM"},
		{Code: "2611606", Name: "Recife", State: "PE"},
	}
	if state == "" {
		return all
	}
	state = strings.ToUpper(state)
	var out []provider.Municipality
	for _, m := range all {
		if m.State == state {
			out = append(out, m)
		}
	}
	return out
}

func (p *Provider) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	resp, err := p.client.Get(ctx, p.baseURL+endpoint, params, p.headers())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return eris.Wrapf(err, "siconv: decode %s response", endpoint)
	}
	return nil
}

func (p *Provider) headers() http.Header {
	if p.apiKey == "" {
		return nil
	}
	h := http.Header{}
	h.Set(apiKeyHeader, p.apiKey)
	return h
}

func (p *Provider) translate(err error, op string) error {
	var se *fetch.StatusError
	if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
		cooldown := se.RetryAfter
		if cooldown <= 0 {
			cooldown = upstreamCooldown
		}
		return provider.NewRateLimitError(Name, time.Now().Add(cooldown))
	}
	return eris.Wrapf(err, "siconv: %s", op)
}

// transferParams maps the caller's filter keys onto transfer query
// parameters.
func transferParams(filters map[string]any) url.Values {
	params := pagination(filters)
	keys := map[string]string{
		"start_date":        "dataInicio",
		"end_date":          "dataFim",
		"min_value":         "valorMinimo",
		"max_value":         "valorMaximo",
		"state":             "uf",
		"municipality_code": "codigoMunicipio",
		"ministry_code":     "codigoOrgao",
		"program_code":      "codigoPrograma",
	}
	applyFilters(params, filters, keys)
	return params
}

// agreementParams maps filter keys onto convênio query parameters; date
// filters bound the validity period rather than publication.
func agreementParams(filters map[string]any) url.Values {
	params := pagination(filters)
	keys := map[string]string{
		"start_date":        "dataInicioVigencia",
		"end_date":          "dataFimVigencia",
		"min_value":         "valorMinimo",
		"max_value":         "valorMaximo",
		"state":             "uf",
		"municipality_code": "codigoMunicipio",
		"status":            "situacao",
	}
	applyFilters(params, filters, keys)
	return params
}

func pagination(filters map[string]any) url.Values {
	page, size := 1, pageSize
	if v, ok := filters["page"].(int); ok && v > 0 {
		page = v
	}
	if v, ok := filters["page_size"].(int); ok && v > 0 {
		size = v
	}
	return url.Values{
		"pagina":        {strconv.Itoa(page)},
		"tamanhoPagina": {strconv.Itoa(size)},
	}
}

func applyFilters(params url.Values, filters map[string]any, keys map[string]string) {
	for key, param := range keys {
		if v, ok := filters[key]; ok {
			params.Set(param, toString(v))
		}
	}
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
