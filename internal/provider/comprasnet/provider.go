// Package comprasnet adapts the legacy ComprasNet portal. Unlike PNCP there
// is no JSON API: searches are form POSTs answered with HTML tables, so this
// adapter carries its own row parser.
package comprasnet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
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
	// Name is the source identifier for ComprasNet.
	Name = "comprasnet"

	defaultBaseURL = "http://comprasnet.gov.br"
	searchPath     = "/ConsultaLicitacoes/ConsLicitacao_Relacao.asp"
	detailsPath    = "/ConsultaLicitacoes/download/download_editais_detalhe.asp"
	healthPath     = "/acesso.asp"

	upstreamCooldown = 5 * time.Minute
)

// Config tunes the adapter. The default budget is 60 requests per hour,
// deliberately below what the portal tolerates.
type Config struct {
	BaseURL     string
	MaxRequests int
	Window      time.Duration
	Timeout     time.Duration
}

// Provider is the ComprasNet adapter.
type Provider struct {
	baseURL    string
	timeout    time.Duration
	window     *ratelimit.Window
	classifier *category.Classifier
	client     *fetch.Client
	log        *zap.Logger
}

// New creates a ComprasNet provider. Initialize must run before traffic.
func New(cfg Config, classifier *category.Classifier) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.Timeout <= 0 {
		// The portal is slow on cold searches.
		cfg.Timeout = 45 * time.Second
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

// Initialize builds the HTTP client with browser-ish headers; the portal
// refuses clients that do not look like one.
func (p *Provider) Initialize(_ context.Context) error {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger(Name, "http")
	p.client = fetch.NewClient(fetch.Options{
		Timeout:   p.timeout,
		UserAgent: "Mozilla/5.0 (compatible; COTAI/1.0; +http://cotai.com)",
		Retry:     retry,
	})
	p.log.Info("comprasnet provider initialized")
	return nil
}

// Close releases the adapter. Safe to call repeatedly.
func (p *Provider) Close(_ context.Context) error {
	p.client = nil
	return nil
}

// HealthCheck probes the portal landing page.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	resp, err := p.client.Get(ctx, p.baseURL+healthPath, nil, htmlHeaders())
	if err != nil {
		p.log.Warn("health check failed", zap.Error(err))
		return false
	}
	return resp.StatusCode == http.StatusOK
}

// Search posts the consultation form and parses the HTML result table.
func (p *Provider) Search(ctx context.Context, query string, filters map[string]any) ([]provider.Tender, error) {
	if p.client == nil {
		return nil, eris.New("comprasnet: provider not initialized")
	}
	if !p.window.Allow() {
		return nil, provider.NewRateLimitError(Name, p.window.ResetAt())
	}

	resp, err := p.client.PostForm(ctx, p.baseURL+searchPath, searchForm(query, filters))
	if err != nil {
		return nil, p.translate(err, "search")
	}

	tenders := parseSearchResults(resp.Body, p.baseURL, p.classifier)
	p.log.Debug("search parsed", zap.Int("results", len(tenders)))
	return tenders, nil
}

// Details fetches the edital detail page for a UASG entry. A missing ID is
// provider.ErrNotFound.
func (p *Provider) Details(ctx context.Context, id string) (*provider.Tender, error) {
	if p.client == nil {
		return nil, eris.New("comprasnet: provider not initialized")
	}
	if !p.window.Allow() {
		return nil, provider.NewRateLimitError(Name, p.window.ResetAt())
	}

	params := url.Values{"coduasg": {id}}
	resp, err := p.client.Get(ctx, p.baseURL+detailsPath, params, htmlHeaders())
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, provider.ErrNotFound
		}
		return nil, p.translate(err, "details")
	}

	t, err := parseDetails(resp.Body, id, p.baseURL, p.classifier)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Agencies returns the major federal agencies reachable through ComprasNet.
// The portal has no listing endpoint, so this is a curated table.
func (p *Provider) Agencies(_ context.Context) ([]provider.Agency, error) {
	return []provider.Agency{
		{ID: "153100", Name: "Ministério da Educação", Acronym: "MEC", Sphere: "federal"},
		{ID: "153101", Name: "Ministério da Saúde", Acronym: "MS", Sphere: "federal"},
		{ID: "153102", Name: "Ministério da Justiça", Acronym: "MJ", Sphere: "federal"},
		{ID: "153103", Name: "Ministério da Defesa", Acronym: "MD", Sphere: "federal"},
		{ID: "153104", Name: "Ministério do Trabalho", Acronym: "MT", Sphere: "federal"},
		{ID: "153105", Name: "Ministério da Fazenda", Acronym: "MF", Sphere: "federal"},
		{ID: "153106", Name: "Ministério do Desenvolvimento", Acronym: "MDIC", Sphere: "federal"},
		{ID: "153107", Name: "Ministério da Agricultura", Acronym: "MAPA", Sphere: "federal"},
		{ID: "153108", Name: "Ministério do Meio Ambiente", Acronym: "MMA", Sphere: "federal"},
		{ID: "153109", Name: "Ministério da Ciência e Tecnologia", Acronym: "MCTI", Sphere: "federal"},
	}, nil
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
	return eris.Wrapf(err, "comprasnet: %s", op)
}

func htmlHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")
	h.Set("Cache-Control", "no-cache")
	return h
}

// searchForm fills the ConsLicitacao_Relacao form. Every modality checkbox
// stays on; callers narrow by query and filters instead.
func searchForm(query string, filters map[string]any) url.Values {
	form := url.Values{
		"txtlicitacao":     {query},
		"txtObjeto":        {query},
		"numprp":           {""},
		"dt_publ_ini":      {""},
		"dt_publ_fim":      {""},
		"chkModalidade":    {"1"},
		"optTipoLicitacao": {"5"},
		"chkConcorrencia":  {"1"},
		"chkTomada":        {"1"},
		"chkConvite":       {"1"},
		"chkPregao":        {"1"},
		"chkOutros":        {"1"},
		"txtEdital":        {""},
		"txtUasg":          {""},
		"btnPesquisar":     {"Pesquisar"},
	}

	if v, ok := filters["start_date"].(string); ok {
		form.Set("dt_publ_ini", formatDate(v))
	}
	if v, ok := filters["end_date"].(string); ok {
		form.Set("dt_publ_fim", formatDate(v))
	}
	if v, ok := filters["agency_uasg"].(string); ok {
		form.Set("txtUasg", v)
	}
	if v, ok := filters["edital_number"].(string); ok {
		form.Set("txtEdital", v)
	}
	if v, ok := filters["process_number"].(string); ok {
		form.Set("numprp", v)
	}
	return form
}

// formatDate converts an ISO date to the portal's dd/mm/yyyy. Values that do
// not parse pass through untouched.
func formatDate(iso string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return iso
}

func detailsURL(baseURL, id string) string {
	return fmt.Sprintf("%s%s?coduasg=%s", baseURL, detailsPath, url.QueryEscape(id))
}
