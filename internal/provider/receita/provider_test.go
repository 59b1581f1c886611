package receita

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cotai/tendersearch/internal/provider"
	"github.com/cotai/tendersearch/internal/ratelimit"
)

const receitaWSBody = `{
  "cnpj": "11.444.777/0001-61",
  "nome": "EMPRESA DE TESTES LTDA",
  "fantasia": "TESTES",
  "status": "OK",
  "situacao": "ATIVA",
  "abertura": "01/02/2010",
  "natureza_juridica": "206-2 - Sociedade Empresária Limitada",
  "logradouro": "RUA DAS FLORES",
  "numero": "100",
  "bairro": "CENTRO",
  "municipio": "SAO PAULO",
  "uf": "SP",
  "cep": "01.001-000",
  "atividade_principal": [{"code": "62.01-5-01", "text": "Desenvolvimento de programas de computador sob encomenda"}],
  "atividades_secundarias": [{"code": "62.04-0-00", "text": "Consultoria em tecnologia da informação"}]
}`

const brasilAPIBody = `{
  "cnpj": "04892707000100",
  "razao_social": "DNIT",
  "nome_fantasia": "",
  "situacao_cadastral": 2,
  "descricao_situacao_cadastral": "ATIVA",
  "data_inicio_atividade": "2002-05-29",
  "natureza_juridica": {"descricao": "Autarquia Federal"},
  "logradouro": "SAN Q 3",
  "municipio": {"descricao": "BRASILIA"},
  "uf": "DF",
  "cnae_fiscal_principal": {"codigo": 8411600, "descricao": "Administração pública em geral"},
  "cnae_fiscal_secundaria": [{"codigo": 4211101, "descricao": "Construção de rodovias e ferrovias"}]
}`

func newTestProvider(t *testing.T, handler http.Handler, paths ...string) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if len(paths) == 0 {
		paths = []string{"/a/%s", "/b/%s"}
	}
	endpoints := make([]string, len(paths))
	for i, p := range paths {
		endpoints[i] = srv.URL + p
	}

	p := New(Config{Endpoints: endpoints, MaxRequests: 30, Window: time.Minute})
	require.NoError(t, p.Initialize(context.Background()))
	return p
}

func TestProvider_CompanyInfoReceitaWS(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/a/11444777000161", r.URL.Path)
		w.Write([]byte(receitaWSBody))
	}))

	company, err := p.CompanyInfo(context.Background(), "11.444.777/0001-61")
	require.NoError(t, err)
	assert.Equal(t, "11444777000161", company.CNPJ)
	assert.Equal(t, "EMPRESA DE TESTES LTDA", company.Name)
	assert.Equal(t, "TESTES", company.TradeName)
	assert.Equal(t, "ATIVA", company.Status)
	assert.Equal(t, "206-2 - Sociedade Empresária Limitada", company.LegalNature)
	assert.Equal(t, "SAO PAULO", company.Address.City)
	assert.Equal(t, "SP", company.Address.State)
	require.Len(t, company.Activities, 2)
	assert.True(t, company.Activities[0].Primary)
	assert.Equal(t, "62.01-5-01", company.Activities[0].Code)
	assert.False(t, company.Activities[1].Primary)
	assert.NotEmpty(t, company.Raw)
}

func TestProvider_CompanyInfoBrasilAPI(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(brasilAPIBody))
	}))

	company, err := p.CompanyInfo(context.Background(), "04892707000100")
	require.NoError(t, err)
	assert.Equal(t, "DNIT", company.Name)
	assert.Equal(t, "ATIVA", company.Status)
	assert.Equal(t, "Autarquia Federal", company.LegalNature)
	assert.Equal(t, "BRASILIA", company.Address.City)
	require.Len(t, company.Activities, 2)
	assert.Equal(t, "8411600", company.Activities[0].Code)
	assert.True(t, company.Activities[0].Primary)
}

func TestProvider_CompanyInfoMirrorFallback(t *testing.T) {
	var firstCalls, secondCalls int
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/a/11444777000161":
			firstCalls++
			w.WriteHeader(http.StatusNotFound)
		default:
			secondCalls++
			w.Write([]byte(receitaWSBody))
		}
	}))

	company, err := p.CompanyInfo(context.Background(), "11444777000161")
	require.NoError(t, err)
	assert.Equal(t, "EMPRESA DE TESTES LTDA", company.Name)
	assert.Equal(t, 1, firstCalls, "first mirror tried once")
	assert.Equal(t, 1, secondCalls)
}

func TestProvider_CompanyInfoNotFound(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := p.CompanyInfo(context.Background(), "11444777000161")
	assert.True(t, provider.IsNotFound(err))
}

func TestProvider_CompanyInfoAllMirrorsThrottled(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := p.CompanyInfo(context.Background(), "11444777000161")
	rle, ok := provider.AsRateLimit(err)
	require.True(t, ok, "expected RateLimitError, got %v", err)
	assert.Equal(t, Name, rle.Provider)
}

func TestProvider_CompanyInfoNotFoundBeatsThrottledMirror(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/a/") {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := p.CompanyInfo(context.Background(), "11444777000161")
	assert.True(t, provider.IsNotFound(err), "expected not-found, got %v", err)
}

func TestProvider_CompanyInfoInvalidCNPJ(t *testing.T) {
	var calls int
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	_, err := p.CompanyInfo(context.Background(), "11444777000162")
	assert.Error(t, err)
	assert.Zero(t, calls, "invalid cnpj must never reach the network")
}

func TestProvider_CompanyInfoFailsFastWhenWindowExhausted(t *testing.T) {
	var calls int
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(receitaWSBody))
	}))
	p.window = ratelimit.NewWindow(0, time.Minute)

	_, err := p.CompanyInfo(context.Background(), "11444777000161")
	rle, ok := provider.AsRateLimit(err)
	require.True(t, ok)
	assert.Equal(t, Name, rle.Provider)
	assert.Zero(t, calls)
}

func TestProvider_ValidateCompany(t *testing.T) {
	active := true
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if active {
			w.Write([]byte(receitaWSBody))
			return
		}
		w.Write([]byte(`{"cnpj": "11444777000161", "nome": "EMPRESA BAIXADA", "situacao": "BAIXADA"}`))
	}))

	ok, err := p.ValidateCompany(context.Background(), "11444777000161")
	require.NoError(t, err)
	assert.True(t, ok)

	active = false
	ok, err = p.ValidateCompany(context.Background(), "11444777000161")
	require.NoError(t, err)
	assert.False(t, ok)

	// Malformed CNPJ is invalid, not an error.
	ok, err = p.ValidateCompany(context.Background(), "123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvider_HealthCheck(t *testing.T) {
	healthy := true
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(receitaWSBody))
	}))

	assert.True(t, p.HealthCheck(context.Background()))

	healthy = false
	assert.False(t, p.HealthCheck(context.Background()))
}

func TestProvider_NotInitialized(t *testing.T) {
	p := New(Config{})
	_, err := p.CompanyInfo(context.Background(), "11444777000161")
	assert.Error(t, err)
	assert.False(t, p.HealthCheck(context.Background()))
}
