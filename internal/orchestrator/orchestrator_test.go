package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cotai/tendersearch/internal/health"
	"github.com/cotai/tendersearch/internal/provider"
)

type fakeProvider struct {
	name    string
	initErr error
	closes  int
}

func (f *fakeProvider) Name() string                     { return f.name }
func (f *fakeProvider) Initialize(context.Context) error { return f.initErr }
func (f *fakeProvider) HealthCheck(context.Context) bool { return true }

func (f *fakeProvider) Close(context.Context) error {
	f.closes++
	return nil
}

type fakeSearcher struct {
	fakeProvider
	results []provider.Tender
}

func (f *fakeSearcher) Search(context.Context, string, map[string]any) ([]provider.Tender, error) {
	return f.results, nil
}

func (f *fakeSearcher) Details(context.Context, string) (*provider.Tender, error) {
	if len(f.results) == 0 {
		return nil, provider.ErrNotFound
	}
	return &f.results[0], nil
}

type fakeValidator struct {
	fakeProvider
	company *provider.Company
	err     error
}

func (f *fakeValidator) CompanyInfo(context.Context, string) (*provider.Company, error) {
	return f.company, f.err
}

func (f *fakeValidator) ValidateCompany(context.Context, string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.company != nil, nil
}

type fakeTransferer struct {
	fakeProvider
	transfers []provider.Transfer
	err       error
}

func (f *fakeTransferer) Transfers(context.Context, map[string]any) ([]provider.Transfer, error) {
	return f.transfers, f.err
}

func (f *fakeTransferer) Agreements(context.Context, map[string]any) ([]provider.Transfer, error) {
	return f.transfers, f.err
}

type fakeModalityLister struct {
	fakeSearcher
}

func (f *fakeModalityLister) Modalities() []provider.Modality {
	return []provider.Modality{{ID: 4, Name: "Pregão"}}
}

func newOrchestrator(t *testing.T, providers ...provider.Provider) *Orchestrator {
	t.Helper()
	reg := provider.NewRegistry()
	for _, p := range providers {
		require.NoError(t, reg.Register(p))
	}
	return New(reg, Config{MonitorInterval: time.Hour})
}

func TestOrchestrator_InitializePartialFailure(t *testing.T) {
	good := &fakeSearcher{fakeProvider: fakeProvider{name: "pncp"}}
	bad := &fakeSearcher{fakeProvider: fakeProvider{name: "comprasnet", initErr: eris.New("dns failure")}}
	o := newOrchestrator(t, good, bad)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	results, err := o.Initialize(context.Background())
	require.NoError(t, err, "partial failure must not abort initialization")
	require.Len(t, results, 2)

	assert.True(t, results["pncp"].OK)
	assert.False(t, results["comprasnet"].OK)
	var initErr *provider.InitError
	require.ErrorAs(t, results["comprasnet"].Err, &initErr)
	assert.Equal(t, "comprasnet", initErr.Provider)

	snapshot := o.Health()
	assert.Equal(t, health.StatusActive, snapshot["pncp"].Status)
	assert.Equal(t, health.StatusError, snapshot["comprasnet"].Status)
	assert.Equal(t, []string{"pncp"}, o.AvailableProviders())
}

func TestOrchestrator_InitializeTotalFailure(t *testing.T) {
	bad := &fakeSearcher{fakeProvider: fakeProvider{name: "pncp", initErr: eris.New("down")}}
	o := newOrchestrator(t, bad)

	results, err := o.Initialize(context.Background())
	assert.Error(t, err)
	assert.Len(t, results, 1)
}

func TestOrchestrator_InitializeTwice(t *testing.T) {
	o := newOrchestrator(t, &fakeSearcher{fakeProvider: fakeProvider{name: "pncp"}})
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	_, err := o.Initialize(context.Background())
	require.NoError(t, err)

	_, err = o.Initialize(context.Background())
	assert.Error(t, err)
}

func TestOrchestrator_ShutdownIdempotent(t *testing.T) {
	p := &fakeSearcher{fakeProvider: fakeProvider{name: "pncp"}}
	o := newOrchestrator(t, p)

	_, err := o.Initialize(context.Background())
	require.NoError(t, err)

	require.NoError(t, o.Shutdown(context.Background()))
	require.NoError(t, o.Shutdown(context.Background()))
	assert.Equal(t, 1, p.closes, "second shutdown must be a no-op")

	snapshot := o.Health()
	assert.Equal(t, health.StatusInactive, snapshot["pncp"].Status)
	assert.Empty(t, o.AvailableProviders())
}

func TestOrchestrator_Search(t *testing.T) {
	p := &fakeSearcher{
		fakeProvider: fakeProvider{name: "pncp"},
		results:      []provider.Tender{{ID: "t-1", Source: "pncp"}},
	}
	o := newOrchestrator(t, p)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	_, err := o.Initialize(context.Background())
	require.NoError(t, err)

	results, err := o.Search(context.Background(), "obras", nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "t-1", results[0].ID)
	assert.NotZero(t, results[0].RelevanceScore)
}

func TestOrchestrator_SearchBeforeInitialize(t *testing.T) {
	p := &fakeSearcher{fakeProvider: fakeProvider{name: "pncp"}}
	o := newOrchestrator(t, p)

	// Providers are Inactive until Initialize, so nothing is dispatched.
	results, err := o.Search(context.Background(), "obras", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOrchestrator_ValidateCompany(t *testing.T) {
	v := &fakeValidator{
		fakeProvider: fakeProvider{name: "receita_federal"},
		company:      &provider.Company{CNPJ: "11444777000161", Status: "ATIVA"},
	}
	o := newOrchestrator(t, v)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	_, err := o.Initialize(context.Background())
	require.NoError(t, err)

	ok, err := o.ValidateCompany(context.Background(), "11444777000161")
	require.NoError(t, err)
	assert.True(t, ok)

	company, err := o.CompanyInfo(context.Background(), "11444777000161")
	require.NoError(t, err)
	assert.Equal(t, "ATIVA", company.Status)
}

func TestOrchestrator_ValidateCompanyRecordsRateLimit(t *testing.T) {
	reset := time.Now().Add(time.Minute)
	v := &fakeValidator{
		fakeProvider: fakeProvider{name: "receita_federal"},
		err:          provider.NewRateLimitError("receita_federal", reset),
	}
	o := newOrchestrator(t, v)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	_, err := o.Initialize(context.Background())
	require.NoError(t, err)

	_, err = o.ValidateCompany(context.Background(), "11444777000161")
	assert.Error(t, err)

	snapshot := o.Health()
	assert.Equal(t, health.StatusRateLimited, snapshot["receita_federal"].Status)
	require.NotNil(t, snapshot["receita_federal"].RateLimitReset)

	// Parked validator refuses further calls until the reset.
	_, err = o.ValidateCompany(context.Background(), "11444777000161")
	assert.Error(t, err)
}

func TestOrchestrator_ValidateCompanyWithoutValidator(t *testing.T) {
	o := newOrchestrator(t, &fakeSearcher{fakeProvider: fakeProvider{name: "pncp"}})
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	_, err := o.Initialize(context.Background())
	require.NoError(t, err)

	_, err = o.ValidateCompany(context.Background(), "11444777000161")
	assert.Error(t, err)
}

func TestOrchestrator_Transfers(t *testing.T) {
	tr := &fakeTransferer{
		fakeProvider: fakeProvider{name: "siconv"},
		transfers:    []provider.Transfer{{ID: "123", Source: "siconv", Kind: "transfer"}},
	}
	o := newOrchestrator(t, tr)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	_, err := o.Initialize(context.Background())
	require.NoError(t, err)

	transfers, err := o.Transfers(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, transfers, 1)

	agreements, err := o.Agreements(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, agreements, 1)
}

func TestOrchestrator_Details(t *testing.T) {
	p := &fakeSearcher{
		fakeProvider: fakeProvider{name: "pncp"},
		results:      []provider.Tender{{ID: "t-1", Source: "pncp"}},
	}
	o := newOrchestrator(t, p)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	_, err := o.Initialize(context.Background())
	require.NoError(t, err)

	tender, err := o.Details(context.Background(), "pncp", "t-1")
	require.NoError(t, err)
	require.NotNil(t, tender)

	_, err = o.Details(context.Background(), "nonexistent", "t-1")
	assert.Error(t, err)
}

func TestOrchestrator_Modalities(t *testing.T) {
	withCatalog := &fakeModalityLister{fakeSearcher{fakeProvider: fakeProvider{name: "pncp"}}}
	without := &fakeSearcher{fakeProvider: fakeProvider{name: "comprasnet"}}
	o := newOrchestrator(t, withCatalog, without)

	modalities := o.Modalities()
	require.Len(t, modalities, 1)
	assert.Equal(t, "Pregão", modalities[0].Name)
}
