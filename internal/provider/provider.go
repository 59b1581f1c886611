// Package provider defines the capability interfaces and registry for
// government data source adapters.
package provider

import "context"

// Provider is the lifecycle contract every adapter implements. An adapter
// owns its HTTP client and its fixed-window request budget; when the budget
// denies a call the adapter fails fast with a RateLimitError instead of
// blocking, so the dispatcher's fan-out stays bounded in time.
type Provider interface {
	// Name returns the source identifier (e.g. "pncp").
	Name() string
	// Initialize prepares the adapter for traffic.
	Initialize(ctx context.Context) error
	// Close releases the adapter's resources. Safe to call more than once.
	Close(ctx context.Context) error
	// HealthCheck performs the cheapest possible round-trip. It must honor
	// ctx's deadline so a hung upstream cannot stall the monitor loop.
	HealthCheck(ctx context.Context) bool
}

// TenderSearcher is implemented by providers that expose tender search.
type TenderSearcher interface {
	Provider
	// Search returns normalized tenders matching query.
	Search(ctx context.Context, query string, filters map[string]any) ([]Tender, error)
	// Details fetches one tender by its upstream ID. A missing tender is
	// ErrNotFound, not a health signal.
	Details(ctx context.Context, id string) (*Tender, error)
}

// CompanyValidator is implemented by providers that can look up companies
// by CNPJ (Receita Federal).
type CompanyValidator interface {
	Provider
	// CompanyInfo fetches registration data for a CNPJ, or ErrNotFound.
	CompanyInfo(ctx context.Context, cnpj string) (*Company, error)
	// ValidateCompany reports whether the CNPJ exists and is active.
	ValidateCompany(ctx context.Context, cnpj string) (bool, error)
}

// TransferSearcher is implemented by providers exposing federal transfer
// and agreement data (SICONV / Portal da Transparência).
type TransferSearcher interface {
	Provider
	// Transfers returns federal transfers matching filters.
	Transfers(ctx context.Context, filters map[string]any) ([]Transfer, error)
	// Agreements returns federal agreements matching filters.
	Agreements(ctx context.Context, filters map[string]any) ([]Transfer, error)
}

// AgencyLister is implemented by providers that can enumerate government
// agencies.
type AgencyLister interface {
	// Agencies returns the provider's known contracting agencies.
	Agencies(ctx context.Context) ([]Agency, error)
}

// ModalityLister is implemented by providers with a fixed contracting
// modality catalog.
type ModalityLister interface {
	Modalities() []Modality
}
