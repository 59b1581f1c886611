// Package server exposes the orchestrator over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cotai/tendersearch/internal/health"
	"github.com/cotai/tendersearch/internal/provider"
)

// Orchestrator is the subset of orchestrator methods the API serves.
type Orchestrator interface {
	Search(ctx context.Context, query string, sources []string, filters map[string]any) ([]provider.Tender, error)
	Details(ctx context.Context, source, id string) (*provider.Tender, error)
	ValidateCompany(ctx context.Context, cnpj string) (bool, error)
	CompanyInfo(ctx context.Context, cnpj string) (*provider.Company, error)
	Transfers(ctx context.Context, filters map[string]any) ([]provider.Transfer, error)
	Agreements(ctx context.Context, filters map[string]any) ([]provider.Transfer, error)
	Agencies(ctx context.Context) ([]provider.Agency, error)
	Modalities() []provider.Modality
	Health() map[string]health.Health
	AvailableProviders() []string
}

// Config holds HTTP server configuration.
type Config struct {
	Port         int
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps a chi router over the orchestrator.
type Server struct {
	router chi.Router
	orch   Orchestrator
	cfg    Config
	log    *zap.Logger
}

// New builds the router with health, search, company, and transfer routes.
func New(orch Orchestrator, cfg Config) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	s := &Server{
		orch: orch,
		cfg:  cfg,
		log:  zap.L().With(zap.String("component", "server")),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/tenders/{source}/{id}", s.handleDetails)
		r.Get("/companies/{cnpj}", s.handleCompanyInfo)
		r.Get("/companies/{cnpj}/valid", s.handleValidateCompany)
		r.Get("/transfers", s.handleTransfers)
		r.Get("/agreements", s.handleAgreements)
		r.Get("/agencies", s.handleAgencies)
		r.Get("/modalities", s.handleModalities)
	})
	s.router = r

	return s
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until ctx is cancelled, then
// performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.Info("listening", zap.Int("port", s.cfg.Port))
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"available": s.orch.AvailableProviders(),
		"providers": s.orch.Health(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	var sources []string
	if raw := q.Get("sources"); raw != "" {
		sources = strings.Split(raw, ",")
	}

	tenders, err := s.orch.Search(r.Context(), query, sources, searchFilters(q))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(tenders),
		"tenders": tenders,
	})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	id := chi.URLParam(r, "id")

	tender, err := s.orch.Details(r.Context(), source, id)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownProvider) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown source %q", source))
			return
		}
		s.writeUpstreamError(w, err)
		return
	}
	if tender == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("tender %s not found on %s", id, source))
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

func (s *Server) handleCompanyInfo(w http.ResponseWriter, r *http.Request) {
	cnpj := chi.URLParam(r, "cnpj")

	company, err := s.orch.CompanyInfo(r.Context(), cnpj)
	if err != nil {
		if provider.IsNotFound(err) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("cnpj %s not found", cnpj))
			return
		}
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (s *Server) handleValidateCompany(w http.ResponseWriter, r *http.Request) {
	cnpj := chi.URLParam(r, "cnpj")

	ok, err := s.orch.ValidateCompany(r.Context(), cnpj)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cnpj": cnpj, "valid": ok})
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := s.orch.Transfers(r.Context(), transferFilters(r.URL.Query()))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(transfers), "transfers": transfers})
}

func (s *Server) handleAgreements(w http.ResponseWriter, r *http.Request) {
	agreements, err := s.orch.Agreements(r.Context(), transferFilters(r.URL.Query()))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(agreements), "agreements": agreements})
}

func (s *Server) handleAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := s.orch.Agencies(r.Context())
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(agencies), "agencies": agencies})
}

func (s *Server) handleModalities(w http.ResponseWriter, r *http.Request) {
	modalities := s.orch.Modalities()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(modalities), "modalities": modalities})
}

// writeUpstreamError maps orchestrator errors to status codes. A rate-limit
// error carries its reset time as a Retry-After header.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	if rl, ok := provider.AsRateLimit(err); ok {
		if wait := time.Until(rl.ResetAt); wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.log.Error("request failed", zap.Error(err))
	writeError(w, http.StatusBadGateway, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}
