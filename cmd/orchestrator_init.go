package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cotai/tendersearch/internal/category"
	"github.com/cotai/tendersearch/internal/dispatch"
	"github.com/cotai/tendersearch/internal/orchestrator"
	"github.com/cotai/tendersearch/internal/provider"
	"github.com/cotai/tendersearch/internal/provider/comprasnet"
	"github.com/cotai/tendersearch/internal/provider/pncp"
	"github.com/cotai/tendersearch/internal/provider/receita"
	"github.com/cotai/tendersearch/internal/provider/siconv"
)

// initOrchestrator registers every enabled provider, brings them up, and
// starts the health monitor. Callers should defer a Shutdown.
func initOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	classifier, err := loadClassifier()
	if err != nil {
		return nil, err
	}

	reg := provider.NewRegistry()

	if cfg.PNCP.Enabled {
		if err := reg.Register(pncp.New(pncp.Config{
			BaseURL:     cfg.PNCP.BaseURL,
			MaxRequests: cfg.PNCP.MaxRequests,
			Window:      secs(cfg.PNCP.WindowSecs),
			Timeout:     secs(cfg.PNCP.TimeoutSecs),
		}, classifier)); err != nil {
			return nil, eris.Wrap(err, "register pncp")
		}
	}
	if cfg.Comprasnet.Enabled {
		if err := reg.Register(comprasnet.New(comprasnet.Config{
			BaseURL:     cfg.Comprasnet.BaseURL,
			MaxRequests: cfg.Comprasnet.MaxRequests,
			Window:      secs(cfg.Comprasnet.WindowSecs),
			Timeout:     secs(cfg.Comprasnet.TimeoutSecs),
		}, classifier)); err != nil {
			return nil, eris.Wrap(err, "register comprasnet")
		}
	}
	if cfg.Receita.Enabled {
		if err := reg.Register(receita.New(receita.Config{
			Endpoints:   cfg.Receita.Endpoints,
			MaxRequests: cfg.Receita.MaxRequests,
			Window:      secs(cfg.Receita.WindowSecs),
			Timeout:     secs(cfg.Receita.TimeoutSecs),
		})); err != nil {
			return nil, eris.Wrap(err, "register receita")
		}
	}
	if cfg.Siconv.Enabled {
		if err := reg.Register(siconv.New(siconv.Config{
			BaseURL:     cfg.Siconv.BaseURL,
			APIKey:      cfg.Siconv.APIKey,
			MaxRequests: cfg.Siconv.MaxRequests,
			Window:      secs(cfg.Siconv.WindowSecs),
			Timeout:     secs(cfg.Siconv.TimeoutSecs),
		})); err != nil {
			return nil, eris.Wrap(err, "register siconv")
		}
	}

	orch := orchestrator.New(reg, orchestrator.Config{
		MonitorInterval: secs(cfg.Monitor.IntervalSecs),
		MonitorTimeout:  secs(cfg.Monitor.TimeoutSecs),
		Dispatch: dispatch.Options{
			MaxResults:  cfg.Search.MaxResults,
			Concurrency: cfg.Search.Concurrency,
		},
	})

	results, err := orch.Initialize(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "initialize providers")
	}
	for name, res := range results {
		if res.OK {
			zap.L().Info("provider ready", zap.String("provider", name))
		} else {
			zap.L().Warn("provider unavailable", zap.String("provider", name), zap.Error(res.Err))
		}
	}

	return orch, nil
}

func loadClassifier() (*category.Classifier, error) {
	if cfg.Categories.RulesPath == "" {
		return category.NewClassifier(), nil
	}
	c, err := category.LoadClassifier(cfg.Categories.RulesPath)
	if err != nil {
		return nil, eris.Wrap(err, "load category rules")
	}
	return c, nil
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
