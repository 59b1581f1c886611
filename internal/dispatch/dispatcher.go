// Package dispatch fans queries out to every usable provider, aggregates
// the partial results, and ranks them. A provider failing is a health event,
// never a search error.
package dispatch

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cotai/tendersearch/internal/health"
	"github.com/cotai/tendersearch/internal/provider"
)

// Options tunes the dispatcher.
type Options struct {
	// MaxResults caps the merged result list. Zero means no cap.
	MaxResults int
	// Concurrency bounds the fan-out. Zero means one goroutine per
	// provider.
	Concurrency int
}

// Dispatcher coordinates concurrent searches across providers. It reads
// usability from the health registry before dispatch and writes outcomes
// back after.
type Dispatcher struct {
	providers *provider.Registry
	health    *health.Registry
	opts      Options
	log       *zap.Logger

	nowFunc func() time.Time
}

// New creates a Dispatcher over the given registries.
func New(providers *provider.Registry, healthReg *health.Registry, opts Options) *Dispatcher {
	return &Dispatcher{
		providers: providers,
		health:    healthReg,
		opts:      opts,
		log:       zap.L().With(zap.String("component", "dispatch")),
		nowFunc:   time.Now,
	}
}

// Search queries the requested sources concurrently and returns the merged,
// scored, ranked results. An empty sources list means every registered
// searcher. Individual provider failures are recorded in the health
// registry and contribute zero results; even a total outage returns an
// empty list, never an error.
func (d *Dispatcher) Search(ctx context.Context, query string, sources []string, filters map[string]any) ([]provider.Tender, error) {
	requestID := uuid.NewString()[:8]
	log := d.log.With(zap.String("request_id", requestID), zap.String("query", query))

	candidates := d.candidates(sources, log)
	if len(candidates) == 0 {
		log.Warn("no usable providers for search")
		return []provider.Tender{}, nil
	}

	// One slot per provider keeps merge order equal to registration order
	// regardless of which goroutine finishes first.
	slots := make([][]provider.Tender, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	if d.opts.Concurrency > 0 {
		g.SetLimit(d.opts.Concurrency)
	}
	for i, name := range candidates {
		i, name := i, name
		searcher, ok := d.providers.Searcher(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			results, err := searcher.Search(gCtx, query, filters)
			if err != nil {
				d.recordFailure(name, err)
				log.Warn("provider search failed", zap.String("provider", name), zap.Error(err))
				return nil
			}
			d.health.Update(name, health.StatusActive, health.WithResponseTime(time.Since(start)))
			slots[i] = results
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	now := d.nowFunc()
	var merged []provider.Tender
	for _, slot := range slots {
		for _, t := range slot {
			t.RelevanceScore = Score(&t, query, now)
			t.RetrievedAt = now
			merged = append(merged, t)
		}
	}

	// Stable sort: equal scores keep provider registration order, then the
	// provider's own result order.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})

	if d.opts.MaxResults > 0 && len(merged) > d.opts.MaxResults {
		merged = merged[:d.opts.MaxResults]
	}

	log.Info("search dispatched",
		zap.Int("providers", len(candidates)),
		zap.Int("results", len(merged)))
	return merged, nil
}

// Details fetches one tender from a specific source. An unknown source is
// an error; an upstream failure is recorded as a health event and returns
// (nil, nil), matching a genuine not-found.
func (d *Dispatcher) Details(ctx context.Context, source, id string) (*provider.Tender, error) {
	searcher, ok := d.providers.Searcher(source)
	if !ok {
		return nil, provider.ErrUnknownProvider
	}
	if !d.health.IsUsable(source) {
		return nil, nil
	}

	start := time.Now()
	tender, err := searcher.Details(ctx, id)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		d.recordFailure(source, err)
		d.log.Warn("details failed", zap.String("provider", source), zap.String("id", id), zap.Error(err))
		return nil, nil
	}

	d.health.Update(source, health.StatusActive, health.WithResponseTime(time.Since(start)))
	return tender, nil
}

// candidates resolves the effective source list: explicit sources when
// given, otherwise every registered searcher, filtered down to the usable
// ones.
func (d *Dispatcher) candidates(sources []string, log *zap.Logger) []string {
	if len(sources) == 0 {
		sources = d.providers.SearcherNames()
	}

	usable := make([]string, 0, len(sources))
	for _, name := range sources {
		if _, ok := d.providers.Searcher(name); !ok {
			log.Warn("skipping unknown source", zap.String("source", name))
			continue
		}
		if !d.health.IsUsable(name) {
			log.Debug("skipping unusable source", zap.String("source", name))
			continue
		}
		usable = append(usable, name)
	}
	return usable
}

// recordFailure turns a provider error into the matching health state: a
// rate-limit denial parks the provider until its reset, anything else marks
// it errored. A caller hanging up mid-search says nothing about the
// provider, so cancellation is not recorded (a deadline hit is; the
// provider really was too slow).
func (d *Dispatcher) recordFailure(name string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if rle, ok := provider.AsRateLimit(err); ok {
		d.health.Update(name, health.StatusRateLimited,
			health.WithError(err),
			health.WithRateLimitReset(rle.ResetAt))
		return
	}
	d.health.Update(name, health.StatusError, health.WithError(err))
}
