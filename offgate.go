// Package offgate implements the offline cache gateway for the mentesana
// wellness app: a worker that sits between the app and the network,
// intercepts every outbound request, and decides per request how to
// satisfy it from a set of named, versioned cache partitions.
//
// Example usage:
//
//	gw, err := offgate.New(
//	    offgate.WithRegistry(mempart.New()),
//	    offgate.WithVersion("1.0.0"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Close()
//
//	resp, err := gw.HandleFetch(ctx, req)
package offgate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mentesana/offgate/internal/classify"
	"github.com/mentesana/offgate/internal/fetch"
	"github.com/mentesana/offgate/internal/partition"
	"github.com/mentesana/offgate/internal/stats"
	"github.com/mentesana/offgate/internal/strategy"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the gateway has been closed.
	ErrClosed = errors.New("offgate: gateway closed")

	// ErrNoRegistry indicates no partition registry was provided.
	ErrNoRegistry = errors.New("offgate: no partition registry provided")
)

// Gateway is the offline cache gateway.
// A Gateway is safe for concurrent use by multiple goroutines.
type Gateway struct {
	registry   partition.Registry
	classifier *classify.Classifier
	executor   *strategy.Executor
	fetcher    fetch.Fetcher
	names      partition.Names
	origin     string
	host       Host
	stats      stats.Collector
	logger     *zap.Logger

	precacheCritical []string
	precacheStatic   []string
	takeover         bool

	pending atomic.Bool
	active  atomic.Bool
	closed  atomic.Bool
}

// New creates a new Gateway with the given options.
// A partition registry is required; everything else has defaults.
func New(opts ...Option) (*Gateway, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.registry == nil {
		return nil, ErrNoRegistry
	}

	g := &Gateway{
		registry:         cfg.registry,
		classifier:       classify.New(cfg.rules),
		fetcher:          cfg.fetcher,
		names:            partition.Names{App: cfg.app, Version: cfg.version},
		origin:           cfg.origin,
		host:             cfg.host,
		stats:            cfg.stats,
		logger:           cfg.logger,
		precacheCritical: cfg.precacheCritical,
		precacheStatic:   cfg.precacheStatic,
		takeover:         cfg.takeover,
	}
	g.executor = strategy.New(g.fetcher, g.stats, g.logger.Named("strategy"))

	g.logger.Debug("gateway initialized",
		zap.String("app", cfg.app),
		zap.String("version", cfg.version),
		zap.Strings("partitions", g.names.All()),
	)

	return g, nil
}

// PartitionNames returns the partition names owned by this gateway version.
func (g *Gateway) PartitionNames() []string {
	return g.names.All()
}

// Close drains background cache refreshes and releases the registry.
// After Close, the gateway should not be used.
func (g *Gateway) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	g.executor.Drain()

	if err := g.registry.Close(); err != nil {
		return fmt.Errorf("closing registry: %w", err)
	}
	return nil
}

// Drain blocks until in-flight background cache refreshes finish.
// Useful for hosts that want a quiet gateway before suspending.
func (g *Gateway) Drain() {
	g.executor.Drain()
}

// CacheStats returns a mapping of partition name to entry count for every
// partition currently present, including stale ones from old versions.
func (g *Gateway) CacheStats(ctx context.Context) (map[string]int, error) {
	if g.closed.Load() {
		return nil, ErrClosed
	}

	names, err := g.registry.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}

	out := make(map[string]int, len(names))
	total := 0
	for _, name := range names {
		part, err := g.registry.Open(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("opening partition %q: %w", name, err)
		}
		n, err := part.Len(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting partition %q: %w", name, err)
		}
		out[name] = n
		total += n
	}

	g.stats.SetGauge(stats.MetricPartitionEntries, int64(total))
	return out, nil
}

// ClearCaches deletes every partition unconditionally and returns the
// deleted names.
func (g *Gateway) ClearCaches(ctx context.Context) ([]string, error) {
	if g.closed.Load() {
		return nil, ErrClosed
	}

	names, err := g.registry.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}
	for _, name := range names {
		if err := g.registry.Delete(ctx, name); err != nil {
			return nil, fmt.Errorf("deleting partition %q: %w", name, err)
		}
	}

	g.logger.Info("caches cleared", zap.Strings("partitions", names))
	return names, nil
}

// partitionName maps a category to the partition serving it. Critical and
// static assets share the static partition; API calls get their own;
// images and unmatched requests land in the dynamic partition.
func (g *Gateway) partitionName(cat classify.Category) string {
	switch cat {
	case classify.Critical, classify.Static:
		return g.names.Static()
	case classify.API:
		return g.names.API()
	}
	return g.names.Dynamic()
}

// resolveURL makes a configured URL absolute against the origin.
// Absolute URLs pass through untouched.
func (g *Gateway) resolveURL(raw string) string {
	if strings.HasPrefix(raw, "/") && g.origin != "" {
		return g.origin + raw
	}
	return raw
}
