package offgate

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/mentesana/offgate/internal/fetch"
	"github.com/mentesana/offgate/internal/partition"
	"github.com/mentesana/offgate/internal/stats"
)

// Install pre-populates the static partition from the configured critical
// and static URL lists, fetching in parallel. Individual fetch failures
// are logged and skipped. The install is left pending until SkipWaiting
// or Activate runs, unless the gateway was configured for immediate
// takeover. Re-running Install simply re-fetches and overwrites.
func (g *Gateway) Install(ctx context.Context) error {
	if g.closed.Load() {
		return ErrClosed
	}

	part, err := g.registry.Open(ctx, g.names.Static())
	if err != nil {
		return fmt.Errorf("opening static partition: %w", err)
	}

	urls := make([]string, 0, len(g.precacheCritical)+len(g.precacheStatic))
	urls = append(urls, g.precacheCritical...)
	urls = append(urls, g.precacheStatic...)

	stored := g.warm(ctx, part, urls, stats.MetricPrecached)

	g.logger.Info("install complete",
		zap.String("partition", part.Name()),
		zap.Int("requested", len(urls)),
		zap.Int("stored", len(stored)),
	)

	g.pending.Store(true)
	if g.takeover {
		return g.Activate(ctx)
	}
	return nil
}

// Activate purges partitions from previous versions and claims control of
// all open app instances so future requests route through this gateway
// generation.
func (g *Gateway) Activate(ctx context.Context) error {
	if g.closed.Load() {
		return ErrClosed
	}

	deleted, err := partition.CleanupStale(ctx, g.registry, g.names.All())
	if err != nil {
		return fmt.Errorf("cleaning up stale partitions: %w", err)
	}
	if len(deleted) > 0 {
		g.logger.Info("deleted stale partitions", zap.Strings("partitions", deleted))
	}

	if err := g.host.ClaimClients(ctx); err != nil {
		return fmt.Errorf("claiming clients: %w", err)
	}

	g.pending.Store(false)
	g.active.Store(true)
	g.logger.Info("gateway activated", zap.String("version", g.names.Version))
	return nil
}

// SkipWaiting promotes a pending install by activating it immediately.
// A no-op when no install is pending.
func (g *Gateway) SkipWaiting(ctx context.Context) error {
	if g.closed.Load() {
		return ErrClosed
	}
	if !g.pending.Load() {
		g.logger.Debug("skip waiting with no pending install")
		return nil
	}
	return g.Activate(ctx)
}

// Pending reports whether an installed gateway generation is waiting for
// activation.
func (g *Gateway) Pending() bool {
	return g.pending.Load()
}

// HandleFetch routes one request through the gateway: classify, pick the
// partition, run the category's strategy. It always returns a response
// (possibly a synthesized 503) unless the gateway is closed; the network
// layer never surfaces an error to the page. Cross-origin requests are
// classified by the same rules as same-origin ones.
func (g *Gateway) HandleFetch(ctx context.Context, req *http.Request) (*Response, error) {
	if g.closed.Load() {
		return nil, ErrClosed
	}

	cat := g.classifier.Classify(req.URL)

	part, err := g.registry.Open(ctx, g.partitionName(cat))
	if err != nil {
		// A partition that cannot open must not take the fetch handler
		// down with it; the strategy runs cache-less instead.
		g.logger.Warn("partition open failed, serving without cache",
			zap.String("partition", g.partitionName(cat)),
			zap.Error(err),
		)
		part = partition.Discard(g.partitionName(cat))
	}

	g.logger.Debug("fetch",
		zap.String("url", req.URL.String()),
		zap.String("category", cat.String()),
		zap.String("partition", part.Name()),
	)

	return entryToResponse(g.executor.Do(ctx, cat, req, part)), nil
}

// warm fetches each URL and stores it into the partition, continuing past
// individual failures. Fetches run in parallel; the returned slice holds
// the URLs that were stored.
func (g *Gateway) warm(ctx context.Context, part partition.Partition, urls []string, metric string) []string {
	var (
		mu     sync.Mutex
		stored []string
		wg     sync.WaitGroup
	)

	for _, raw := range urls {
		wg.Add(1)
		go func(raw string) {
			defer wg.Done()

			resolved := g.resolveURL(raw)
			key, err := partition.KeyForURL(resolved)
			if err != nil {
				g.logger.Warn("warm: bad url", zap.String("url", raw), zap.Error(err))
				return
			}

			entry, err := fetch.Get(ctx, g.fetcher, resolved)
			if err != nil {
				g.logger.Warn("warm: fetch failed", zap.String("url", resolved), zap.Error(err))
				return
			}
			if err := part.Put(ctx, key, entry); err != nil {
				g.logger.Warn("warm: store failed", zap.String("url", resolved), zap.Error(err))
				return
			}

			g.stats.IncCounter(metric, 1)
			mu.Lock()
			stored = append(stored, raw)
			mu.Unlock()
		}(raw)
	}

	wg.Wait()
	return stored
}
