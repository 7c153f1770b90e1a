// Package strategy implements the gateway's caching algorithms: the four
// ways a request is satisfied from a partition and the network.
//
// Every algorithm returns a response entry, never an error: network
// failures degrade to cache fallbacks or synthesized 503 responses, and
// storage failures degrade to misses (reads) or logged no-ops (writes).
package strategy

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mentesana/offgate/internal/classify"
	"github.com/mentesana/offgate/internal/fetch"
	"github.com/mentesana/offgate/internal/partition"
	"github.com/mentesana/offgate/internal/stats"
)

// Executor runs caching strategies against partitions.
// Background refreshes are detached but tracked; Drain joins them.
type Executor struct {
	fetcher fetch.Fetcher
	stats   stats.Collector
	logger  *zap.Logger

	bg sync.WaitGroup
}

// New creates an executor. Collector and logger fall back to no-ops.
func New(f fetch.Fetcher, c stats.Collector, l *zap.Logger) *Executor {
	if c == nil {
		c = stats.NewNoop()
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Executor{fetcher: f, stats: c, logger: l}
}

// Do dispatches a request to the strategy bound to its category and
// returns a response entry. The mapping is fixed: critical assets are
// cache-first, static assets stale-while-revalidate, API and unmatched
// requests network-first, images cache-first-with-validation.
func (e *Executor) Do(ctx context.Context, cat classify.Category, req *http.Request, part partition.Partition) *partition.Entry {
	e.stats.IncCounter(stats.MetricRequests, 1)

	switch cat {
	case classify.Critical:
		return e.cacheFirst(ctx, req, part)
	case classify.Static:
		return e.staleWhileRevalidate(ctx, req, part)
	case classify.API:
		return e.networkFirst(ctx, req, part, true)
	case classify.Images:
		return e.cacheFirstValidate(ctx, req, part)
	case classify.Default:
		return e.networkFirst(ctx, req, part, false)
	}

	// Unknown categories behave like Default.
	return e.networkFirst(ctx, req, part, false)
}

// Drain waits for all detached background refreshes to finish.
func (e *Executor) Drain() {
	e.bg.Wait()
}

// cacheFirst serves from the partition when possible and only touches the
// network on a miss. A miss that also fails on the network synthesizes a
// 503; the page never sees an error.
func (e *Executor) cacheFirst(ctx context.Context, req *http.Request, part partition.Partition) *partition.Entry {
	key := partition.Key(req)

	if cached, ok := e.lookup(ctx, part, key); ok {
		return cached
	}

	entry, err := e.fetchNetwork(ctx, req)
	if err != nil {
		e.stats.IncCounter(stats.MetricFallbacks, 1)
		e.logger.Warn("cache-first: miss and network failed",
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return offlineText(textNetworkError)
	}

	e.storeDetached(ctx, part, key, entry)
	return entry
}

// networkFirst prefers a fresh response, falling back to the partition
// when the network fails. A total failure synthesizes the API offline JSON
// body for API requests and a plain-text 503 otherwise.
func (e *Executor) networkFirst(ctx context.Context, req *http.Request, part partition.Partition, api bool) *partition.Entry {
	key := partition.Key(req)

	entry, err := e.fetchNetwork(ctx, req)
	if err == nil {
		e.store(ctx, part, key, entry)
		return entry
	}

	if cached, ok := e.lookup(ctx, part, key); ok {
		e.logger.Debug("network-first: serving cached fallback",
			zap.String("url", req.URL.String()),
		)
		return cached
	}

	e.stats.IncCounter(stats.MetricFallbacks, 1)
	e.logger.Warn("network-first: offline with no cached entry",
		zap.String("url", req.URL.String()),
		zap.Bool("api", api),
		zap.Error(err),
	)
	if api {
		return offlineJSON()
	}
	return offlineText(textOffline)
}

// staleWhileRevalidate returns the cached entry immediately when present
// and refreshes it in the background. Only a miss waits on the network.
func (e *Executor) staleWhileRevalidate(ctx context.Context, req *http.Request, part partition.Partition) *partition.Entry {
	key := partition.Key(req)

	if cached, ok := e.lookup(ctx, part, key); ok {
		e.refreshDetached(ctx, req, part, key)
		return cached
	}

	entry, err := e.fetchNetwork(ctx, req)
	if err != nil {
		e.stats.IncCounter(stats.MetricFallbacks, 1)
		e.logger.Warn("stale-while-revalidate: miss and network failed",
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return offlineText(textNetworkError)
	}

	e.store(ctx, part, key, entry)
	return entry
}

// cacheFirstValidate serves from the partition like cacheFirst but also
// refreshes a hit in the background so the next request sees fresh bytes.
func (e *Executor) cacheFirstValidate(ctx context.Context, req *http.Request, part partition.Partition) *partition.Entry {
	key := partition.Key(req)

	if cached, ok := e.lookup(ctx, part, key); ok {
		e.refreshDetached(ctx, req, part, key)
		return cached
	}

	entry, err := e.fetchNetwork(ctx, req)
	if err != nil {
		e.stats.IncCounter(stats.MetricFallbacks, 1)
		e.logger.Warn("cache-first-with-validation: miss and network failed",
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return offlineText(textNetworkError)
	}

	e.store(ctx, part, key, entry)
	return entry
}

// lookup reads the partition, treating any storage failure as a miss.
func (e *Executor) lookup(ctx context.Context, part partition.Partition, key string) (*partition.Entry, bool) {
	entry, err := part.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, partition.ErrNotFound) {
			e.logger.Warn("cache read failed, treating as miss",
				zap.String("partition", part.Name()),
				zap.Error(err),
			)
		}
		e.stats.IncCounter(stats.MetricCacheMisses, 1)
		return nil, false
	}
	e.stats.IncCounter(stats.MetricCacheHits, 1)
	return entry, true
}

// fetchNetwork performs a timed network fetch.
func (e *Executor) fetchNetwork(ctx context.Context, req *http.Request) (*partition.Entry, error) {
	e.stats.IncCounter(stats.MetricNetworkFetches, 1)
	start := time.Now()

	entry, err := e.fetcher.Do(ctx, req)

	e.stats.ObserveHistogram(stats.MetricFetchSeconds, time.Since(start).Seconds())
	if err != nil {
		e.stats.IncCounter(stats.MetricNetworkFailures, 1)
		return nil, err
	}
	return entry, nil
}

// store writes an entry, logging and discarding storage failures so the
// in-flight response is still returned.
func (e *Executor) store(ctx context.Context, part partition.Partition, key string, entry *partition.Entry) {
	if err := part.Put(ctx, key, entry); err != nil {
		e.logger.Warn("cache write failed",
			zap.String("partition", part.Name()),
			zap.Error(err),
		)
	}
}

// storeDetached writes an entry in a detached task so the caller does not
// block on storage. Best-effort: failures are logged and discarded.
func (e *Executor) storeDetached(ctx context.Context, part partition.Partition, key string, entry *partition.Entry) {
	entry = entry.Clone()
	bg := context.WithoutCancel(ctx)

	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		bg, cancel := context.WithTimeout(bg, fetch.DefaultTimeout)
		defer cancel()
		e.store(bg, part, key, entry)
	}()
}

// refreshDetached re-fetches a cached entry in a detached task and stores
// the result for the next request. The returned response does not wait on
// it; callers must not assume the partition is updated on return.
func (e *Executor) refreshDetached(ctx context.Context, req *http.Request, part partition.Partition, key string) {
	refresh := req.Clone(context.WithoutCancel(ctx))

	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		bg, cancel := context.WithTimeout(refresh.Context(), fetch.DefaultTimeout)
		defer cancel()

		entry, err := e.fetchNetwork(bg, refresh)
		if err != nil {
			e.logger.Debug("background refresh failed",
				zap.String("url", refresh.URL.String()),
				zap.Error(err),
			)
			return
		}
		e.store(bg, part, key, entry)
	}()
}
