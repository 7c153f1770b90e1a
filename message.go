package offgate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentesana/offgate/internal/fetch"
	"github.com/mentesana/offgate/internal/partition"
	"github.com/mentesana/offgate/internal/stats"
)

// Commands the host may send over the control channel. The set is closed;
// unrecognized types are silent no-ops.
const (
	MsgSkipWaiting      = "SKIP_WAITING"
	MsgClearCache       = "CLEAR_CACHE"
	MsgGetCacheStats    = "GET_CACHE_STATS"
	MsgPreloadResources = "PRELOAD_RESOURCES"
)

// Reply types pushed back over the reply port.
const (
	ReplyCacheCleared       = "CACHE_CLEARED"
	ReplyCacheStats         = "CACHE_STATS"
	ReplyResourcesPreloaded = "RESOURCES_PRELOADED"
)

// Message is a control-channel command from the host.
type Message struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Reply is the gateway's answer to a Message, correlated by ID.
type Reply struct {
	ID   string          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// PreloadResult reports the outcome of a PRELOAD_RESOURCES command.
type PreloadResult struct {
	Stored []string `json:"stored"`
	Failed []string `json:"failed"`
}

// HandleMessage dispatches one control-channel command. Commands without
// a reply return nil. Unknown command types are ignored, not failed.
func (g *Gateway) HandleMessage(ctx context.Context, msg Message) (*Reply, error) {
	if g.closed.Load() {
		return nil, ErrClosed
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	switch msg.Type {
	case MsgSkipWaiting:
		return nil, g.SkipWaiting(ctx)

	case MsgClearCache:
		cleared, err := g.ClearCaches(ctx)
		if err != nil {
			return nil, err
		}
		return reply(msg.ID, ReplyCacheCleared, cleared)

	case MsgGetCacheStats:
		counts, err := g.CacheStats(ctx)
		if err != nil {
			return nil, err
		}
		return reply(msg.ID, ReplyCacheStats, counts)

	case MsgPreloadResources:
		var data struct {
			URLs []string `json:"urls"`
		}
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return nil, fmt.Errorf("parsing preload payload: %w", err)
			}
		}
		result := g.PreloadResources(ctx, data.URLs)
		return reply(msg.ID, ReplyResourcesPreloaded, result)
	}

	g.logger.Debug("ignoring unknown control message", zap.String("type", msg.Type))
	return nil, nil
}

// PreloadResources eagerly fetches the given URLs into the dynamic
// partition, continuing past individual failures and reporting which
// succeeded.
func (g *Gateway) PreloadResources(ctx context.Context, urls []string) PreloadResult {
	result := PreloadResult{Stored: []string{}, Failed: []string{}}

	part, err := g.registry.Open(ctx, g.names.Dynamic())
	if err != nil {
		g.logger.Warn("preload: opening dynamic partition failed", zap.Error(err))
		result.Failed = append(result.Failed, urls...)
		return result
	}

	for _, raw := range urls {
		resolved := g.resolveURL(raw)
		key, err := partition.KeyForURL(resolved)
		if err != nil {
			g.logger.Warn("preload: bad url", zap.String("url", raw), zap.Error(err))
			result.Failed = append(result.Failed, raw)
			continue
		}

		entry, err := fetch.Get(ctx, g.fetcher, resolved)
		if err != nil {
			g.logger.Warn("preload: fetch failed", zap.String("url", resolved), zap.Error(err))
			result.Failed = append(result.Failed, raw)
			continue
		}
		if err := part.Put(ctx, key, entry); err != nil {
			g.logger.Warn("preload: store failed", zap.String("url", resolved), zap.Error(err))
			result.Failed = append(result.Failed, raw)
			continue
		}

		g.stats.IncCounter(stats.MetricPreloaded, 1)
		result.Stored = append(result.Stored, raw)
	}

	return result
}

// reply marshals data into a correlated Reply.
func reply(id, typ string, data any) (*Reply, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s reply: %w", typ, err)
	}
	return &Reply{ID: id, Type: typ, Data: raw}, nil
}
