// Package memorygatewayfx provides an fx module for an in-memory offline
// cache gateway. Useful for testing.
package memorygatewayfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mentesana/offgate"
	"github.com/mentesana/offgate/internal/partition/mempart"
	"github.com/mentesana/offgate/internal/stats"
	"github.com/mentesana/offgate/internal/stats/logger"
)

// Module provides an in-memory gateway for testing.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("memorygateway",
	fx.Provide(
		newStatsCollector,
		newRegistry,
		newGateway,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("offgate.stats"))
}

func newRegistry() *mempart.Registry {
	return mempart.New()
}

// Params holds dependencies for creating the gateway.
type Params struct {
	fx.In

	Logger    *zap.Logger
	Collector stats.Collector
	Registry  *mempart.Registry
	Lifecycle fx.Lifecycle
}

// Result holds the provided gateway and registry.
type Result struct {
	fx.Out

	Gateway  *offgate.Gateway
	Registry *mempart.Registry // Exposed for test setup
}

func newGateway(p Params) (Result, error) {
	gw, err := offgate.New(
		offgate.WithRegistry(p.Registry),
		offgate.WithStats(p.Collector),
		offgate.WithLogger(p.Logger.Named("offgate")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return gw.Close()
		},
	})

	return Result{
		Gateway:  gw,
		Registry: p.Registry,
	}, nil
}
