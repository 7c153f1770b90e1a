// Package diskgatewayfx provides an fx module for a disk-backed offline
// cache gateway.
package diskgatewayfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mentesana/offgate"
	"github.com/mentesana/offgate/internal/codec/zstdcodec"
	"github.com/mentesana/offgate/internal/partition/diskpart"
	"github.com/mentesana/offgate/internal/stats"
	"github.com/mentesana/offgate/internal/stats/logger"
)

// Config holds configuration for the disk-backed gateway.
type Config struct {
	// Root is the directory holding cache partitions.
	Root string

	// Version is the deployment version used in partition names.
	Version string

	// Origin resolves relative precache and preload URLs.
	Origin string
}

// Module provides a disk-backed gateway.
// Requires a *zap.Logger and a Config to be provided.
var Module = fx.Module("diskgateway",
	fx.Provide(
		newStatsCollector,
		newGateway,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("offgate.stats"))
}

// Params holds dependencies for creating the gateway.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided gateway.
type Result struct {
	fx.Out

	Gateway *offgate.Gateway
}

func newGateway(p Params) (Result, error) {
	reg, err := diskpart.New(p.Config.Root, zstdcodec.New())
	if err != nil {
		return Result{}, err
	}

	opts := []offgate.Option{
		offgate.WithRegistry(reg),
		offgate.WithStats(p.Collector),
		offgate.WithLogger(p.Logger.Named("offgate")),
		offgate.WithOrigin(p.Config.Origin),
	}
	if p.Config.Version != "" {
		opts = append(opts, offgate.WithVersion(p.Config.Version))
	}

	gw, err := offgate.New(opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return gw.Close()
		},
	})

	return Result{Gateway: gw}, nil
}
