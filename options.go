package offgate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mentesana/offgate/internal/classify"
	"github.com/mentesana/offgate/internal/codec/zstdcodec"
	"github.com/mentesana/offgate/internal/config"
	"github.com/mentesana/offgate/internal/fetch"
	"github.com/mentesana/offgate/internal/partition"
	"github.com/mentesana/offgate/internal/partition/diskpart"
	"github.com/mentesana/offgate/internal/partition/gcspart"
	"github.com/mentesana/offgate/internal/partition/levelpart"
	"github.com/mentesana/offgate/internal/partition/mempart"
	"github.com/mentesana/offgate/internal/partition/s3part"
	"github.com/mentesana/offgate/internal/stats"
)

// DefaultRules classifies the mentesana app's URL space: the app shell is
// critical, bundled assets are static, and the BaaS REST/auth endpoints
// are API calls.
func DefaultRules() classify.Rules {
	return classify.Rules{
		CriticalPaths: []string{
			"/",
			"/index.html",
			"/app.html",
			"/styles.css",
			"/app.js",
			"/manifest.json",
		},
		StaticPrefixes: []string{
			"/assets/",
			"/static/",
			"/css/",
			"/js/",
			"/img/",
		},
		APIPatterns: []string{
			"/api/",
			"/rest/v1/",
			"/auth/v1/",
		},
	}
}

// Option configures a Gateway.
type Option interface {
	apply(*options)
}

// options holds the gateway configuration.
type options struct {
	registry         partition.Registry
	fetcher          fetch.Fetcher
	rules            classify.Rules
	app              string
	version          string
	origin           string
	host             Host
	stats            stats.Collector
	logger           *zap.Logger
	precacheCritical []string
	precacheStatic   []string
	takeover         bool
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		fetcher: fetch.New(),
		rules:   DefaultRules(),
		app:     "mentesana",
		version: "1.0.0",
		host:    NoopHost{},
		stats:   stats.NewNoop(),
		logger:  zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithRegistry sets the partition registry to use.
func WithRegistry(r partition.Registry) Option {
	return optionFunc(func(o *options) {
		o.registry = r
	})
}

// WithFetcher sets the network fetcher.
// If not set, a default HTTP fetcher is used.
func WithFetcher(f fetch.Fetcher) Option {
	return optionFunc(func(o *options) {
		o.fetcher = f
	})
}

// WithRules sets the classification rules.
// If not set, DefaultRules is used.
func WithRules(r classify.Rules) Option {
	return optionFunc(func(o *options) {
		o.rules = r
	})
}

// WithApp sets the app name used in partition names.
func WithApp(app string) Option {
	return optionFunc(func(o *options) {
		o.app = app
	})
}

// WithVersion sets the deployment version. Bumping it renames every
// partition, which is what makes old partitions eligible for cleanup on
// activation.
func WithVersion(v string) Option {
	return optionFunc(func(o *options) {
		o.version = v
	})
}

// WithOrigin sets the origin that relative precache and preload URLs are
// resolved against.
func WithOrigin(origin string) Option {
	return optionFunc(func(o *options) {
		o.origin = origin
	})
}

// WithHost sets the hosting environment collaborator.
// If not set, a no-op host is used.
func WithHost(h Host) Option {
	return optionFunc(func(o *options) {
		o.host = h
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithPrecache sets the URL lists populated into the static partition on
// install.
func WithPrecache(critical, static []string) Option {
	return optionFunc(func(o *options) {
		o.precacheCritical = critical
		o.precacheStatic = static
	})
}

// WithImmediateTakeover makes Install activate this gateway generation
// right away instead of leaving a pending update for SKIP_WAITING.
func WithImmediateTakeover() Option {
	return optionFunc(func(o *options) {
		o.takeover = true
	})
}

// WithConfigFile configures the gateway from a YAML configuration file:
// app identity, origin, classification rules, precache lists and the
// storage backend. This is the recommended way to create a gateway for a
// deployment.
func WithConfigFile(ctx context.Context, path string) (Option, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	reg, err := openRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return optionFunc(func(o *options) {
		o.registry = reg
		o.app = cfg.App
		o.version = cfg.Version
		o.origin = cfg.Server.Origin
		o.rules = classify.Rules{
			CriticalPaths:  cfg.Classify.Critical,
			StaticPrefixes: cfg.Classify.StaticPrefixes,
			APIPatterns:    cfg.Classify.APIPatterns,
		}
		o.precacheCritical = cfg.Precache.Critical
		o.precacheStatic = cfg.Precache.Static
	}), nil
}

// openRegistry builds the partition registry named by the config.
func openRegistry(ctx context.Context, cfg config.Config) (partition.Registry, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		var opts []mempart.Option
		if cfg.Storage.Entries > 0 {
			opts = append(opts, mempart.WithCapacity(cfg.Storage.Entries))
		}
		return mempart.New(opts...), nil
	case config.BackendDisk:
		return diskpart.New(cfg.Storage.Root, zstdcodec.New())
	case config.BackendLevelDB:
		return levelpart.New(cfg.Storage.Root)
	case config.BackendGCS:
		return gcspart.New(ctx, cfg.Storage.Bucket, zstdcodec.New(),
			gcspart.WithPrefix(cfg.Storage.Prefix))
	case config.BackendS3:
		opts := []s3part.Option{s3part.WithPrefix(cfg.Storage.Prefix)}
		if cfg.Storage.Region != "" {
			opts = append(opts, s3part.WithRegion(cfg.Storage.Region))
		}
		return s3part.New(ctx, cfg.Storage.Bucket, zstdcodec.New(), opts...)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
