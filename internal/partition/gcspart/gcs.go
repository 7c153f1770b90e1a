// Package gcspart implements a partition registry backed by Google Cloud
// Storage, for deployments that share one warm cache across instances.
package gcspart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/mentesana/offgate/internal/codec"
	"github.com/mentesana/offgate/internal/partition"
)

// Compile-time checks.
var (
	_ partition.Registry  = (*Registry)(nil)
	_ partition.Partition = (*Partition)(nil)
)

// Registry is a GCS-backed partition registry.
// Partitions live under <prefix><name>/ in the bucket.
type Registry struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	codec  codec.Codec
}

// New creates a new GCS registry. The bucket must already exist.
// The codec handles compression of stored entries.
func New(ctx context.Context, bucketName string, c codec.Codec, opts ...Option) (*Registry, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	r := &Registry{
		client: client,
		bucket: client.Bucket(bucketName),
		codec:  c,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Option configures a Registry.
type Option func(*Registry)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(r *Registry) {
		r.prefix = strings.TrimSuffix(prefix, "/")
		if r.prefix != "" {
			r.prefix += "/"
		}
	}
}

// Open returns the named partition. Partitions have no marker object;
// they exist once their first entry is written.
func (r *Registry) Open(ctx context.Context, name string) (partition.Partition, error) {
	return &Partition{
		name:   name,
		bucket: r.bucket,
		prefix: r.prefix + name + "/",
		codec:  r.codec,
	}, nil
}

// ListNames enumerates partition prefixes in the bucket.
func (r *Registry) ListNames(ctx context.Context) ([]string, error) {
	it := r.bucket.Objects(ctx, &storage.Query{
		Prefix:    r.prefix,
		Delimiter: "/",
	})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: listing partitions: %v", partition.ErrStorage, err)
		}
		if attrs.Prefix == "" {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, r.prefix), "/")
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Delete removes every object under the named partition's prefix.
func (r *Registry) Delete(ctx context.Context, name string) error {
	it := r.bucket.Objects(ctx, &storage.Query{Prefix: r.prefix + name + "/"})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: listing partition %q: %v", partition.ErrStorage, name, err)
		}
		if err := r.bucket.Object(attrs.Name).Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
			return fmt.Errorf("%w: deleting partition %q: %v", partition.ErrStorage, name, err)
		}
	}
	return nil
}

// Close releases the underlying client.
func (r *Registry) Close() error {
	return r.client.Close()
}

// Partition is a GCS-backed partition.
type Partition struct {
	name   string
	bucket *storage.BucketHandle
	prefix string
	codec  codec.Codec
}

// Name returns the partition name.
func (p *Partition) Name() string { return p.name }

// Get reads and decompresses the entry stored under key.
func (p *Partition) Get(ctx context.Context, key string) (*partition.Entry, error) {
	reader, err := p.bucket.Object(p.entryKey(key)).NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, partition.ErrNotFound
		}
		return nil, fmt.Errorf("%w: creating reader: %v", partition.ErrStorage, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading entry: %v", partition.ErrStorage, err)
	}

	data, err := codec.Decompress(p.codec, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing entry: %v", partition.ErrStorage, err)
	}
	return partition.DecodeEntry(data)
}

// Put compresses and writes the entry under key.
func (p *Partition) Put(ctx context.Context, key string, e *partition.Entry) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	compressed, err := codec.Compress(p.codec, data)
	if err != nil {
		return fmt.Errorf("%w: compressing entry: %v", partition.ErrStorage, err)
	}

	w := p.bucket.Object(p.entryKey(key)).NewWriter(ctx)
	if _, err := w.Write(compressed); err != nil {
		w.Close()
		return fmt.Errorf("%w: writing entry: %v", partition.ErrStorage, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: writing entry: %v", partition.ErrStorage, err)
	}
	return nil
}

// Len counts the objects under the partition's prefix.
func (p *Partition) Len(ctx context.Context) (int, error) {
	it := p.bucket.Objects(ctx, &storage.Query{Prefix: p.prefix})
	n := 0
	for {
		_, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: counting entries: %v", partition.ErrStorage, err)
		}
		n++
	}
	return n, nil
}

// entryKey returns the full object key for a request key.
func (p *Partition) entryKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	if ext := p.codec.Extension(); ext != "" {
		name += "." + ext
	}
	return p.prefix + name
}
