// Package s3part implements a partition registry backed by AWS S3.
package s3part

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mentesana/offgate/internal/codec"
	"github.com/mentesana/offgate/internal/partition"
)

// Compile-time checks.
var (
	_ partition.Registry  = (*Registry)(nil)
	_ partition.Partition = (*Partition)(nil)
)

// Registry is an S3-backed partition registry.
// Partitions live under <prefix><name>/ in the bucket.
type Registry struct {
	client *s3.Client
	bucket string
	prefix string
	codec  codec.Codec
}

// New creates a new S3 registry. The bucket must already exist.
// The codec handles compression of stored entries.
func New(ctx context.Context, bucketName string, c codec.Codec, opts ...Option) (*Registry, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	r := &Registry{
		client: s3.NewFromConfig(cfg),
		bucket: bucketName,
		codec:  c,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Option configures a Registry.
type Option func(*Registry) error

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(r *Registry) error {
		r.prefix = strings.TrimSuffix(prefix, "/")
		if r.prefix != "" {
			r.prefix += "/"
		}
		return nil
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(r *Registry) error {
		cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
		if err != nil {
			return fmt.Errorf("loading AWS config with region: %w", err)
		}
		r.client = s3.NewFromConfig(cfg)
		return nil
	}
}

// WithEndpoint sets a custom endpoint (for S3-compatible services like MinIO).
func WithEndpoint(endpoint string) Option {
	return func(r *Registry) error {
		cfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			return fmt.Errorf("loading AWS config for endpoint: %w", err)
		}
		r.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
		return nil
	}
}

// Open returns the named partition. Partitions have no marker object;
// they exist once their first entry is written.
func (r *Registry) Open(ctx context.Context, name string) (partition.Partition, error) {
	return &Partition{
		name:   name,
		client: r.client,
		bucket: r.bucket,
		prefix: r.prefix + name + "/",
		codec:  r.codec,
	}, nil
}

// ListNames enumerates partition prefixes in the bucket.
func (r *Registry) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(r.bucket),
		Prefix:    aws.String(r.prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: listing partitions: %v", partition.ErrStorage, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), r.prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// Delete removes every object under the named partition's prefix.
func (r *Registry) Delete(ctx context.Context, name string) error {
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.prefix + name + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("%w: listing partition %q: %v", partition.ErrStorage, name, err)
		}
		for _, obj := range page.Contents {
			_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(r.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("%w: deleting partition %q: %v", partition.ErrStorage, name, err)
			}
		}
	}
	return nil
}

// Close releases resources.
func (r *Registry) Close() error {
	return nil
}

// Partition is an S3-backed partition.
type Partition struct {
	name   string
	client *s3.Client
	bucket string
	prefix string
	codec  codec.Codec
}

// Name returns the partition name.
func (p *Partition) Name() string { return p.name }

// Get reads and decompresses the entry stored under key.
func (p *Partition) Get(ctx context.Context, key string) (*partition.Entry, error) {
	result, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.entryKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, partition.ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading entry: %v", partition.ErrStorage, err)
	}
	defer result.Body.Close()

	raw, err := io.ReadAll(result.Body)
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

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.entryKey(key)),
		Body:   bytes.NewReader(compressed),
	})
	if err != nil {
		return fmt.Errorf("%w: writing entry: %v", partition.ErrStorage, err)
	}
	return nil
}

// Len counts the objects under the partition's prefix.
func (p *Partition) Len(ctx context.Context) (int, error) {
	n := 0
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(p.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: counting entries: %v", partition.ErrStorage, err)
		}
		n += len(page.Contents)
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
