// Package mempart provides an in-memory partition registry. Partitions are
// bounded by an LRU so a long-lived gateway cannot grow without limit.
package mempart

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mentesana/offgate/internal/partition"
)

// DefaultCapacity is the per-partition entry bound when none is given.
const DefaultCapacity = 4096

// Compile-time checks.
var (
	_ partition.Registry  = (*Registry)(nil)
	_ partition.Partition = (*Partition)(nil)
)

// Registry is an in-memory partition registry.
type Registry struct {
	capacity int

	mu    sync.Mutex
	parts map[string]*Partition
}

// Option configures a Registry.
type Option func(*Registry)

// WithCapacity sets the per-partition entry bound.
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// New creates an empty in-memory registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		capacity: DefaultCapacity,
		parts:    make(map[string]*Partition),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the named partition, creating it if absent.
func (r *Registry) Open(ctx context.Context, name string) (partition.Partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.parts[name]; ok {
		return p, nil
	}

	entries, err := lru.New[string, *partition.Entry](r.capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: creating partition %q: %v", partition.ErrStorage, name, err)
	}
	p := &Partition{name: name, entries: entries}
	r.parts[name] = p
	return p, nil
}

// ListNames enumerates every partition in the registry.
func (r *Registry) ListNames(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.parts))
	for name := range r.parts {
		names = append(names, name)
	}
	return names, nil
}

// Delete drops the named partition and all its entries.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.parts, name)
	return nil
}

// Close is a no-op for the memory registry.
func (r *Registry) Close() error {
	return nil
}

// Partition is an in-memory, LRU-bounded partition.
type Partition struct {
	name    string
	entries *lru.Cache[string, *partition.Entry]
}

// Name returns the partition name.
func (p *Partition) Name() string { return p.name }

// Get returns a copy of the entry stored under key.
func (p *Partition) Get(ctx context.Context, key string) (*partition.Entry, error) {
	e, ok := p.entries.Get(key)
	if !ok {
		return nil, partition.ErrNotFound
	}
	return e.Clone(), nil
}

// Put stores a copy of the entry under key.
func (p *Partition) Put(ctx context.Context, key string, e *partition.Entry) error {
	p.entries.Add(key, e.Clone())
	return nil
}

// Len returns the number of entries in the partition.
func (p *Partition) Len(ctx context.Context) (int, error) {
	return p.entries.Len(), nil
}
