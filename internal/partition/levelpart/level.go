// Package levelpart implements a partition registry backed by LevelDB.
// Each partition is its own database directory; entries are gob-encoded.
package levelpart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/mentesana/offgate/internal/partition"
)

// Compile-time checks.
var (
	_ partition.Registry  = (*Registry)(nil)
	_ partition.Partition = (*Partition)(nil)
)

// Registry manages one LevelDB database per partition under a root
// directory. Open handles are shared, so opening a name twice returns the
// same logical partition.
type Registry struct {
	root string

	mu   sync.Mutex
	open map[string]*Partition
}

// New creates a registry rooted at the given directory, creating it if
// needed.
func New(root string) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating root directory: %v", partition.ErrStorage, err)
	}
	return &Registry{
		root: root,
		open: make(map[string]*Partition),
	}, nil
}

// Open returns the named partition, creating its database if absent.
func (r *Registry) Open(ctx context.Context, name string) (partition.Partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.open[name]; ok {
		return p, nil
	}

	db, err := leveldb.OpenFile(filepath.Join(r.root, name), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: opening partition %q: %v", partition.ErrStorage, name, err)
	}
	p := &Partition{name: name, db: db}
	r.open[name] = p
	return p, nil
}

// ListNames enumerates partition databases under the root, including ones
// left behind by previous versions that are not currently open.
func (r *Registry) ListNames(ctx context.Context) ([]string, error) {
	dirs, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("%w: listing partitions: %v", partition.ErrStorage, err)
	}
	var names []string
	for _, d := range dirs {
		if d.IsDir() {
			names = append(names, d.Name())
		}
	}
	return names, nil
}

// Delete closes the named partition if open and removes its database.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	if p, ok := r.open[name]; ok {
		p.db.Close()
		delete(r.open, name)
	}
	r.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(r.root, name)); err != nil {
		return fmt.Errorf("%w: deleting partition %q: %v", partition.ErrStorage, name, err)
	}
	return nil
}

// Close closes every open partition database.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, p := range r.open {
		if err := p.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing partition %q: %w", name, err)
		}
		delete(r.open, name)
	}
	return firstErr
}

// Partition is a LevelDB-backed partition.
type Partition struct {
	name string
	db   *leveldb.DB
}

// Name returns the partition name.
func (p *Partition) Name() string { return p.name }

// Get reads the entry stored under key.
func (p *Partition) Get(ctx context.Context, key string) (*partition.Entry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := p.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, partition.ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading entry: %v", partition.ErrStorage, err)
	}
	return partition.DecodeEntry(data)
}

// Put stores the entry under key.
func (p *Partition) Put(ctx context.Context, key string, e *partition.Entry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := e.Encode()
	if err != nil {
		return err
	}
	if err := p.db.Put([]byte(key), data, nil); err != nil {
		return fmt.Errorf("%w: writing entry: %v", partition.ErrStorage, err)
	}
	return nil
}

// Len counts the entries in the partition.
func (p *Partition) Len(ctx context.Context) (int, error) {
	iter := p.db.NewIterator(nil, nil)
	defer iter.Release()

	n := 0
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("%w: counting entries: %v", partition.ErrStorage, err)
	}
	return n, nil
}
