// Package diskpart implements a filesystem-backed partition registry.
// Each partition is a directory; each entry is a codec-compressed file
// named by the hash of its request key.
package diskpart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mentesana/offgate/internal/codec"
	"github.com/mentesana/offgate/internal/partition"
)

// Compile-time checks.
var (
	_ partition.Registry  = (*Registry)(nil)
	_ partition.Partition = (*Partition)(nil)
)

// Registry is a disk-based partition registry rooted at a directory.
type Registry struct {
	root  string
	codec codec.Codec
}

// New creates a registry rooted at the given directory, creating it if
// needed. The codec handles compression of stored entries.
func New(root string, c codec.Codec) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating root directory: %v", partition.ErrStorage, err)
	}
	return &Registry{root: root, codec: c}, nil
}

// Open returns the named partition, creating its directory if absent.
func (r *Registry) Open(ctx context.Context, name string) (partition.Partition, error) {
	dir := filepath.Join(r.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating partition %q: %v", partition.ErrStorage, name, err)
	}
	return &Partition{name: name, dir: dir, codec: r.codec}, nil
}

// ListNames enumerates partition directories under the root.
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

// Delete removes the named partition directory and all its entries.
func (r *Registry) Delete(ctx context.Context, name string) error {
	if err := os.RemoveAll(filepath.Join(r.root, name)); err != nil {
		return fmt.Errorf("%w: deleting partition %q: %v", partition.ErrStorage, name, err)
	}
	return nil
}

// Close releases any resources held by the registry.
func (r *Registry) Close() error {
	return nil
}

// Partition is a directory of compressed entry files.
type Partition struct {
	name  string
	dir   string
	codec codec.Codec
}

// Name returns the partition name.
func (p *Partition) Name() string { return p.name }

// Get reads and decompresses the entry stored under key.
func (p *Partition) Get(ctx context.Context, key string) (*partition.Entry, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	raw, err := os.ReadFile(p.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, partition.ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading entry: %v", partition.ErrStorage, err)
	}

	data, err := codec.Decompress(p.codec, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing entry: %v", partition.ErrStorage, err)
	}
	return partition.DecodeEntry(data)
}

// Put compresses and writes the entry under key. The write goes through a
// temp file and rename so readers never observe a partial entry.
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
	compressed, err := codec.Compress(p.codec, data)
	if err != nil {
		return fmt.Errorf("%w: compressing entry: %v", partition.ErrStorage, err)
	}

	path := p.entryPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("%w: writing entry: %v", partition.ErrStorage, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: writing entry: %v", partition.ErrStorage, err)
	}
	return nil
}

// Len counts the entry files in the partition directory.
func (p *Partition) Len(ctx context.Context) (int, error) {
	files, err := os.ReadDir(p.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: listing entries: %v", partition.ErrStorage, err)
	}
	n := 0
	for _, f := range files {
		if !f.IsDir() && !strings.HasSuffix(f.Name(), ".tmp") {
			n++
		}
	}
	return n, nil
}

// entryPath returns the filesystem path for a request key.
func (p *Partition) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	if ext := p.codec.Extension(); ext != "" {
		name += "." + ext
	}
	return filepath.Join(p.dir, name)
}
