// Package partition defines the named cache partition model used by the
// gateway: versioned partitions holding request-keyed response snapshots.
package partition

import (
	"context"
	"errors"
)

// Sentinel errors for well-defined storage conditions.
var (
	// ErrNotFound is returned when a key has no entry in a partition.
	ErrNotFound = errors.New("partition: entry not found")

	// ErrStorage indicates a storage-level failure (quota exhaustion,
	// backend unavailable). Callers treat failed reads as misses and
	// failed writes as best-effort.
	ErrStorage = errors.New("partition: storage failure")
)

// Partition is a named cache store holding request-key to response entries.
// Implementations must be safe for concurrent use.
type Partition interface {
	// Name returns the partition name, including its version suffix.
	Name() string

	// Get returns the entry stored under key.
	// Returns ErrNotFound if the key has no entry.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores an entry under key, overwriting any previous entry.
	Put(ctx context.Context, key string, e *Entry) error

	// Len returns the number of entries currently stored.
	Len(ctx context.Context) (int, error)
}

// Registry manages named partitions.
// Opening the same name twice yields the same logical partition.
type Registry interface {
	// Open returns the partition with the given name, creating it empty
	// if it does not exist. Open is idempotent.
	Open(ctx context.Context, name string) (Partition, error)

	// ListNames enumerates every partition currently present, including
	// ones created by previous gateway versions.
	ListNames(ctx context.Context) ([]string, error)

	// Delete drops the named partition and all its entries.
	// Deleting an absent name is not an error.
	Delete(ctx context.Context, name string) error

	// Close releases any resources held by the registry.
	Close() error
}

// CleanupStale deletes every partition whose name is not in allow and
// returns the deleted names. Deletion is scoped per name; reads against
// surviving partitions are unaffected.
func CleanupStale(ctx context.Context, reg Registry, allow []string) ([]string, error) {
	keep := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		keep[name] = struct{}{}
	}

	names, err := reg.ListNames(ctx)
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, name := range names {
		if _, ok := keep[name]; ok {
			continue
		}
		if err := reg.Delete(ctx, name); err != nil {
			return deleted, err
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}
