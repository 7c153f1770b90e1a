package mempart

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/mentesana/offgate/internal/partition"
)

func testEntry(body string) *partition.Entry {
	return &partition.Entry{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{"text/plain"}},
		Body:     []byte(body),
		StoredAt: time.Now().UTC(),
	}
}

func TestRegistry_OpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reg := New()

	first, err := reg.Open(ctx, "app-static-v1.0.0")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := first.Put(ctx, "k", testEntry("v")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	second, err := reg.Open(ctx, "app-static-v1.0.0")
	if err != nil {
		t.Fatalf("Open() second call error = %v", err)
	}

	got, err := second.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() through second handle error = %v", err)
	}
	if string(got.Body) != "v" {
		t.Errorf("Body = %q, want %q", got.Body, "v")
	}
}

func TestPartition_GetMiss(t *testing.T) {
	ctx := context.Background()
	reg := New()

	p, err := reg.Open(ctx, "app-dynamic-v1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Get(ctx, "absent"); !errors.Is(err, partition.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPartition_OverwriteByKey(t *testing.T) {
	ctx := context.Background()
	reg := New()

	p, _ := reg.Open(ctx, "app-dynamic-v1.0.0")
	p.Put(ctx, "k", testEntry("old"))
	p.Put(ctx, "k", testEntry("new"))

	got, err := p.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Body) != "new" {
		t.Errorf("Body = %q, want %q", got.Body, "new")
	}
	if n, _ := p.Len(ctx); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestPartition_CloneIsolation(t *testing.T) {
	ctx := context.Background()
	reg := New()

	p, _ := reg.Open(ctx, "app-dynamic-v1.0.0")
	e := testEntry("original")
	p.Put(ctx, "k", e)
	e.Body[0] = 'X' // caller mutation must not reach the store

	got, _ := p.Get(ctx, "k")
	if string(got.Body) != "original" {
		t.Errorf("Body = %q, want %q", got.Body, "original")
	}

	got.Body[0] = 'Y' // reader mutation must not reach the store
	again, _ := p.Get(ctx, "k")
	if string(again.Body) != "original" {
		t.Errorf("Body after reader mutation = %q, want %q", again.Body, "original")
	}
}

func TestRegistry_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	reg := New()

	reg.Open(ctx, "a")
	reg.Open(ctx, "b")

	if err := reg.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	// Deleting an absent name is not an error.
	if err := reg.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() absent error = %v", err)
	}

	names, err := reg.ListNames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "b" {
		t.Errorf("ListNames() = %v, want [b]", names)
	}
}

func TestPartition_CapacityBound(t *testing.T) {
	ctx := context.Background()
	reg := New(WithCapacity(2))

	p, _ := reg.Open(ctx, "bounded")
	p.Put(ctx, "a", testEntry("a"))
	p.Put(ctx, "b", testEntry("b"))
	p.Put(ctx, "c", testEntry("c"))

	if n, _ := p.Len(ctx); n != 2 {
		t.Errorf("Len() = %d, want 2 after eviction", n)
	}
	// The oldest entry was evicted.
	if _, err := p.Get(ctx, "a"); !errors.Is(err, partition.ErrNotFound) {
		t.Errorf("Get(a) error = %v, want ErrNotFound", err)
	}
}
