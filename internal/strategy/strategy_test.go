package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mentesana/offgate/internal/classify"
	"github.com/mentesana/offgate/internal/fetch"
	"github.com/mentesana/offgate/internal/partition"
	"github.com/mentesana/offgate/internal/partition/mempart"
)

// fakeFetcher is an in-memory network for testing.
type fakeFetcher struct {
	entries map[string]*partition.Entry
	err     error
	calls   atomic.Int64

	// block, when set, delays every fetch until the channel is closed.
	block chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{entries: make(map[string]*partition.Entry)}
}

func (f *fakeFetcher) set(url, body string) {
	f.entries[url] = &partition.Entry{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{"text/plain"}},
		Body:     []byte(body),
		StoredAt: time.Now().UTC(),
	}
}

func (f *fakeFetcher) Do(ctx context.Context, req *http.Request) (*partition.Entry, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.entries[req.URL.String()]
	if !ok {
		return nil, errors.New("fake: connection refused")
	}
	return e.Clone(), nil
}

func testPartition(t *testing.T) partition.Partition {
	t.Helper()
	part, err := mempart.New().Open(context.Background(), "test-static-v1.0.0")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return part
}

func getRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func prePopulate(t *testing.T, part partition.Partition, req *http.Request, body string) {
	t.Helper()
	err := part.Put(context.Background(), partition.Key(req), &partition.Entry{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{"text/html"}},
		Body:     []byte(body),
		StoredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
}

func TestCacheFirst_HitSkipsNetwork(t *testing.T) {
	fetcher := newFakeFetcher()
	part := testPartition(t)
	req := getRequest(t, "https://app.example/index.html")
	prePopulate(t, part, req, "cached shell")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.Critical, req, part)
	e.Drain()

	if string(entry.Body) != "cached shell" {
		t.Errorf("Body = %q, want %q", entry.Body, "cached shell")
	}
	if got := fetcher.calls.Load(); got != 0 {
		t.Errorf("network calls = %d, want 0", got)
	}
}

func TestCacheFirst_MissFetchesAndStores(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("https://app.example/index.html", "fresh shell")
	part := testPartition(t)
	req := getRequest(t, "https://app.example/index.html")

	e := New(fetcher, nil, nil)

	entry := e.Do(context.Background(), classify.Critical, req, part)
	if entry.Status != http.StatusOK {
		t.Fatalf("Status = %d, want 200", entry.Status)
	}
	if string(entry.Body) != "fresh shell" {
		t.Errorf("Body = %q, want %q", entry.Body, "fresh shell")
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}

	// The store is detached; join it before checking the partition.
	e.Drain()

	second := e.Do(context.Background(), classify.Critical, req, part)
	if string(second.Body) != "fresh shell" {
		t.Errorf("second Body = %q, want %q", second.Body, "fresh shell")
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("network calls after second request = %d, want 1", got)
	}
}

func TestCacheFirst_MissAndNetworkFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.err = errors.New("fake: timeout")
	part := testPartition(t)
	req := getRequest(t, "https://app.example/index.html")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.Critical, req, part)
	e.Drain()

	if entry.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", entry.Status)
	}
	if string(entry.Body) != "Error de red" {
		t.Errorf("Body = %q, want %q", entry.Body, "Error de red")
	}
}

func TestNetworkFirst_Success(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("https://app.example/api/entries", `{"entries":[]}`)
	part := testPartition(t)
	req := getRequest(t, "https://app.example/api/entries")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.API, req, part)
	e.Drain()

	if string(entry.Body) != `{"entries":[]}` {
		t.Errorf("Body = %q, want fresh response", entry.Body)
	}

	// The fresh response must have been stored for offline fallback.
	stored, err := part.Get(context.Background(), partition.Key(req))
	if err != nil {
		t.Fatalf("Get() after network-first error = %v", err)
	}
	if string(stored.Body) != `{"entries":[]}` {
		t.Errorf("stored Body = %q, want fresh response", stored.Body)
	}
}

func TestNetworkFirst_FallsBackToCache(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.err = errors.New("fake: offline")
	part := testPartition(t)
	req := getRequest(t, "https://app.example/api/entries")
	prePopulate(t, part, req, "stale entries")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.API, req, part)
	e.Drain()

	if string(entry.Body) != "stale entries" {
		t.Errorf("Body = %q, want cached fallback", entry.Body)
	}
}

func TestNetworkFirst_OfflineAPIFallbackShape(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.err = errors.New("fake: offline")
	part := testPartition(t)
	req := getRequest(t, "https://app.example/api/entries")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.API, req, part)
	e.Drain()

	if entry.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", entry.Status)
	}
	if ct := entry.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(entry.Body, &body); err != nil {
		t.Fatalf("fallback body is not JSON: %v", err)
	}
	if body.Success {
		t.Error("fallback success = true, want false")
	}
	if body.Error != "offline" {
		t.Errorf("fallback error = %q, want %q", body.Error, "offline")
	}
	if body.Message == "" {
		t.Error("fallback message is empty")
	}
}

func TestNetworkFirst_OfflineDefaultFallbackIsText(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.err = errors.New("fake: offline")
	part := testPartition(t)
	req := getRequest(t, "https://app.example/something")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.Default, req, part)
	e.Drain()

	if entry.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", entry.Status)
	}
	if string(entry.Body) != "Sin conexión" {
		t.Errorf("Body = %q, want %q", entry.Body, "Sin conexión")
	}
}

func TestStaleWhileRevalidate_ReturnsCachedImmediately(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.block = make(chan struct{}) // network never resolves
	part := testPartition(t)
	req := getRequest(t, "https://app.example/assets/app.css")
	prePopulate(t, part, req, "cached css")

	e := New(fetcher, nil, nil)

	done := make(chan *partition.Entry, 1)
	go func() {
		done <- e.Do(context.Background(), classify.Static, req, part)
	}()

	select {
	case entry := <-done:
		if string(entry.Body) != "cached css" {
			t.Errorf("Body = %q, want %q", entry.Body, "cached css")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stale-while-revalidate waited on the network with a cached entry present")
	}

	close(fetcher.block)
	e.Drain()
}

func TestStaleWhileRevalidate_RefreshesInBackground(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("https://app.example/assets/app.css", "fresh css")
	part := testPartition(t)
	req := getRequest(t, "https://app.example/assets/app.css")
	prePopulate(t, part, req, "cached css")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.Static, req, part)
	if string(entry.Body) != "cached css" {
		t.Errorf("Body = %q, want cached value", entry.Body)
	}

	e.Drain()

	updated, err := part.Get(context.Background(), partition.Key(req))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(updated.Body) != "fresh css" {
		t.Errorf("partition Body after refresh = %q, want %q", updated.Body, "fresh css")
	}
}

func TestStaleWhileRevalidate_MissAwaitsNetwork(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("https://app.example/assets/app.css", "fresh css")
	part := testPartition(t)
	req := getRequest(t, "https://app.example/assets/app.css")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.Static, req, part)
	e.Drain()

	if string(entry.Body) != "fresh css" {
		t.Errorf("Body = %q, want network response", entry.Body)
	}
	if _, err := part.Get(context.Background(), partition.Key(req)); err != nil {
		t.Errorf("Get() after miss fill error = %v", err)
	}
}

func TestCacheFirstValidate_HitRefreshes(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("https://app.example/photo.png", "new image")
	part := testPartition(t)
	req := getRequest(t, "https://app.example/photo.png")
	prePopulate(t, part, req, "old image")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.Images, req, part)
	if string(entry.Body) != "old image" {
		t.Errorf("Body = %q, want cached value", entry.Body)
	}

	e.Drain()

	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("network calls = %d, want 1 background refresh", got)
	}
	updated, err := part.Get(context.Background(), partition.Key(req))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(updated.Body) != "new image" {
		t.Errorf("partition Body after validation = %q, want %q", updated.Body, "new image")
	}
}

func TestDo_UnknownCategoryBehavesLikeDefault(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.set("https://app.example/x", "ok")
	part := testPartition(t)
	req := getRequest(t, "https://app.example/x")

	e := New(fetcher, nil, nil)
	entry := e.Do(context.Background(), classify.Category(99), req, part)
	e.Drain()

	if string(entry.Body) != "ok" {
		t.Errorf("Body = %q, want network response", entry.Body)
	}
}

func TestExecutor_RealFetcherIntegration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("served"))
	}))
	defer srv.Close()

	part := testPartition(t)
	req := getRequest(t, srv.URL+"/index.html")

	e := New(fetch.New(), nil, nil)
	entry := e.Do(context.Background(), classify.Critical, req, part)
	e.Drain()

	if entry.Status != http.StatusOK {
		t.Fatalf("Status = %d, want 200", entry.Status)
	}
	if string(entry.Body) != "served" {
		t.Errorf("Body = %q, want %q", entry.Body, "served")
	}
}
