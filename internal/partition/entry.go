package partition

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Entry is an immutable snapshot of a network response: status, headers,
// body and the time it was stored. Entries are overwritten whole, never
// patched in place.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Clone returns a deep copy of the entry so callers cannot mutate stored
// state through shared header maps or body slices.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := &Entry{
		Status:   e.Status,
		Header:   make(http.Header, len(e.Header)),
		Body:     make([]byte, len(e.Body)),
		StoredAt: e.StoredAt,
	}
	for k, v := range e.Header {
		vv := make([]string, len(v))
		copy(vv, v)
		c.Header[k] = vv
	}
	copy(c.Body, e.Body)
	return c
}

// Encode serializes the entry for persistent backends.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("encoding entry: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeEntry deserializes an entry produced by Encode.
func DecodeEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return nil, fmt.Errorf("decoding entry: %w", err)
	}
	return &e, nil
}

// Key returns the lookup key for a request: method plus normalized URL.
// Fragments are stripped and the scheme/host lowercased, so two requests
// for the same resource collide regardless of call site.
func Key(req *http.Request) string {
	u := *req.URL
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + u.String()
}

// KeyForURL returns the lookup key for a GET of the given URL string.
// Used by precache and preload paths that start from raw URL lists.
func KeyForURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", raw, err)
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return http.MethodGet + " " + u.String(), nil
}
