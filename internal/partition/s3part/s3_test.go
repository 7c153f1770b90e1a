package s3part

import (
	"strings"
	"testing"

	"github.com/mentesana/offgate/internal/codec/noopcodec"
	"github.com/mentesana/offgate/internal/codec/zstdcodec"
)

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"prefix", "prefix/"},
		{"prefix/", "prefix/"},
		{"a/b/c", "a/b/c/"},
		{"a/b/c/", "a/b/c/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := &Registry{}
			if err := WithPrefix(tt.input)(r); err != nil {
				t.Fatalf("WithPrefix() error = %v", err)
			}
			if r.prefix != tt.want {
				t.Errorf("prefix = %q, want %q", r.prefix, tt.want)
			}
		})
	}
}

func TestPartition_entryKey(t *testing.T) {
	p := &Partition{
		name:   "app-dynamic-v1.0.0",
		prefix: "cache/app-dynamic-v1.0.0/",
		codec:  zstdcodec.New(),
	}

	key := p.entryKey("GET https://x/img/logo.png")
	if !strings.HasPrefix(key, "cache/app-dynamic-v1.0.0/") {
		t.Errorf("entryKey() = %q, want partition prefix", key)
	}
	if !strings.HasSuffix(key, ".zst") {
		t.Errorf("entryKey() = %q, want codec extension", key)
	}

	// The noop codec produces extension-less keys.
	bare := &Partition{prefix: "x/", codec: noopcodec.New()}
	if k := bare.entryKey("GET https://x/"); strings.Contains(k[len("x/"):], ".") {
		t.Errorf("entryKey() with noop codec = %q, want no extension", k)
	}
}
