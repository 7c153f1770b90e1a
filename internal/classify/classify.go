// Package classify maps request URLs to caching categories.
//
// Rule order is fixed and observable: a URL matching both a static prefix
// and an image extension is Static because the prefix check runs first.
// Changing the order changes which partition and strategy serve a request.
package classify

import (
	"net/url"
	"path"
	"strings"
)

// Category identifies which caching strategy and partition serve a request.
type Category int

const (
	// Default covers everything no other rule matched.
	Default Category = iota
	// Critical is an app-shell asset named exactly in the critical list.
	Critical
	// Static is an asset under one of the static path prefixes.
	Static
	// API is a backend call whose path contains an API pattern.
	API
	// Images is a request for an image by file extension.
	Images
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Critical:
		return "critical"
	case Static:
		return "static"
	case API:
		return "api"
	case Images:
		return "images"
	case Default:
		return "default"
	}
	return "unknown"
}

// imageExtensions is the extension set recognized as images.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".avif": {},
	".svg":  {},
}

// Rules holds the configured URL lists driving classification.
type Rules struct {
	// CriticalPaths are exact paths of app-shell assets.
	CriticalPaths []string
	// StaticPrefixes are path prefixes of static assets.
	StaticPrefixes []string
	// APIPatterns are substrings identifying backend calls.
	APIPatterns []string
}

// Classifier classifies request URLs against a fixed rule set.
// A Classifier is immutable and safe for concurrent use.
type Classifier struct {
	critical map[string]struct{}
	prefixes []string
	patterns []string
}

// New creates a classifier from the given rules.
func New(rules Rules) *Classifier {
	critical := make(map[string]struct{}, len(rules.CriticalPaths))
	for _, p := range rules.CriticalPaths {
		critical[p] = struct{}{}
	}
	return &Classifier{
		critical: critical,
		prefixes: rules.StaticPrefixes,
		patterns: rules.APIPatterns,
	}
}

// Classify returns the category for a URL. First match wins, in the order
// critical, static prefix, api pattern, image extension, default.
func (c *Classifier) Classify(u *url.URL) Category {
	p := u.Path

	if _, ok := c.critical[p]; ok {
		return Critical
	}

	for _, prefix := range c.prefixes {
		if strings.HasPrefix(p, prefix) {
			return Static
		}
	}

	for _, pattern := range c.patterns {
		if strings.Contains(p, pattern) {
			return API
		}
	}

	if _, ok := imageExtensions[strings.ToLower(path.Ext(p))]; ok {
		return Images
	}

	return Default
}
