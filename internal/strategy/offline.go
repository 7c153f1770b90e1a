package strategy

import (
	"net/http"
	"time"

	"github.com/mentesana/offgate/internal/partition"
)

// User-facing fallback bodies. The app's UI interprets these itself, so
// the exact shapes are part of the gateway's contract.
const (
	textOffline      = "Sin conexión"
	textNetworkError = "Error de red"

	jsonOffline = `{"success":false,"error":"offline","message":"Sin conexión. Inténtalo de nuevo cuando recuperes la red."}`
)

// offlineJSON synthesizes the 503 JSON body returned for API requests
// that fail with no cached fallback.
func offlineJSON() *partition.Entry {
	return &partition.Entry{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{
			"Content-Type": []string{"application/json"},
		},
		Body:     []byte(jsonOffline),
		StoredAt: time.Now().UTC(),
	}
}

// offlineText synthesizes a plain-text 503 body.
func offlineText(msg string) *partition.Entry {
	return &partition.Entry{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{
			"Content-Type": []string{"text/plain; charset=utf-8"},
		},
		Body:     []byte(msg),
		StoredAt: time.Now().UTC(),
	}
}
