package offgate

import (
	"net/http"

	"github.com/mentesana/offgate/internal/partition"
)

// Response is the public snapshot of a response served by the gateway,
// whether it came from a partition, the network, or was synthesized.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Write writes the response to an http.ResponseWriter.
func (r *Response) Write(w http.ResponseWriter) error {
	for k, vals := range r.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(r.StatusCode)
	_, err := w.Write(r.Body)
	return err
}

// entryToResponse converts an internal partition.Entry to a public Response.
func entryToResponse(e *partition.Entry) *Response {
	return &Response{
		StatusCode: e.Status,
		Header:     e.Header,
		Body:       e.Body,
	}
}
