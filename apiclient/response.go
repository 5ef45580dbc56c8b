package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Cached bool // Served from the read cache without a network call
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// clone copies the body and headers, so the cached entry never shares memory
// with a response handed to a caller.
func (r *Response) clone(cached bool) *Response {
	copied := *r
	copied.Header = r.Header.Clone()
	copied.Body = bytes.Clone(r.Body)
	copied.Cached = cached
	return &copied
}
