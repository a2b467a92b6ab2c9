package request

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Request is a unit of work issued over a channel. The channel only relies on ID;
// Method and Params are handed to the transport as is.
type Request struct {
	ID        string            `json:"id"`
	Method    string            `json:"method"`
	Params    json.RawMessage   `json:"params,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`

	// Context is owned by the response processor and never persisted.
	Context any `json:"-"`

	state   atomic.Uint32
	claimed atomic.Bool
}

// State returns the current pool membership of the request.
func (r *Request) State() State {
	return State(r.state.Load())
}

// Destroyed reports whether the request lifecycle has ended.
func (r *Request) Destroyed() bool {
	return r.State().Has(Destroyed)
}

// Claimed reports whether a response is being processed for the request.
func (r *Request) Claimed() bool {
	return r.claimed.Load()
}

func (r *Request) setState(state State) {
	r.state.Store(uint32(state))
}

// New creates a request with a generated identifier.
func New(method string, params any, options ...Option) (*Request, error) {
	ret := &Request{
		ID:        uuid.NewString(),
		Method:    method,
		CreatedAt: time.Now(),
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s params: %w", method, err)
		}
		ret.Params = data
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret, nil
}

// Option represents request option
type Option func(r *Request)

// WithID overrides the generated identifier
func WithID(id string) Option {
	return func(r *Request) {
		r.ID = id
	}
}

// WithMetadata sets request metadata
func WithMetadata(metadata map[string]string) Option {
	return func(r *Request) {
		r.Metadata = metadata
	}
}

// WithContext attaches processor owned context
func WithContext(value any) Option {
	return func(r *Request) {
		r.Context = value
	}
}
