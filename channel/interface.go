package channel

import (
	"context"
	"encoding/json"

	"github.com/viant/rpcchannel/request"
)

// Transport sends requests over the physical connection.
type Transport interface {
	// Send writes the request; the response is delivered later through a Listener.
	Send(ctx context.Context, r *request.Request) error
	// ResetConnection drops in-flight I/O and rebuilds the underlying connection.
	ResetConnection(ctx context.Context) error
}

// Listener receives responses keyed by request identifier.
type Listener func(ctx context.Context, response *Response)

// ResponseSource is implemented by transports that deliver responses asynchronously.
type ResponseSource interface {
	Listen(listener Listener)
}

// Response is a server reply to a request.
type Response struct {
	ID     string
	Result json.RawMessage
	// Error is a server side failure carried by the response.
	Error error
}

// Processor consumes a response for its request.
type Processor interface {
	Process(ctx context.Context, response *Response, r *request.Request) error
}

// ProcessorFunc adapts a function to Processor
type ProcessorFunc func(ctx context.Context, response *Response, r *request.Request) error

func (f ProcessorFunc) Process(ctx context.Context, response *Response, r *request.Request) error {
	return f(ctx, response, r)
}

// Discarder is notified once per request destroyed without a processed response.
type Discarder interface {
	Discard(r *request.Request)
}

// Store persists the Stored pool.
type Store interface {
	Put(ctx context.Context, r *request.Request) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*request.Request, error)
	Clear(ctx context.Context) error
}

// Observer receives lifecycle measurements.
type Observer interface {
	OnPoolSize(pool request.Pool, size int)
	OnSubmit()
	OnDestroy(count int)
	OnResponse(failed bool)
	OnReconnect()
}

type nopObserver struct{}

func (nopObserver) OnPoolSize(request.Pool, int) {}
func (nopObserver) OnSubmit()                    {}
func (nopObserver) OnDestroy(int)                {}
func (nopObserver) OnResponse(bool)              {}
func (nopObserver) OnReconnect()                 {}
