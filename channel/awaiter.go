package channel

import (
	"context"
	"fmt"

	"github.com/viant/rpcchannel/internal/collection"
	"github.com/viant/rpcchannel/request"
)

// Awaiter delivers responses to callers blocked on a request identifier. It is a
// Processor and a Discarder: a destroyed request closes its pending channel.
type Awaiter struct {
	pending *collection.SyncMap[string, chan *Response]
	next    Processor
}

// NewAwaiter creates an awaiter; next, when set, processes responses before delivery.
func NewAwaiter(next Processor) *Awaiter {
	return &Awaiter{pending: collection.NewSyncMap[string, chan *Response](), next: next}
}

// Await registers interest in id. The returned channel yields the response or is
// closed without a value when the request is discarded. ok is false when id is
// already awaited.
func (a *Awaiter) Await(id string) (response <-chan *Response, ok bool) {
	ch := make(chan *Response, 1)
	if !a.pending.PutIfAbsent(id, ch) {
		return nil, false
	}
	return ch, true
}

// Process implements Processor
func (a *Awaiter) Process(ctx context.Context, response *Response, r *request.Request) error {
	var err error
	if response.ID != r.ID {
		err = fmt.Errorf("%w: got %q, expected %q", ErrResponseMismatch, response.ID, r.ID)
	} else if a.next != nil {
		err = a.next.Process(ctx, response, r)
	}
	if ch, ok := a.pending.Take(r.ID); ok {
		if err == nil {
			ch <- response
		}
		close(ch)
	}
	return err
}

// Discard implements Discarder
func (a *Awaiter) Discard(r *request.Request) {
	if ch, ok := a.pending.Take(r.ID); ok {
		close(ch)
	}
}

// Pending returns the number of registered waiters.
func (a *Awaiter) Pending() int {
	return a.pending.Len()
}

// Call submits r on c and blocks until its response arrives, r is discarded, or ctx
// is done. A cancelled call destroys r.
func (a *Awaiter) Call(ctx context.Context, c *Channel, r *request.Request, options ...SubmitOption) (*Response, error) {
	done, ok := a.Await(r.ID)
	if !ok {
		return nil, &request.DuplicateIdentifierError{ID: r.ID, Pool: request.WaitingForResponse}
	}
	if err := c.Submit(ctx, r, options...); err != nil {
		a.Discard(r)
		return nil, err
	}
	select {
	case response, ok := <-done:
		if !ok {
			return nil, fmt.Errorf("request %s: %w", r.ID, ErrDiscarded)
		}
		return response, nil
	case <-ctx.Done():
		c.DestroyRequest(r)
		return nil, ctx.Err()
	}
}
