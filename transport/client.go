package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/rpcchannel/channel"
	"github.com/viant/rpcchannel/internal/collection"
	"github.com/viant/rpcchannel/internal/logging"
	"github.com/viant/rpcchannel/request"
	"golang.org/x/time/rate"
)

// Dialer opens a new JSON-RPC connection.
type Dialer func(ctx context.Context) (transport.Transport, error)

// Client sends channel requests over a JSON-RPC transport.
type Client struct {
	mux      sync.RWMutex
	rpc      transport.Transport
	listener channel.Listener

	dial     Dialer
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *slog.Logger
	inflight *collection.SyncMap[uint64, context.CancelFunc]
	seq      atomic.Uint64
	closed   atomic.Bool
}

// New creates a client over rpc; rpc may be nil when a dialer is supplied, the
// connection is then opened on the first ResetConnection.
func New(rpc transport.Transport, options ...Option) *Client {
	ret := &Client{
		rpc:      rpc,
		logger:   logging.NewNop(),
		inflight: collection.NewSyncMap[uint64, context.CancelFunc](),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Dial creates a client and opens its first connection with dial.
func Dial(ctx context.Context, dial Dialer, options ...Option) (*Client, error) {
	if dial == nil {
		return nil, ErrNoDialer
	}
	rpc, err := dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	options = append(options, WithDialer(dial))
	return New(rpc, options...), nil
}

// Listen implements channel.ResponseSource
func (c *Client) Listen(listener channel.Listener) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.listener = listener
}

// Send implements channel.Transport
func (c *Client) Send(ctx context.Context, r *request.Request) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	c.mux.RLock()
	rpc := c.rpc
	c.mux.RUnlock()
	if rpc == nil {
		return ErrNoTransport
	}
	req := &jsonrpc.Request{
		Jsonrpc: jsonrpc.Version,
		Id:      r.ID,
		Method:  r.Method,
		Params:  r.Params,
	}
	callCtx, cancel := c.callContext()
	key := c.seq.Add(1)
	c.inflight.Put(key, cancel)
	go c.roundTrip(callCtx, key, rpc, req, r.ID)
	return nil
}

// callContext detaches the round trip from the caller: Send returns before the response.
func (c *Client) callContext() (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(context.Background(), c.timeout)
	}
	return context.WithCancel(context.Background())
}

func (c *Client) roundTrip(ctx context.Context, key uint64, rpc transport.Transport, req *jsonrpc.Request, id string) {
	defer func() {
		if cancel, ok := c.inflight.Take(key); ok {
			cancel()
		}
	}()
	resp, err := rpc.Send(ctx, req)
	if errors.Is(ctx.Err(), context.Canceled) {
		c.logger.Debug("round trip cancelled", "id", id, "method", req.Method)
		return
	}
	response := &channel.Response{ID: id}
	switch {
	case err != nil:
		response.Error = fmt.Errorf("failed to send %s: %w", req.Method, err)
	case resp == nil:
		response.Error = jsonrpc.NewInternalError("empty response", nil)
	case resp.Error != nil:
		response.Error = resp.Error
		response.Result = resp.Result
	default:
		response.Result = resp.Result
	}
	c.mux.RLock()
	listener := c.listener
	c.mux.RUnlock()
	if listener == nil {
		c.logger.Debug("no listener for response", "id", id)
		return
	}
	listener(context.Background(), response)
}

// ResetConnection implements channel.Transport: in-flight round trips are cancelled
// and a new connection replaces the current one.
func (c *Client) ResetConnection(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.dial == nil {
		return ErrNoDialer
	}
	c.cancelInflight()
	rpc, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.mux.Lock()
	previous := c.rpc
	c.rpc = rpc
	c.mux.Unlock()
	c.closeTransport(previous)
	c.logger.Debug("connection reset")
	return nil
}

// Inflight returns the number of round trips awaiting a response.
func (c *Client) Inflight() int {
	return c.inflight.Len()
}

// Close cancels in-flight round trips and closes the connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancelInflight()
	c.mux.Lock()
	previous := c.rpc
	c.rpc = nil
	c.mux.Unlock()
	c.closeTransport(previous)
	return nil
}

func (c *Client) cancelInflight() {
	for _, cancel := range c.inflight.Drain() {
		cancel()
	}
}

func (c *Client) closeTransport(rpc transport.Transport) {
	closer, ok := rpc.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		c.logger.Warn("failed to close transport", "error", err)
	}
}
