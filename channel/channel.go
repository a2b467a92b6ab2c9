package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/rpcchannel/internal/logging"
	"github.com/viant/rpcchannel/request"
)

const defaultStoreTimeout = 5 * time.Second

// Channel tracks every request issued over a persistent connection, from submission
// until it is destroyed. Requests live in three pools (observed, stored, waiting for
// response) backed by a single request.Registry.
type Channel struct {
	name           string
	registry       *request.Registry
	transport      Transport
	processor      Processor
	store          Store
	observer       Observer
	logger         *slog.Logger
	storeTimeout   time.Duration
	resubmitStored bool

	// lifecycle orders admission against termination.
	lifecycle   sync.RWMutex
	terminated  atomic.Bool
	cleanUpOnce sync.Once
	done        chan struct{}
}

// New creates a channel over transport. Responses delivered by transport (when it is a
// ResponseSource) are routed to processor.
func New(transport Transport, processor Processor, options ...Option) *Channel {
	ret := &Channel{
		name:         "channel",
		registry:     request.NewRegistry(),
		transport:    transport,
		processor:    processor,
		observer:     nopObserver{},
		logger:       logging.NewNop(),
		storeTimeout: defaultStoreTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.processor == nil {
		ret.processor = ProcessorFunc(func(context.Context, *Response, *request.Request) error { return nil })
	}
	ret.logger = ret.logger.With("channel", ret.name)
	if source, ok := transport.(ResponseSource); ok {
		source.Listen(ret.HandleResponse)
	}
	return ret
}

// Name returns channel name
func (c *Channel) Name() string {
	return c.name
}

// Submit places r in the waiting for response pool (and optionally the observed and
// stored pools), then hands it to the transport.
func (c *Channel) Submit(ctx context.Context, r *request.Request, options ...SubmitOption) error {
	opts := &submitOptions{}
	for _, opt := range options {
		opt(opts)
	}
	if err := c.admit(r, opts.pools()...); err != nil {
		return err
	}
	c.observer.OnSubmit()
	if opts.store {
		c.persist(ctx, r)
	}
	c.reportPools()
	if err := c.transport.Send(ctx, r); err != nil {
		c.logger.Warn("request send failed", "id", r.ID, "method", r.Method, "error", err)
		c.removeFrom(request.WaitingForResponse, r)
		c.prune(r)
		return fmt.Errorf("failed to send request %s: %w", r.ID, err)
	}
	return nil
}

// Observe places r in the observed pool.
func (c *Channel) Observe(r *request.Request) error {
	if err := c.admit(r, request.Observed); err != nil {
		return err
	}
	c.reportPools()
	return nil
}

// Store places r in the stored pool and persists it.
func (c *Channel) Store(ctx context.Context, r *request.Request) error {
	if err := c.admit(r, request.Stored); err != nil {
		return err
	}
	c.reportPools()
	if c.store == nil {
		return nil
	}
	if err := c.store.Put(ctx, r); err != nil {
		return fmt.Errorf("failed to persist request %s: %w", r.ID, err)
	}
	return nil
}

// IsWaitingCompletion reports whether a response is still expected for id.
func (c *Channel) IsWaitingCompletion(id string) bool {
	return c.registry.Contains(request.WaitingForResponse, id)
}

// IsWaitingResponseWaitingRequestCompletion reports waiting for response pool membership.
func (c *Channel) IsWaitingResponseWaitingRequestCompletion(id string) bool {
	return c.registry.Contains(request.WaitingForResponse, id)
}

// IsWaitingStoredRequestCompletion reports stored pool membership.
func (c *Channel) IsWaitingStoredRequestCompletion(id string) bool {
	return c.registry.Contains(request.Stored, id)
}

// RequestWithIdentifier looks id up in the observed, stored, then waiting for response pool.
func (c *Channel) RequestWithIdentifier(id string) (*request.Request, bool) {
	return c.registry.Find(id)
}

func (c *Channel) ObservedRequestWithIdentifier(id string) (*request.Request, bool) {
	return c.registry.Lookup(request.Observed, id)
}

func (c *Channel) StoredRequestWithIdentifier(id string) (*request.Request, bool) {
	return c.registry.Lookup(request.Stored, id)
}

func (c *Channel) ResponseWaitingRequestWithIdentifier(id string) (*request.Request, bool) {
	return c.registry.Lookup(request.WaitingForResponse, id)
}

// NextRequestWaitingForResponse returns the earliest submitted request still waiting.
func (c *Channel) NextRequestWaitingForResponse() (*request.Request, bool) {
	return c.registry.NextWaitingForResponse()
}

// RemoveObservationFromRequest stops observing r without affecting other pools. Like
// the other single pool removals it never destroys r: a request held by no pool stays
// live until DestroyRequest, so it can be observed or stored again.
func (c *Channel) RemoveObservationFromRequest(r *request.Request) {
	c.removeFrom(request.Observed, r)
}

func (c *Channel) RemoveStoredRequest(r *request.Request) {
	c.removeFrom(request.Stored, r)
}

func (c *Channel) RemoveResponseWaitingRequest(r *request.Request) {
	c.removeFrom(request.WaitingForResponse, r)
}

// DestroyRequest removes r from every pool. Destroying an absent request is a no-op.
func (c *Channel) DestroyRequest(r *request.Request) {
	c.destroy(r, true)
}

// PurgeObservedRequestsPool empties the observed pool.
func (c *Channel) PurgeObservedRequestsPool() {
	c.release(c.registry.PurgeAll(request.Observed))
	c.reportPools()
}

// PurgeStoredRequestsPool empties the stored pool and its persistent copy.
func (c *Channel) PurgeStoredRequestsPool() {
	c.release(c.registry.PurgeAll(request.Stored))
	c.clearStore()
	c.reportPools()
}

// ClearScheduledRequestsQueue empties the waiting for response pool; requests that are
// also observed or stored stay available for resubmission.
func (c *Channel) ClearScheduledRequestsQueue() {
	c.release(c.registry.PurgeAll(request.WaitingForResponse))
	c.reportPools()
}

// HandleResponse routes a transport response to its waiting request. Responses for
// requests no longer waiting are dropped.
func (c *Channel) HandleResponse(ctx context.Context, response *Response) {
	if response == nil {
		return
	}
	r, ok := c.registry.Lookup(request.WaitingForResponse, response.ID)
	if !ok {
		c.logger.Debug("dropping stale response", "id", response.ID)
		return
	}
	_ = c.ProcessResponse(ctx, response, r)
}

// ProcessResponse hands response to the processor and destroys r afterwards, whatever
// the processing outcome. A request that is no longer live, or whose response is already
// being processed, is ignored.
func (c *Channel) ProcessResponse(ctx context.Context, response *Response, r *request.Request) (err error) {
	if r == nil || !c.registry.Claim(r) {
		return nil
	}
	defer func() {
		c.observer.OnResponse(err != nil)
		c.destroy(r, false)
	}()
	if processErr := c.processor.Process(ctx, response, r); processErr != nil {
		err = fmt.Errorf("request %s: %w: %w", r.ID, ErrProcessingFailure, processErr)
		c.logger.Error("response processing failed", "id", r.ID, "method", r.Method, "error", processErr)
	}
	return err
}

// Restore loads persisted requests into the stored pool.
func (c *Channel) Restore(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	requests, err := c.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored requests: %w", err)
	}
	restored := 0
	for _, r := range requests {
		if err := c.admit(r, request.Stored); err != nil {
			if errors.Is(err, ErrTerminated) {
				return restored, err
			}
			c.logger.Warn("skipping stored request", "id", r.ID, "error", err)
			continue
		}
		restored++
	}
	c.reportPools()
	return restored, nil
}

// ResubmitStoredRequests sends, in storage order, every stored request that is not
// already waiting for response.
func (c *Channel) ResubmitStoredRequests(ctx context.Context) (int, error) {
	var errs []error
	sent := 0
	for _, r := range c.registry.Requests(request.Stored) {
		if c.registry.Contains(request.WaitingForResponse, r.ID) {
			continue
		}
		if err := c.admit(r, request.WaitingForResponse); err != nil {
			if errors.Is(err, ErrTerminated) {
				return sent, err
			}
			continue
		}
		if err := c.transport.Send(ctx, r); err != nil {
			c.removeFrom(request.WaitingForResponse, r)
			errs = append(errs, fmt.Errorf("failed to resubmit request %s: %w", r.ID, err))
			continue
		}
		sent++
	}
	c.reportPools()
	return sent, errors.Join(errs...)
}

func (c *Channel) admit(r *request.Request, pools ...request.Pool) error {
	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()
	if c.terminated.Load() {
		return ErrTerminated
	}
	return c.registry.Admit(r, pools...)
}

func (c *Channel) removeFrom(pool request.Pool, r *request.Request) {
	if !c.registry.Remove(pool, r) {
		return
	}
	if pool == request.Stored {
		c.unpersist(r)
	}
	c.reportPools()
}

// prune destroys r when the caller's removal left it in no pool.
func (c *Channel) prune(r *request.Request) {
	if !c.registry.Prune(r) {
		return
	}
	c.observer.OnDestroy(1)
	c.discard(r)
}

func (c *Channel) destroy(r *request.Request, discard bool) {
	previous, ok := c.registry.Destroy(r)
	if !ok {
		return
	}
	if previous.In(request.Stored) {
		c.unpersist(r)
	}
	c.observer.OnDestroy(1)
	if discard {
		c.discard(r)
	}
	c.reportPools()
}

// release reports requests destroyed as a side effect of pool removal.
func (c *Channel) release(destroyed []*request.Request) {
	if len(destroyed) == 0 {
		return
	}
	c.observer.OnDestroy(len(destroyed))
	for _, r := range destroyed {
		c.discard(r)
	}
}

func (c *Channel) discard(r *request.Request) {
	if r.Claimed() {
		return
	}
	if discarder, ok := c.processor.(Discarder); ok {
		discarder.Discard(r)
	}
}

func (c *Channel) persist(ctx context.Context, r *request.Request) {
	if c.store == nil {
		return
	}
	if err := c.store.Put(ctx, r); err != nil {
		c.logger.Warn("failed to persist request", "id", r.ID, "error", err)
	}
}

func (c *Channel) unpersist(r *request.Request) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
	defer cancel()
	if err := c.store.Delete(ctx, r.ID); err != nil {
		c.logger.Warn("failed to delete stored request", "id", r.ID, "error", err)
	}
}

func (c *Channel) clearStore() {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
	defer cancel()
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear stored requests", "error", err)
	}
}

func (c *Channel) reportPools() {
	for _, pool := range request.Pools {
		c.observer.OnPoolSize(pool, c.registry.Len(pool))
	}
}
