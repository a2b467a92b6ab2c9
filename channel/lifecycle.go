package channel

import (
	"context"
	"fmt"
	"io"

	"github.com/viant/rpcchannel/request"
)

// Reconnect rebuilds the underlying connection. Observed and scheduled requests are
// dropped as they are not valid across connections; stored requests are kept and,
// with WithResubmitStored, sent again on the new connection.
//
// The connection is reset before the pools are purged: a request submitted while
// reconnecting is either sent on the new connection or dropped by the purge, never
// left waiting for a response the old connection can no longer deliver.
func (c *Channel) Reconnect(ctx context.Context) error {
	if c.terminated.Load() {
		return ErrTerminated
	}
	resetErr := c.transport.ResetConnection(ctx)
	c.PurgeObservedRequestsPool()
	c.ClearScheduledRequestsQueue()
	if resetErr != nil {
		c.logger.Warn("connection reset failed", "error", resetErr)
		return fmt.Errorf("failed to reset connection: %w", resetErr)
	}
	c.observer.OnReconnect()
	c.logger.Info("channel reconnected", "stored", c.registry.Len(request.Stored))
	if !c.resubmitStored {
		return nil
	}
	if _, err := c.ResubmitStoredRequests(ctx); err != nil {
		return err
	}
	return nil
}

// Terminate stops accepting work, destroys every request and releases the channel
// resources. It is safe to call repeatedly and concurrently; every call returns after
// clean up completed.
func (c *Channel) Terminate() {
	if c.shutdown() {
		c.logger.Info("channel terminated")
	}
	c.CleanUp()
}

// CleanUp releases transport resources and signals Done. It runs once; it terminates
// the channel when called directly.
func (c *Channel) CleanUp() {
	c.cleanUpOnce.Do(func() {
		c.shutdown()
		if closer, ok := c.transport.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				c.logger.Warn("failed to close transport", "error", err)
			}
		}
		close(c.done)
	})
}

// Done is closed once the channel is cleaned up.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Terminated reports whether the channel stopped accepting work.
func (c *Channel) Terminated() bool {
	return c.terminated.Load()
}

// shutdown marks the channel terminated and destroys every live request. It returns
// true for the call that flipped the state.
func (c *Channel) shutdown() bool {
	c.lifecycle.Lock()
	first := !c.terminated.Swap(true)
	destroyed := c.registry.Clear()
	c.lifecycle.Unlock()

	c.release(destroyed)
	if first {
		c.clearStore()
	}
	c.reportPools()
	return first
}
