package channel

import (
	"log/slog"
	"time"

	"github.com/viant/rpcchannel/request"
)

// Option represents channel option
type Option func(c *Channel)

// WithName sets channel name used in logs
func WithName(name string) Option {
	return func(c *Channel) {
		c.name = name
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStore persists stored requests
func WithStore(store Store) Option {
	return func(c *Channel) {
		c.store = store
	}
}

// WithStoreTimeout bounds store calls made by operations without a context
func WithStoreTimeout(timeout time.Duration) Option {
	return func(c *Channel) {
		if timeout > 0 {
			c.storeTimeout = timeout
		}
	}
}

// WithObserver sets lifecycle observer
func WithObserver(observer Observer) Option {
	return func(c *Channel) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithResubmitStored resends stored requests after each reconnect
func WithResubmitStored(flag bool) Option {
	return func(c *Channel) {
		c.resubmitStored = flag
	}
}

// SubmitOption represents submission option
type SubmitOption func(o *submitOptions)

type submitOptions struct {
	observe bool
	store   bool
}

func (o *submitOptions) pools() []request.Pool {
	ret := []request.Pool{request.WaitingForResponse}
	if o.observe {
		ret = append(ret, request.Observed)
	}
	if o.store {
		ret = append(ret, request.Stored)
	}
	return ret
}

// WithObservation also places the submitted request in the Observed pool
func WithObservation() SubmitOption {
	return func(o *submitOptions) {
		o.observe = true
	}
}

// WithStorage also places the submitted request in the Stored pool
func WithStorage() SubmitOption {
	return func(o *submitOptions) {
		o.store = true
	}
}
