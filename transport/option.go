package transport

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Option represents client option
type Option func(c *Client)

// WithDialer sets the factory used by ResetConnection
func WithDialer(dial Dialer) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

// WithRateLimit throttles Send to rps requests per second with the given burst
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds every round trip
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}
