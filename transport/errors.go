package transport

import "errors"

var (
	// ErrNoTransport indicates the client has no live connection.
	ErrNoTransport = errors.New("no transport configured")
	// ErrNoDialer indicates a reconnect was requested without a dialer.
	ErrNoDialer = errors.New("no dialer configured")
	// ErrClosed indicates the client was closed.
	ErrClosed = errors.New("transport client closed")
)
