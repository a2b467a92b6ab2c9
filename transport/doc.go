// Package transport adapts a github.com/viant/jsonrpc client transport (stdio, sse or
// streamable) to the channel.Transport contract.
//
// Send returns as soon as the request is handed to a background round trip; the
// response, or the transport failure, is delivered through the registered listener.
// ResetConnection cancels every in-flight round trip and dials a new connection.
package transport
