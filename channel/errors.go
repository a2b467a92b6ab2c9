package channel

import "errors"

var (
	// ErrTerminated indicates the channel no longer accepts work.
	ErrTerminated = errors.New("channel terminated")
	// ErrProcessingFailure indicates the processor rejected a response.
	ErrProcessingFailure = errors.New("response processing failed")
	// ErrResponseMismatch indicates a response was routed to a request with another identifier.
	ErrResponseMismatch = errors.New("response does not match request")
	// ErrDiscarded indicates a request was destroyed before its response arrived.
	ErrDiscarded = errors.New("request discarded")
)
