// Package store persists requests held in a channel Stored pool so that retry intent
// survives process restarts. Implementations are safe for concurrent use and return
// requests in the order they were stored.
package store

import (
	"context"
	"errors"

	"github.com/viant/rpcchannel/request"
)

// ErrInvalidRequest is returned when a request without identifier is stored.
var ErrInvalidRequest = errors.New("store: request identifier is required")

// Store is the backing registry of stored requests.
type Store interface {
	Put(ctx context.Context, r *request.Request) error
	Get(ctx context.Context, id string) (*request.Request, bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*request.Request, error)
	Clear(ctx context.Context) error
}

func validate(r *request.Request) error {
	if r == nil || r.ID == "" {
		return ErrInvalidRequest
	}
	return nil
}
