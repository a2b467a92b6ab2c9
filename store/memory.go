package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/viant/rpcchannel/request"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MemoryStore is an in-memory Store intended for single-process deployments or testing.
// It keeps encoded snapshots so that callers never share request instances with it.
type MemoryStore struct {
	mu   sync.RWMutex
	byID *orderedmap.OrderedMap[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: orderedmap.New[string, []byte]()}
}

func (s *MemoryStore) Put(_ context.Context, r *request.Request) error {
	if err := validate(r); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID.Set(r.ID, data)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*request.Request, bool, error) {
	s.mu.RLock()
	data, ok := s.byID.Get(id)
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	ret, err := decode(data)
	return ret, err == nil, err
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID.Delete(id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*request.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*request.Request, 0, s.byID.Len())
	for pair := s.byID.Oldest(); pair != nil; pair = pair.Next() {
		r, err := decode(pair.Value)
		if err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = orderedmap.New[string, []byte]()
	return nil
}

func decode(data []byte) (*request.Request, error) {
	ret := &request.Request{}
	if err := json.Unmarshal(data, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
