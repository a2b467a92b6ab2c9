package request

import (
	"errors"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrNilRequest is returned when a nil request is inserted.
	ErrNilRequest = errors.New("nil request")
	// ErrDestroyed is returned when a destroyed request is inserted again.
	ErrDestroyed = errors.New("request already destroyed")
)

// Registry stores live requests once and indexes them from the Observed, Stored and
// WaitingForResponse pools. A single lock guards every pool so that cross-pool
// operations are atomic for observers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	pools   [poolCount]*orderedmap.OrderedMap[string, *Request]
}

type entry struct {
	request *Request
	state   State
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	ret := &Registry{entries: make(map[string]*entry)}
	for i := range ret.pools {
		ret.pools[i] = orderedmap.New[string, *Request]()
	}
	return ret
}

// Lookup returns the request held by pool under id.
func (r *Registry) Lookup(pool Pool, id string) (*Request, bool) {
	if !pool.valid() {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pools[pool].Get(id)
}

// Contains reports whether pool holds id.
func (r *Registry) Contains(pool Pool, id string) bool {
	_, ok := r.Lookup(pool, id)
	return ok
}

// Find returns the first request with id, checking Observed, Stored then WaitingForResponse.
func (r *Registry) Find(id string) (*Request, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pool := range Pools {
		if ret, ok := r.pools[pool].Get(id); ok {
			return ret, true
		}
	}
	return nil, false
}

// Insert adds request to pool. Inserting the same request twice is a no-op.
func (r *Registry) Insert(pool Pool, request *Request) error {
	return r.Admit(request, pool)
}

// Admit adds request to every given pool or to none of them.
func (r *Registry) Admit(request *Request, pools ...Pool) error {
	if request == nil {
		return ErrNilRequest
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	anEntry := r.entries[request.ID]
	for _, pool := range pools {
		if !pool.valid() {
			return errors.New("invalid pool: " + pool.String())
		}
		if anEntry != nil && anEntry.request != request {
			return &DuplicateIdentifierError{ID: request.ID, Pool: pool}
		}
	}
	if anEntry == nil {
		if request.Destroyed() {
			return ErrDestroyed
		}
		if len(pools) == 0 {
			return nil
		}
		anEntry = &entry{request: request}
		r.entries[request.ID] = anEntry
	}
	for _, pool := range pools {
		if anEntry.state.In(pool) {
			continue
		}
		anEntry.state |= StateOf(pool)
		r.pools[pool].Set(request.ID, request)
	}
	request.setState(anEntry.state)
	return nil
}

// Remove takes request out of pool. The request stays live, and keeps its identifier,
// even when it no longer belongs to any pool; only Destroy, Prune and the bulk
// operations finalize it.
func (r *Registry) Remove(pool Pool, request *Request) bool {
	if request == nil || !pool.valid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	anEntry := r.match(request)
	if anEntry == nil || !anEntry.state.In(pool) {
		return false
	}
	anEntry.state &^= StateOf(pool)
	r.pools[pool].Delete(request.ID)
	request.setState(anEntry.state)
	return true
}

// Prune destroys request when it is live but held by no pool.
func (r *Registry) Prune(request *Request) bool {
	if request == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	anEntry := r.match(request)
	if anEntry == nil || anEntry.state != 0 {
		return false
	}
	r.finalize(anEntry)
	return true
}

// PurgeAll empties pool and returns the requests it destroyed, i.e. the ones no other pool held.
func (r *Registry) PurgeAll(pool Pool) []*Request {
	if !pool.valid() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var destroyed []*Request
	for pair := r.pools[pool].Oldest(); pair != nil; pair = pair.Next() {
		anEntry := r.entries[pair.Key]
		if anEntry == nil {
			continue
		}
		anEntry.state &^= StateOf(pool)
		anEntry.request.setState(anEntry.state)
		if anEntry.state == 0 {
			r.finalize(anEntry)
			destroyed = append(destroyed, anEntry.request)
		}
	}
	r.pools[pool] = orderedmap.New[string, *Request]()
	return destroyed
}

// Destroy removes request from all pools and returns the memberships it had.
// ok is false when request was not live.
func (r *Registry) Destroy(request *Request) (previous State, ok bool) {
	if request == nil {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	anEntry := r.match(request)
	if anEntry == nil {
		return 0, false
	}
	previous = anEntry.state
	for _, pool := range Pools {
		if anEntry.state.In(pool) {
			r.pools[pool].Delete(request.ID)
		}
	}
	anEntry.state = 0
	r.finalize(anEntry)
	return previous, true
}

// Clear destroys every live request, whether or not a pool still holds it.
func (r *Registry) Clear() []*Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	destroyed := make([]*Request, 0, len(r.entries))
	for _, anEntry := range r.entries {
		anEntry.state = 0
		destroyed = append(destroyed, anEntry.request)
		r.finalize(anEntry)
	}
	for i := range r.pools {
		r.pools[i] = orderedmap.New[string, *Request]()
	}
	return destroyed
}

// Claim marks a live request as being finalized. Only the first caller succeeds.
func (r *Registry) Claim(request *Request) bool {
	if request == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	anEntry := r.match(request)
	if anEntry == nil || request.Claimed() {
		return false
	}
	request.claimed.Store(true)
	return true
}

// NextWaitingForResponse returns the earliest request still waiting for response.
func (r *Registry) NextWaitingForResponse() (*Request, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	oldest := r.pools[WaitingForResponse].Oldest()
	if oldest == nil {
		return nil, false
	}
	return oldest.Value, true
}

// Requests returns pool content in insertion order.
func (r *Registry) Requests(pool Pool) []*Request {
	if !pool.valid() {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]*Request, 0, r.pools[pool].Len())
	for pair := r.pools[pool].Oldest(); pair != nil; pair = pair.Next() {
		ret = append(ret, pair.Value)
	}
	return ret
}

// Len returns pool size.
func (r *Registry) Len(pool Pool) int {
	if !pool.valid() {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pools[pool].Len()
}

// Live returns the number of requests not yet destroyed, including the ones held by no pool.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) match(request *Request) *entry {
	anEntry := r.entries[request.ID]
	if anEntry == nil || anEntry.request != request {
		return nil
	}
	return anEntry
}

// finalize releases the identifier; callers must have removed the entry from every pool.
func (r *Registry) finalize(anEntry *entry) {
	delete(r.entries, anEntry.request.ID)
	anEntry.request.setState(Destroyed)
}
