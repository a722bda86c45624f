package oidcflow

import (
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

var (
	ErrFlowNotFound = errors.New("oauth flow not found")
	ErrFlowExpired  = errors.New("oauth flow expired")
)

// FlowStore keeps in-flight OAuth flow states, keyed by state nonce. Entries
// expire on their own; a consumed flow is deleted eagerly so a replayed
// callback fails.
type FlowStore struct {
	flows *ttlcache.Cache[string, FlowState]
}

// NewFlowStore creates a FlowStore whose entries expire after ttl.
func NewFlowStore(ttl time.Duration) *FlowStore {
	flows := ttlcache.New(
		ttlcache.WithTTL[string, FlowState](ttl),
		ttlcache.WithDisableTouchOnHit[string, FlowState](),
	)

	go flows.Start()

	return &FlowStore{flows: flows}
}

// Store adds a new flow state keyed by its state nonce.
func (s *FlowStore) Store(state FlowState) {
	s.flows.Set(state.State, state, ttlcache.DefaultTTL)
}

// Consume retrieves and removes the flow state for the given nonce. Provider
// callbacks are completed by the managed auth backend, so within this service
// only the callback-completion path of the portal page (and the test suite)
// redeems flow state; server-side the store chiefly bounds how long an
// initiated flow stays honorable.
func (s *FlowStore) Consume(stateNonce string) (*FlowState, error) {
	item := s.flows.Get(stateNonce)
	if item == nil {
		return nil, ErrFlowNotFound
	}
	state := item.Value()
	s.flows.Delete(stateNonce)
	if time.Now().After(state.ExpiresAt) {
		return nil, ErrFlowExpired
	}
	return &state, nil
}

// Stop terminates the background expiry goroutine.
func (s *FlowStore) Stop() {
	s.flows.Stop()
}
