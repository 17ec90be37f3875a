package intent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"
)

// expiryKey orders pending intents by deadline.
type expiryKey struct {
	at time.Time
	id string
}

func (a expiryKey) Less(b btree.Item) bool {
	o := b.(expiryKey)
	if a.at.Equal(o.at) {
		return a.id < o.id
	}
	return a.at.Before(o.at)
}

// MemoryStore keeps intents in process memory. It is used by tests and by
// single-process deployments that do not need durability.
type MemoryStore struct {
	mu      sync.Mutex
	intents map[string]*Intent
	pending *btree.BTree
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intents: make(map[string]*Intent),
		pending: btree.New(2),
	}
}

func (s *MemoryStore) Create(_ context.Context, in *Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.intents[in.ID]; ok {
		return fmt.Errorf("intent %s already exists", in.ID)
	}
	c := in.clone()
	s.intents[in.ID] = c
	if c.Status == StatusPending {
		s.pending.ReplaceOrInsert(expiryKey{c.ExpiresAt, c.ID})
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return nil, ErrNoIntent
	}
	return in.clone(), nil
}

func (s *MemoryStore) Claim(_ context.Context, id, token string, now time.Time, lease time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return ErrNoIntent
	}
	if in.Status != StatusPending || in.claimActive(now, lease) {
		return ErrStale
	}
	in.claimToken = token
	in.claimedAt = &now
	return nil
}

func (s *MemoryStore) Release(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return ErrNoIntent
	}
	if in.claimToken == token {
		in.claimToken = ""
		in.claimedAt = nil
	}
	return nil
}

func (s *MemoryStore) Transition(_ context.Context, t Transition) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[t.ID]
	if !ok {
		return nil, ErrNoIntent
	}
	if in.Status != StatusPending {
		return nil, ErrStale
	}
	if t.Token != "" {
		if in.claimToken != t.Token {
			return nil, ErrStale
		}
	} else if in.claimActive(t.At, t.Lease) {
		return nil, ErrStale
	}

	s.pending.Delete(expiryKey{in.ExpiresAt, in.ID})
	in.Status = t.To
	in.FailureReason = t.FailureReason
	if t.Proof != nil {
		p := *t.Proof
		in.PaymentProof = &p
	}
	in.claimToken = ""
	in.claimedAt = nil
	in.UpdatedAt = t.At
	return in.clone(), nil
}

func (s *MemoryStore) SetFulfillment(_ context.Context, id string, ref FulfillmentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return ErrNoIntent
	}
	if in.Status != StatusPaid {
		return ErrStale
	}
	in.Fulfillment = &ref
	return nil
}

func (s *MemoryStore) ListExpired(_ context.Context, now time.Time, lease time.Duration, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	s.pending.Ascend(func(it btree.Item) bool {
		k := it.(expiryKey)
		if !k.at.Before(now) {
			return false
		}
		if !s.intents[k.id].claimActive(now, lease) {
			ids = append(ids, k.id)
		}
		return limit <= 0 || len(ids) < limit
	})
	return ids, nil
}
