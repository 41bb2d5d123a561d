package app

import (
	"encoding/json"
	"sync"
	"time"
)

// storedProof is one entry of the in-memory proof store.
type storedProof struct {
	ID            string          `json:"id"`
	Circuit       string          `json:"circuit,omitempty"`
	PublicSignals []string        `json:"publicSignals,omitempty"`
	Proof         json.RawMessage `json:"proof,omitempty"`
	Time          string          `json:"time"`
}

// proofStore keeps posted proofs for the lifetime of the process.
type proofStore struct {
	mu    sync.RWMutex
	items []storedProof
}

func newProofStore() *proofStore {
	return &proofStore{items: []storedProof{}}
}

func (s *proofStore) add(p storedProof) {
	if p.Time == "" {
		p.Time = time.Now().UTC().Format(time.RFC3339)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, p)
}

func (s *proofStore) list() []storedProof {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]storedProof(nil), s.items...)
}
