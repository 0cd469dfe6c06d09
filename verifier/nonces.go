// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package verifier

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// NonceStore tracks the next unconsumed meta-transaction nonce per signer.
type NonceStore interface {
	Next(signer common.Address) uint64
	// Consume marks nonce as used if it is the signer's next nonce.
	Consume(signer common.Address, nonce uint64) error
	// Restore undoes Consume of nonce if no later nonce was consumed since.
	Restore(signer common.Address, nonce uint64) error
}

type MemoryNonceStore struct {
	mutex sync.Mutex
	next  map[common.Address]uint64
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{next: make(map[common.Address]uint64)}
}

func (s *MemoryNonceStore) Next(signer common.Address) uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.next[signer]
}

func (s *MemoryNonceStore) Consume(signer common.Address, nonce uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	next := s.next[signer]
	if nonce < next {
		return errors.Wrapf(ErrAttestationReplayed, "nonce %d of %v already consumed", nonce, signer)
	}
	if nonce > next {
		return invalidf("nonce %d of %v is ahead of next nonce %d", nonce, signer, next)
	}
	s.next[signer] = next + 1
	return nil
}

func (s *MemoryNonceStore) Restore(signer common.Address, nonce uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if next := s.next[signer]; next != nonce+1 {
		return errors.Errorf("cannot restore nonce %d of %v, next nonce is %d", nonce, signer, next)
	}
	s.next[signer] = nonce
	return nil
}
