// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/offchainlabs/daattest/attestation"
	"github.com/offchainlabs/daattest/pubid"
)

var ErrPublicationNotFound = errors.New("publication not found")

// Publication is the DA layer's view of one post.
type Publication struct {
	ProfileID         *big.Int       `json:"profileId"`
	PublicationID     *big.Int       `json:"publicationId"`
	RootProfileID     *big.Int       `json:"rootProfileId,omitempty"`
	RootPublicationID *big.Int       `json:"rootPublicationId,omitempty"`
	CollectModule     common.Address `json:"collectModule"`
	ContentPointer    string         `json:"contentURI"`
	Available         bool           `json:"available"`
	Final             bool           `json:"final"`
}

func (p *Publication) key() (publicationKey, error) {
	if p.ProfileID == nil || p.PublicationID == nil {
		return publicationKey{}, errors.New("publication without profile or publication id")
	}
	return newPublicationKey(p.ProfileID, p.PublicationID), nil
}

// Judgment is what an honest oracle attests for p. Posts without an explicit
// root are their own root.
func (p *Publication) Judgment() *attestation.Judgment {
	rootProfile, rootPublication := p.RootProfileID, p.RootPublicationID
	if rootProfile == nil || rootPublication == nil {
		rootProfile, rootPublication = p.ProfileID, p.PublicationID
	}
	return &attestation.Judgment{
		Kind:              attestation.CollectJudgmentKind,
		ProfileID:         new(big.Int).Set(p.ProfileID),
		PublicationID:     new(big.Int).Set(p.PublicationID),
		RootProfileID:     new(big.Int).Set(rootProfile),
		RootPublicationID: new(big.Int).Set(rootPublication),
		CollectModule:     p.CollectModule,
		ContentPointer:    p.ContentPointer,
	}
}

type publicationKey struct {
	profile     common.Hash
	publication common.Hash
}

func newPublicationKey(profileID, publicationID *big.Int) publicationKey {
	return publicationKey{
		profile:     common.BigToHash(profileID),
		publication: common.BigToHash(publicationID),
	}
}

func (k publicationKey) String() string {
	return fmt.Sprintf("%v/%v", k.profile.Big(), k.publication.Big())
}

// PublicationSource looks up DA-layer publications by profile and packed ID.
type PublicationSource interface {
	GetPublication(ctx context.Context, profileID *big.Int, id pubid.ID) (*Publication, error)
}

type MemorySource struct {
	mutex        sync.RWMutex
	publications map[publicationKey]*Publication
}

func NewMemorySource() *MemorySource {
	return &MemorySource{publications: make(map[publicationKey]*Publication)}
}

func (s *MemorySource) Put(p *Publication) error {
	key, err := p.key()
	if err != nil {
		return err
	}
	copied := *p
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.publications[key] = &copied
	return nil
}

func (s *MemorySource) GetPublication(_ context.Context, profileID *big.Int, id pubid.ID) (*Publication, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	p, ok := s.publications[newPublicationKey(profileID, id.Big())]
	if !ok {
		return nil, ErrPublicationNotFound
	}
	copied := *p
	return &copied, nil
}
