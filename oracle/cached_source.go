// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package oracle

import (
	"context"
	"math/big"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/offchainlabs/daattest/pubid"
)

// CachedSource remembers final publications. Publications that may still
// change are always read from the backing source.
type CachedSource struct {
	source PublicationSource
	cache  *lru.Cache[publicationKey, Publication]
}

func NewCachedSource(source PublicationSource, size int) (*CachedSource, error) {
	cache, err := lru.New[publicationKey, Publication](size)
	if err != nil {
		return nil, err
	}
	return &CachedSource{source: source, cache: cache}, nil
}

func (s *CachedSource) GetPublication(ctx context.Context, profileID *big.Int, id pubid.ID) (*Publication, error) {
	key := newPublicationKey(profileID, id.Big())
	if p, ok := s.cache.Get(key); ok {
		return &p, nil
	}
	p, err := s.source.GetPublication(ctx, profileID, id)
	if err != nil {
		return nil, err
	}
	if p.Final && p.Available {
		s.cache.Add(key, *p)
	}
	return p, nil
}

func (s *CachedSource) Len() int {
	return s.cache.Len()
}
