// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package attestation builds the oracle query for a DA-layer publication and
// defines the judgment payload the oracle returns for it.
package attestation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/offchainlabs/daattest/pubid"
)

var (
	ErrInvalidProfileID = errors.New("invalid profile id")
	ErrInvalidAddress   = errors.New("invalid collect module address")
	ErrNotOffchain      = errors.New("publication id does not reference the DA layer")
)

// Request describes one collect attempt. It is immutable once built and is
// only meant to live for a single oracle round trip.
type Request struct {
	profileID      *big.Int
	publicationID  pubid.ID
	collectModule  common.Address
	contentPointer string
	moduleData     []byte
}

func NewRequest(profileID *big.Int, publicationID pubid.ID, collectModule common.Address, contentPointer string, moduleData []byte) (*Request, error) {
	if profileID == nil || profileID.Sign() < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfileID, profileID)
	}
	if profileID.BitLen() > pubid.FieldBits {
		return nil, fmt.Errorf("%w: %v exceeds 128 bits", ErrInvalidProfileID, profileID)
	}
	if !publicationID.IsOffchain() {
		return nil, fmt.Errorf("%w: %v", ErrNotOffchain, publicationID)
	}
	return &Request{
		profileID:      new(big.Int).Set(profileID),
		publicationID:  publicationID,
		collectModule:  collectModule,
		contentPointer: contentPointer,
		moduleData:     common.CopyBytes(moduleData),
	}, nil
}

// ParseRequest builds a request from its display string and a hex collect
// module address.
func ParseRequest(display string, collectModule string, contentPointer string, moduleData []byte) (*Request, error) {
	profileID, id, err := pubid.ParseDisplayString(display)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(collectModule) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, collectModule)
	}
	return NewRequest(profileID.ToBig(), id, common.HexToAddress(collectModule), contentPointer, moduleData)
}

func (r *Request) ProfileID() *big.Int {
	return new(big.Int).Set(r.profileID)
}

func (r *Request) PublicationID() pubid.ID {
	return r.publicationID
}

func (r *Request) CollectModule() common.Address {
	return r.collectModule
}

func (r *Request) ContentPointer() string {
	return r.contentPointer
}

func (r *Request) ModuleData() []byte {
	return common.CopyBytes(r.moduleData)
}

func (r *Request) DisplayString() string {
	profile, _ := uint256.FromBig(r.profileID)
	return pubid.ToDisplayString(profile, r.publicationID)
}

// ExpectedJudgment is the judgment an honest oracle returns for r when the
// publication is a direct post, i.e. it is its own root.
func (r *Request) ExpectedJudgment() *Judgment {
	return &Judgment{
		Kind:              CollectJudgmentKind,
		ProfileID:         r.ProfileID(),
		PublicationID:     r.publicationID.Big(),
		RootProfileID:     r.ProfileID(),
		RootPublicationID: r.publicationID.Big(),
		CollectModule:     r.collectModule,
		ContentPointer:    r.contentPointer,
	}
}

func (r *Request) String() string {
	return fmt.Sprintf("Request{%v, module %v, content %q}", r.DisplayString(), r.collectModule, r.contentPointer)
}
