// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package collect drives a DA-layer publication through attestation and into
// the hub's collect entry point, and emulates that entry point in-process.
package collect

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/pkg/errors"

	"github.com/offchainlabs/daattest/pubid"
	"github.com/offchainlabs/daattest/verifier"
)

var (
	gateCollectCounter  = metrics.NewRegisteredCounter("daattest/collect/gate/collected", nil)
	gateRejectedCounter = metrics.NewRegisteredCounter("daattest/collect/gate/rejected", nil)
	gateMintFailCounter = metrics.NewRegisteredCounter("daattest/collect/gate/mintfailed", nil)
)

// CollectTarget is what the gate hands the minter once an attestation has
// been accepted.
type CollectTarget struct {
	ProfileID         *big.Int
	PublicationID     pubid.ID
	RootProfileID     *big.Int
	RootPublicationID *big.Int
	CollectModule     common.Address
	ContentPointer    string
	ModuleData        []byte
}

// Minter performs the state change a successful collect unlocks and returns
// the minted token id.
type Minter interface {
	MintCollect(ctx context.Context, target CollectTarget) (*big.Int, error)
}

// Gate is the hub entry point for collecting DA-layer posts. Calls are
// serialized so that every attestation is checked, minted and consumed
// against a single nonce order.
type Gate struct {
	mutex    sync.Mutex
	verifier *verifier.Verifier
	minter   Minter
}

func NewGate(v *verifier.Verifier, minter Minter) *Gate {
	return &Gate{verifier: v, minter: minter}
}

func (g *Gate) Verifier() *verifier.Verifier {
	return g.verifier
}

// Collect verifies call, consumes its nonce and mints. Nothing is mutated
// unless verification passes, and a failed mint hands the nonce back.
func (g *Gate) Collect(ctx context.Context, call *verifier.CollectCall) (*big.Int, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	verified, err := g.verifier.Check(call)
	if err != nil {
		gateRejectedCounter.Inc(1)
		return nil, err
	}
	id, err := pubid.FromBig(verified.Judgment.PublicationID)
	if err != nil {
		gateRejectedCounter.Inc(1)
		return nil, errors.Wrap(verifier.ErrAttestationInvalid, err.Error())
	}
	if err := g.verifier.Consume(verified); err != nil {
		gateRejectedCounter.Inc(1)
		return nil, err
	}
	tokenID, err := g.minter.MintCollect(ctx, CollectTarget{
		ProfileID:         new(big.Int).Set(verified.Judgment.ProfileID),
		PublicationID:     id,
		RootProfileID:     new(big.Int).Set(verified.Judgment.RootProfileID),
		RootPublicationID: new(big.Int).Set(verified.Judgment.RootPublicationID),
		CollectModule:     verified.Judgment.CollectModule,
		ContentPointer:    verified.Judgment.ContentPointer,
		ModuleData:        common.CopyBytes(verified.ModuleData),
	})
	if err != nil {
		gateMintFailCounter.Inc(1)
		if restoreErr := g.verifier.Restore(verified); restoreErr != nil {
			log.Error("collect mint failed and nonce could not be restored", "signer", verified.Signer, "nonce", verified.Nonce, "err", restoreErr)
		} else {
			log.Warn("collect mint failed, attestation left unconsumed", "signer", verified.Signer, "nonce", verified.Nonce, "err", err)
		}
		return nil, fmt.Errorf("minting collect: %w", err)
	}
	gateCollectCounter.Inc(1)
	return tokenID, nil
}

type collectNFT struct {
	name    string
	symbol  string
	pointer CollectTarget
	owners  []common.Address
}

// MemoryMinter deploys one collect NFT per publication on first collect and
// numbers its tokens from 1.
type MemoryMinter struct {
	mutex     sync.Mutex
	handles   map[string]string
	nfts      map[string]*collectNFT
	collector common.Address
	fail      error
}

func NewMemoryMinter(collector common.Address) *MemoryMinter {
	return &MemoryMinter{
		handles:   make(map[string]string),
		nfts:      make(map[string]*collectNFT),
		collector: collector,
	}
}

// SetHandle registers the handle of a profile. Collect NFT names are derived
// from it.
func (m *MemoryMinter) SetHandle(profileID *big.Int, handle string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.handles[profileID.String()] = handle
}

// FailWith makes every following mint fail with err, or succeed again if err
// is nil.
func (m *MemoryMinter) FailWith(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fail = err
}

func nftKey(profileID *big.Int, id pubid.ID) string {
	return profileID.String() + "/" + id.Packed().Dec()
}

func (m *MemoryMinter) MintCollect(_ context.Context, target CollectTarget) (*big.Int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	handle, ok := m.handles[target.ProfileID.String()]
	if !ok {
		return nil, fmt.Errorf("profile %v does not exist", target.ProfileID)
	}
	key := nftKey(target.ProfileID, target.PublicationID)
	nft, ok := m.nfts[key]
	if !ok {
		nft = &collectNFT{
			name:    CollectNFTName(handle, target.PublicationID),
			symbol:  CollectNFTSymbol(handle, target.PublicationID),
			pointer: target,
		}
		m.nfts[key] = nft
		log.Info("deployed collect NFT", "name", nft.name, "symbol", nft.symbol)
	}
	nft.owners = append(nft.owners, m.collector)
	return big.NewInt(int64(len(nft.owners))), nil
}

// CollectNFT reports the name, symbol and number of minted tokens of the
// collect NFT for a publication.
func (m *MemoryMinter) CollectNFT(profileID *big.Int, id pubid.ID) (name string, symbol string, minted int, ok bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	nft, ok := m.nfts[nftKey(profileID, id)]
	if !ok {
		return "", "", 0, false
	}
	return nft.name, nft.symbol, len(nft.owners), true
}
