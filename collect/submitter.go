// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package collect

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/offchainlabs/daattest/verifier"
)

// hubABIJSON covers the hub's collect entry point and the nonce getter of
// the meta-transaction receiver.
const hubABIJSON = `[
	{"type":"function","name":"daCollect","stateMutability":"nonpayable",
	 "inputs":[{"name":"profileId","type":"uint256"},{"name":"pubId","type":"uint256"},{"name":"attestation","type":"bytes"},{"name":"data","type":"bytes"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"metaTxGetNonce","stateMutability":"view",
	 "inputs":[{"name":"from","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

var hubABI abi.ABI

func init() {
	var err error
	hubABI, err = abi.JSON(strings.NewReader(hubABIJSON))
	if err != nil {
		panic(err)
	}
}

// Receipt describes a submitted (or simulated) collect.
type Receipt struct {
	DryRun      bool
	TokenID     *big.Int
	TxHash      common.Hash
	BlockNumber *big.Int
}

// Submitter delivers a collect call to the hub. With dryRun set nothing is
// committed.
type Submitter interface {
	SubmitCollect(ctx context.Context, call *verifier.CollectCall, dryRun bool) (*Receipt, error)
}

// NonceReader returns the nonce the hub expects next from signer.
type NonceReader interface {
	NextNonce(ctx context.Context, signer common.Address) (uint64, error)
}

// GateSubmitter submits to an in-process gate.
type GateSubmitter struct {
	gate *Gate
}

func NewGateSubmitter(gate *Gate) *GateSubmitter {
	return &GateSubmitter{gate: gate}
}

func (s *GateSubmitter) SubmitCollect(ctx context.Context, call *verifier.CollectCall, dryRun bool) (*Receipt, error) {
	if dryRun {
		if _, err := s.gate.Verifier().Check(call); err != nil {
			return nil, err
		}
		return &Receipt{DryRun: true}, nil
	}
	tokenID, err := s.gate.Collect(ctx, call)
	if err != nil {
		return nil, err
	}
	return &Receipt{TokenID: tokenID}, nil
}

func (s *GateSubmitter) NextNonce(_ context.Context, signer common.Address) (uint64, error) {
	return s.gate.Verifier().NextNonce(signer), nil
}

// Backend is what the contract submitter needs from an Ethereum client.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// ContractSubmitter calls daCollect on a deployed hub.
type ContractSubmitter struct {
	hub      common.Address
	contract *bind.BoundContract
	backend  Backend
	opts     *bind.TransactOpts
}

func NewContractSubmitter(hub common.Address, backend Backend, opts *bind.TransactOpts) *ContractSubmitter {
	return &ContractSubmitter{
		hub:      hub,
		contract: bind.NewBoundContract(hub, hubABI, backend, backend, backend),
		backend:  backend,
		opts:     opts,
	}
}

func (s *ContractSubmitter) SubmitCollect(ctx context.Context, call *verifier.CollectCall, dryRun bool) (*Receipt, error) {
	moduleData := call.ModuleData
	if moduleData == nil {
		moduleData = []byte{}
	}
	args := []interface{}{call.ProfileID, call.PublicationID, call.Attestation, moduleData}
	if dryRun {
		var out []interface{}
		err := s.contract.Call(&bind.CallOpts{Context: ctx, From: s.opts.From}, &out, "daCollect", args...)
		if err != nil {
			return nil, classifyRevert(err)
		}
		receipt := &Receipt{DryRun: true}
		if len(out) == 1 {
			receipt.TokenID, _ = out[0].(*big.Int)
		}
		opts := *s.opts
		opts.Context = ctx
		opts.NoSend = true
		tx, err := s.contract.Transact(&opts, "daCollect", args...)
		if err != nil {
			return nil, classifyRevert(err)
		}
		receipt.TxHash = tx.Hash()
		return receipt, nil
	}

	opts := *s.opts
	opts.Context = ctx
	tx, err := s.contract.Transact(&opts, "daCollect", args...)
	if err != nil {
		return nil, classifyRevert(err)
	}
	log.Info("submitted daCollect", "hub", s.hub, "tx", tx.Hash(), "profile", call.ProfileID, "publication", call.PublicationID)
	mined, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for daCollect %v: %w", tx.Hash(), err)
	}
	if mined.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("daCollect %v reverted in block %v", tx.Hash(), mined.BlockNumber)
	}
	return &Receipt{TxHash: tx.Hash(), BlockNumber: mined.BlockNumber}, nil
}

// ContractNonceReader reads the next expected nonce from the
// meta-transaction receiver.
type ContractNonceReader struct {
	contract *bind.BoundContract
}

func NewContractNonceReader(receiver common.Address, caller bind.ContractCaller) *ContractNonceReader {
	return &ContractNonceReader{contract: bind.NewBoundContract(receiver, hubABI, caller, nil, nil)}
}

func (r *ContractNonceReader) NextNonce(ctx context.Context, signer common.Address) (uint64, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "metaTxGetNonce", signer); err != nil {
		return 0, fmt.Errorf("reading nonce of %v: %w", signer, err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("metaTxGetNonce returned %d values", len(out))
	}
	nonce, ok := out[0].(*big.Int)
	if !ok || !nonce.IsUint64() {
		return 0, fmt.Errorf("metaTxGetNonce returned %v", out[0])
	}
	return nonce.Uint64(), nil
}

// FixedNonce is a NonceReader that always reports the same nonce.
type FixedNonce uint64

func (n FixedNonce) NextNonce(context.Context, common.Address) (uint64, error) {
	return uint64(n), nil
}

// classifyRevert maps hub revert reasons onto the verifier's error kinds so
// callers can tell a replay from a rejected attestation.
func classifyRevert(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Replayed"):
		return errors.Wrap(verifier.ErrAttestationReplayed, msg)
	case strings.Contains(msg, "Unauthorized"):
		return errors.Wrap(verifier.ErrAttestationUnauthorized, msg)
	case strings.Contains(msg, "AttestationInvalid"):
		return errors.Wrap(verifier.ErrAttestationInvalid, msg)
	}
	return err
}
