// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package pubid maps composite DA-layer publication identifiers into the
// 256-bit publication ID space understood by the hub contract.
//
// A composite ID is a (batch, reference) pair of 128-bit fields, packed as
// (batch << 128) | reference. Publications created on-chain use sequential IDs
// below 2^128 and therefore always have a zero batch.
package pubid

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

const FieldBits = 128

var ErrFieldOverflow = errors.New("identifier field exceeds 128 bits")

var lowMask = uint256.Int{math.MaxUint64, math.MaxUint64, 0, 0}

// ID is a composite publication identifier. The zero value is the packed ID 0.
type ID struct {
	batch     uint256.Int
	reference uint256.Int
}

func fits(v *uint256.Int) bool {
	return v.BitLen() <= FieldBits
}

func New(batch, reference *uint256.Int) (ID, error) {
	if batch == nil || reference == nil {
		return ID{}, errors.New("nil identifier field")
	}
	if !fits(batch) {
		return ID{}, fmt.Errorf("%w: batch %v", ErrFieldOverflow, batch.Hex())
	}
	if !fits(reference) {
		return ID{}, fmt.Errorf("%w: reference %v", ErrFieldOverflow, reference.Hex())
	}
	return ID{batch: *batch, reference: *reference}, nil
}

func FromUint64(batch, reference uint64) ID {
	return ID{batch: *uint256.NewInt(batch), reference: *uint256.NewInt(reference)}
}

// Unpack splits a packed 256-bit value. Every value decodes to exactly one ID.
func Unpack(v *uint256.Int) ID {
	var id ID
	id.batch.Rsh(v, FieldBits)
	id.reference.And(v, &lowMask)
	return id
}

// FromBig unpacks a packed ID carried as a big.Int, e.g. an ABI-decoded uint256.
func FromBig(v *big.Int) (ID, error) {
	if v == nil {
		return ID{}, errors.New("nil publication id")
	}
	if v.Sign() < 0 {
		return ID{}, fmt.Errorf("negative publication id %v", v)
	}
	packed, overflow := uint256.FromBig(v)
	if overflow {
		return ID{}, fmt.Errorf("publication id %v exceeds 256 bits", v)
	}
	return Unpack(packed), nil
}

func (id ID) Packed() *uint256.Int {
	packed := new(uint256.Int).Lsh(&id.batch, FieldBits)
	return packed.Or(packed, &id.reference)
}

func (id ID) Big() *big.Int {
	return id.Packed().ToBig()
}

func (id ID) Batch() *uint256.Int {
	return id.batch.Clone()
}

func (id ID) Reference() *uint256.Int {
	return id.reference.Clone()
}

// IsOffchain reports whether the ID refers to a DA-layer publication.
func (id ID) IsOffchain() bool {
	return !id.batch.IsZero()
}

func (id ID) String() string {
	return id.Packed().Hex()
}
