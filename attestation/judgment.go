// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package attestation

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrMalformedPayload = errors.New("malformed attestation payload")
	ErrJudgmentMismatch = errors.New("judgment does not match request")
)

// CollectJudgmentKind tags version 0 of the collect judgment tuple.
var CollectJudgmentKind = [4]byte{0, 0, 0, 0}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	bytes4Type  = mustNewType("bytes4")
	uint256Type = mustNewType("uint256")
	addressType = mustNewType("address")
	stringType  = mustNewType("string")
	bytesType   = mustNewType("bytes")
)

// abi.encode(bytes4, uint256, uint256, uint256, uint256, address, string)
var judgmentArgs = abi.Arguments{
	{Name: "kind", Type: bytes4Type},
	{Name: "profileId", Type: uint256Type},
	{Name: "pubId", Type: uint256Type},
	{Name: "rootProfileId", Type: uint256Type},
	{Name: "rootPubId", Type: uint256Type},
	{Name: "collectModule", Type: addressType},
	{Name: "contentURI", Type: stringType},
}

// Judgment is the oracle's verdict on a publication: the DA layer holds a
// publication with these fields.
type Judgment struct {
	Kind              [4]byte
	ProfileID         *big.Int
	PublicationID     *big.Int
	RootProfileID     *big.Int
	RootPublicationID *big.Int
	CollectModule     common.Address
	ContentPointer    string
}

func EncodeJudgment(j *Judgment) ([]byte, error) {
	for _, v := range []*big.Int{j.ProfileID, j.PublicationID, j.RootProfileID, j.RootPublicationID} {
		if v == nil || v.Sign() < 0 || v.BitLen() > 256 {
			return nil, fmt.Errorf("%w: judgment id %v out of range", ErrMalformedPayload, v)
		}
	}
	return judgmentArgs.Pack(j.Kind, j.ProfileID, j.PublicationID, j.RootProfileID, j.RootPublicationID, j.CollectModule, j.ContentPointer)
}

// DecodeJudgment only accepts the canonical encoding of a judgment.
func DecodeJudgment(data []byte) (*Judgment, error) {
	values, err := unpack(judgmentArgs, data)
	if err != nil {
		return nil, err
	}
	j := &Judgment{}
	var ok [7]bool
	j.Kind, ok[0] = values[0].([4]byte)
	j.ProfileID, ok[1] = values[1].(*big.Int)
	j.PublicationID, ok[2] = values[2].(*big.Int)
	j.RootProfileID, ok[3] = values[3].(*big.Int)
	j.RootPublicationID, ok[4] = values[4].(*big.Int)
	j.CollectModule, ok[5] = values[5].(common.Address)
	j.ContentPointer, ok[6] = values[6].(string)
	for i, good := range ok {
		if !good {
			return nil, fmt.Errorf("%w: unexpected type for field %v", ErrMalformedPayload, judgmentArgs[i].Name)
		}
	}
	reencoded, err := EncodeJudgment(j)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(reencoded, data) {
		return nil, fmt.Errorf("%w: non-canonical judgment encoding", ErrMalformedPayload)
	}
	return j, nil
}

func unpack(args abi.Arguments, data []byte) (values []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			values = nil
			err = fmt.Errorf("%w: %v", ErrMalformedPayload, r)
		}
	}()
	values, err = args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(values) != len(args) {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedPayload, len(args), len(values))
	}
	return values, nil
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// Matches checks every field the request pins down. Root pointers are not
// part of the request and are only required to be set.
func (j *Judgment) Matches(r *Request) error {
	switch {
	case j.Kind != CollectJudgmentKind:
		return fmt.Errorf("%w: kind %x", ErrJudgmentMismatch, j.Kind)
	case !bigEqual(j.ProfileID, r.profileID):
		return fmt.Errorf("%w: profile id %v, expected %v", ErrJudgmentMismatch, j.ProfileID, r.profileID)
	case !bigEqual(j.PublicationID, r.publicationID.Big()):
		return fmt.Errorf("%w: publication id %v, expected %v", ErrJudgmentMismatch, j.PublicationID, r.publicationID)
	case j.CollectModule != r.collectModule:
		return fmt.Errorf("%w: collect module %v, expected %v", ErrJudgmentMismatch, j.CollectModule, r.collectModule)
	case j.ContentPointer != r.contentPointer:
		return fmt.Errorf("%w: content pointer %q, expected %q", ErrJudgmentMismatch, j.ContentPointer, r.contentPointer)
	case !j.HasRoot():
		return fmt.Errorf("%w: missing root publication", ErrJudgmentMismatch)
	}
	return nil
}

func (j *Judgment) HasRoot() bool {
	return j.RootProfileID != nil && j.RootPublicationID != nil &&
		j.RootProfileID.Sign() > 0 && j.RootPublicationID.Sign() > 0
}
