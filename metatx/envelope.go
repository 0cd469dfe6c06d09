// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package metatx

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/offchainlabs/daattest/util/signature"
)

var ErrMalformedEnvelope = errors.New("malformed meta-transaction envelope")

type forwardRequestTuple struct {
	From  common.Address
	Nonce *big.Int
	Data  []byte
}

var envelopeArgs abi.Arguments

func init() {
	requestType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "from", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	})
	if err != nil {
		panic(err)
	}
	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	envelopeArgs = abi.Arguments{
		{Name: "request", Type: requestType},
		{Name: "signature", Type: bytesType},
	}
}

// Envelope is a signed ForwardRequest, i.e. an attestation.
type Envelope struct {
	ForwardRequest
	Signature []byte
}

// Encode produces abi.encode(tuple(address,uint256,bytes), bytes).
func (e *Envelope) Encode() ([]byte, error) {
	if e.Nonce == nil || e.Nonce.Sign() < 0 || e.Nonce.BitLen() > 256 {
		return nil, fmt.Errorf("%w: nonce %v out of range", ErrMalformedEnvelope, e.Nonce)
	}
	data := e.Data
	if data == nil {
		data = []byte{}
	}
	sig := e.Signature
	if sig == nil {
		sig = []byte{}
	}
	return envelopeArgs.Pack(forwardRequestTuple{From: e.From, Nonce: e.Nonce, Data: data}, sig)
}

// DecodeEnvelope accepts only the canonical encoding of an envelope carrying
// a 65-byte low-s signature with an Ethereum-style recovery byte.
func DecodeEnvelope(data []byte) (env *Envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			env = nil
			err = fmt.Errorf("%w: %v", ErrMalformedEnvelope, r)
		}
	}()
	values, err := envelopeArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(values) != len(envelopeArgs) {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedEnvelope, len(envelopeArgs), len(values))
	}
	request, ok := abi.ConvertType(values[0], forwardRequestTuple{}).(forwardRequestTuple)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected request type %T", ErrMalformedEnvelope, values[0])
	}
	sig, ok := values[1].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: signature is not bytes", ErrMalformedEnvelope)
	}
	if err := checkSignatureValues(sig); err != nil {
		return nil, err
	}
	env = &Envelope{
		ForwardRequest: ForwardRequest(request),
		Signature:      sig,
	}
	reencoded, err := env.Encode()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(reencoded, data) {
		return nil, fmt.Errorf("%w: non-canonical encoding", ErrMalformedEnvelope)
	}
	return env, nil
}

func checkSignatureValues(sig []byte) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: signature is %d bytes", ErrMalformedEnvelope, len(sig))
	}
	v := sig[crypto.RecoveryIDOffset]
	if v != 27 && v != 28 {
		return fmt.Errorf("%w: recovery byte %d", ErrMalformedEnvelope, v)
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v-27, r, s, true) {
		return fmt.Errorf("%w: signature values out of range", ErrMalformedEnvelope)
	}
	return nil
}

// RecoverSigner returns the address that signed e under d.
func (e *Envelope) RecoverSigner(d Domain) (common.Address, error) {
	digest, err := Digest(d, e.ForwardRequest)
	if err != nil {
		return common.Address{}, err
	}
	return signature.RecoverAddress(e.Signature, digest)
}
