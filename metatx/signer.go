// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package metatx

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/daattest/util"
	"github.com/offchainlabs/daattest/util/signature"
)

// Signer produces envelopes on behalf of one attestor identity.
type Signer struct {
	signer  signature.DataSignerFunc
	address common.Address
}

func NewSigner(signer signature.DataSignerFunc, address common.Address) *Signer {
	return &Signer{signer: signer, address: address}
}

func SignerFromPrivateKey(privateKey *ecdsa.PrivateKey) *Signer {
	return NewSigner(signature.DataSignerFromPrivateKey(privateKey), crypto.PubkeyToAddress(privateKey.PublicKey))
}

// SignerFromKeystore unlocks account (or the first account if empty) in the
// keystore directory.
func SignerFromKeystore(keystorePath, account, passphrase string) (*Signer, error) {
	dataSigner, address, err := util.DataSignerFromKeystore(keystorePath, account, passphrase)
	if err != nil {
		return nil, err
	}
	return NewSigner(dataSigner, address), nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

func (s *Signer) Sign(d Domain, nonce *big.Int, data []byte) (*Envelope, error) {
	req := ForwardRequest{
		From:  s.address,
		Nonce: new(big.Int).Set(nonce),
		Data:  common.CopyBytes(data),
	}
	if req.Data == nil {
		req.Data = []byte{}
	}
	digest, err := Digest(d, req)
	if err != nil {
		return nil, err
	}
	sig, err := s.signer(digest.Bytes())
	if err != nil {
		return nil, fmt.Errorf("signing meta-transaction: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("signer returned %d byte signature", len(sig))
	}
	sig = common.CopyBytes(sig)
	if sig[crypto.RecoveryIDOffset] < 27 {
		sig[crypto.RecoveryIDOffset] += 27
	}
	log.Trace("signed meta-transaction", "from", s.address, "nonce", nonce, "digest", digest, "domain", d)
	return &Envelope{ForwardRequest: req, Signature: sig}, nil
}
