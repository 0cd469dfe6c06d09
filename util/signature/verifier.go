// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package signature

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// DataSignerFunc takes a 32-byte hash and produces a 65-byte [R || S || V]
// signature with V in {0, 1}.
type DataSignerFunc func([]byte) ([]byte, error)

func DataSignerFromPrivateKey(privateKey *ecdsa.PrivateKey) DataSignerFunc {
	return func(data []byte) ([]byte, error) {
		return crypto.Sign(data, privateKey)
	}
}

var (
	ErrMissingSignature  = errors.New("missing required signature")
	ErrSignatureLength   = errors.New("signature must be 65 bytes")
	ErrSignatureRecovery = errors.New("unable to recover signing key")
)

// Verifier holds the set of signer addresses whose signatures are accepted.
type Verifier struct {
	authorizedMap map[common.Address]struct{}
}

func NewVerifier(authorizedAddresses []common.Address) *Verifier {
	authorizedMap := make(map[common.Address]struct{}, len(authorizedAddresses))
	for _, addr := range authorizedAddresses {
		authorizedMap[addr] = struct{}{}
	}
	return &Verifier{
		authorizedMap: authorizedMap,
	}
}

func (v *Verifier) IsAuthorized(addr common.Address) bool {
	_, exists := v.authorizedMap[addr]
	return exists
}

func (v *Verifier) Authorized() []common.Address {
	addrs := make([]common.Address, 0, len(v.authorizedMap))
	for addr := range v.authorizedMap {
		addrs = append(addrs, addr)
	}
	return addrs
}

// RecoverAddress returns the address that produced signature over hash.
// Ethereum-style V values of 27 and 28 are accepted alongside 0 and 1.
func RecoverAddress(signature []byte, hash common.Hash) (common.Address, error) {
	if len(signature) == 0 {
		return common.Address{}, ErrMissingSignature
	}
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, ErrSignatureLength
	}
	sig := common.CopyBytes(signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	sigPublicKey, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, errors.Wrap(ErrSignatureRecovery, err.Error())
	}
	return crypto.PubkeyToAddress(*sigPublicKey), nil
}

func (v *Verifier) VerifyHash(signature []byte, hash common.Hash) (bool, error) {
	addr, err := RecoverAddress(signature, hash)
	if err != nil {
		return false, err
	}
	return v.IsAuthorized(addr), nil
}

func (v *Verifier) VerifyData(signature []byte, data ...[]byte) (bool, error) {
	return v.VerifyHash(signature, crypto.Keccak256Hash(data...))
}
