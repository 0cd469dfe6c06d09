// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package signature

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/offchainlabs/daattest/util/testhelpers"
)

func TestVerifier(t *testing.T) {
	privateKey, err := crypto.GenerateKey()
	Require(t, err)
	signingAddr := crypto.PubkeyToAddress(privateKey.PublicKey)
	dataSigner := DataSignerFromPrivateKey(privateKey)

	verifier := NewVerifier([]common.Address{signingAddr})

	data := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	hash := crypto.Keccak256Hash(data)

	signature, err := dataSigner(hash.Bytes())
	Require(t, err, "error signing data")

	verified, err := verifier.VerifyData(signature, data)
	Require(t, err, "error verifying data")
	if !verified {
		t.Error("signature not verified")
	}

	verified, err = verifier.VerifyHash(signature, hash)
	Require(t, err, "error verifying data")
	if !verified {
		t.Error("signature not verified")
	}

	badData := []byte{1, 1, 2, 3, 4, 5, 6, 7}
	verified, err = verifier.VerifyData(signature, badData)
	Require(t, err, "error verifying data")
	if verified {
		t.Error("signature unexpectedly verified")
	}
}

func TestRecoverAddressAcceptsEthereumV(t *testing.T) {
	privateKey, err := crypto.GenerateKey()
	Require(t, err)
	hash := crypto.Keccak256Hash([]byte("attestation"))
	signature, err := DataSignerFromPrivateKey(privateKey)(hash.Bytes())
	Require(t, err)
	signature[crypto.RecoveryIDOffset] += 27

	addr, err := RecoverAddress(signature, hash)
	Require(t, err)
	if addr != crypto.PubkeyToAddress(privateKey.PublicKey) {
		t.Error("recovered wrong address")
	}
	if signature[crypto.RecoveryIDOffset] < 27 {
		t.Error("input signature was modified")
	}
}

func TestUnauthorizedSigner(t *testing.T) {
	privateKey, err := crypto.GenerateKey()
	Require(t, err)
	verifier := NewVerifier([]common.Address{testhelpers.RandomAddress()})
	hash := testhelpers.RandomHash()
	signature, err := DataSignerFromPrivateKey(privateKey)(hash.Bytes())
	Require(t, err)
	verified, err := verifier.VerifyHash(signature, hash)
	Require(t, err)
	if verified {
		t.Error("unauthorized signer accepted")
	}
}

func TestMissingSignature(t *testing.T) {
	verifier := NewVerifier(nil)
	_, err := verifier.VerifyData(nil, nil)
	if !errors.Is(err, ErrMissingSignature) {
		t.Error("didn't fail when missing signature")
	}
	_, err = verifier.VerifyData([]byte{1, 2, 3}, nil)
	if !errors.Is(err, ErrSignatureLength) {
		t.Error("didn't fail on short signature")
	}
}

func Require(t *testing.T, err error, printables ...interface{}) {
	t.Helper()
	testhelpers.RequireImpl(t, err, printables...)
}
