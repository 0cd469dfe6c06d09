// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package verifier emulates the ledger-side checks the hub runs on an
// attestation before a DA-layer publication may be collected.
package verifier

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/pkg/errors"

	"github.com/offchainlabs/daattest/attestation"
	"github.com/offchainlabs/daattest/metatx"
	"github.com/offchainlabs/daattest/util/pretty"
	"github.com/offchainlabs/daattest/util/signature"
)

var (
	acceptedCounter     = metrics.NewRegisteredCounter("daattest/verifier/accepted", nil)
	invalidCounter      = metrics.NewRegisteredCounter("daattest/verifier/invalid", nil)
	unauthorizedCounter = metrics.NewRegisteredCounter("daattest/verifier/unauthorized", nil)
	replayedCounter     = metrics.NewRegisteredCounter("daattest/verifier/replayed", nil)
)

// CollectCall is the hub call an attestation is checked against. A zero
// ExpectedCollectModule or empty ExpectedContentPointer leaves that field
// constrained only by the whitelist and non-emptiness.
type CollectCall struct {
	ProfileID              *big.Int
	PublicationID          *big.Int
	Attestation            []byte
	ModuleData             []byte
	ExpectedCollectModule  common.Address
	ExpectedContentPointer string
}

// Verified is an attestation that passed every check but whose nonce has
// not been consumed yet.
type Verified struct {
	Signer     common.Address
	Nonce      uint64
	Judgment   *attestation.Judgment
	ModuleData []byte
}

type Verifier struct {
	domain    metatx.Domain
	signers   *signature.Verifier
	nonces    NonceStore
	whitelist ModuleWhitelist
}

func NewVerifier(domain metatx.Domain, signers *signature.Verifier, nonces NonceStore, whitelist ModuleWhitelist) *Verifier {
	return &Verifier{
		domain:    domain,
		signers:   signers,
		nonces:    nonces,
		whitelist: whitelist,
	}
}

func (v *Verifier) Domain() metatx.Domain {
	return v.domain
}

// NextNonce is the nonce the next attestation from signer must carry.
func (v *Verifier) NextNonce(signer common.Address) uint64 {
	return v.nonces.Next(signer)
}

// Check runs every verification step without mutating state.
func (v *Verifier) Check(call *CollectCall) (*Verified, error) {
	verified, err := v.check(call)
	if err != nil {
		countFailure(err)
		log.Debug("attestation rejected", "profile", call.ProfileID, "publication", call.PublicationID, "attestation", pretty.FirstFewBytes(call.Attestation), "err", err)
		return nil, err
	}
	return verified, nil
}

func (v *Verifier) check(call *CollectCall) (*Verified, error) {
	if call.ProfileID == nil || call.PublicationID == nil {
		return nil, invalidf("collect call without profile or publication")
	}
	env, err := metatx.DecodeEnvelope(call.Attestation)
	if err != nil {
		return nil, invalid(err)
	}
	if !v.signers.IsAuthorized(env.From) {
		return nil, errors.Wrapf(ErrAttestationUnauthorized, "%v is not an oracle identity", env.From)
	}
	signer, err := env.RecoverSigner(v.domain)
	if err != nil {
		return nil, invalid(err)
	}
	if signer != env.From {
		return nil, invalidf("signature by %v does not match sender %v", signer, env.From)
	}
	next := v.nonces.Next(env.From)
	if !env.Nonce.IsUint64() || env.Nonce.Uint64() > next {
		return nil, invalidf("nonce %v of %v is ahead of next nonce %d", env.Nonce, env.From, next)
	}
	if env.Nonce.Uint64() < next {
		return nil, errors.Wrapf(ErrAttestationReplayed, "nonce %v of %v already consumed", env.Nonce, env.From)
	}

	rawJudgment, moduleData, err := attestation.SplitPayload(env.Data)
	if err != nil {
		return nil, invalid(err)
	}
	judgment, err := attestation.DecodeJudgment(rawJudgment)
	if err != nil {
		return nil, invalid(err)
	}
	if err := v.checkJudgment(call, judgment, moduleData); err != nil {
		return nil, err
	}
	return &Verified{
		Signer:     env.From,
		Nonce:      env.Nonce.Uint64(),
		Judgment:   judgment,
		ModuleData: moduleData,
	}, nil
}

func (v *Verifier) checkJudgment(call *CollectCall, j *attestation.Judgment, moduleData []byte) error {
	switch {
	case j.Kind != attestation.CollectJudgmentKind:
		return invalidf("judgment kind %x", j.Kind)
	case j.ProfileID.Cmp(call.ProfileID) != 0:
		return invalidf("judgment profile %v, call profile %v", j.ProfileID, call.ProfileID)
	case j.PublicationID.Cmp(call.PublicationID) != 0:
		return invalidf("judgment publication %v, call publication %v", j.PublicationID, call.PublicationID)
	case !j.HasRoot():
		return invalidf("judgment has no root publication")
	case !v.whitelist.IsCollectModuleWhitelisted(j.CollectModule):
		return invalidf("collect module %v not whitelisted", j.CollectModule)
	case call.ExpectedCollectModule != (common.Address{}) && j.CollectModule != call.ExpectedCollectModule:
		return invalidf("judgment collect module %v, expected %v", j.CollectModule, call.ExpectedCollectModule)
	case j.ContentPointer == "":
		return invalidf("judgment has no content pointer")
	case call.ExpectedContentPointer != "" && j.ContentPointer != call.ExpectedContentPointer:
		return invalidf("judgment content pointer %q, expected %q", j.ContentPointer, call.ExpectedContentPointer)
	case !bytes.Equal(moduleData, call.ModuleData) && (len(moduleData) != 0 || len(call.ModuleData) != 0):
		return invalidf("attested module data does not match call")
	}
	return nil
}

// Consume marks the verified nonce as used. If another call consumed it
// first, the attestation is reported as replayed.
func (v *Verifier) Consume(verified *Verified) error {
	if err := v.nonces.Consume(verified.Signer, verified.Nonce); err != nil {
		countFailure(err)
		return err
	}
	acceptedCounter.Inc(1)
	log.Info("attestation accepted", "signer", verified.Signer, "nonce", verified.Nonce,
		"profile", verified.Judgment.ProfileID, "publication", verified.Judgment.PublicationID)
	return nil
}

// Restore hands a consumed nonce back when the state change it authorized
// was rolled back.
func (v *Verifier) Restore(verified *Verified) error {
	if err := v.nonces.Restore(verified.Signer, verified.Nonce); err != nil {
		return err
	}
	log.Info("attestation rolled back", "signer", verified.Signer, "nonce", verified.Nonce)
	return nil
}

func (v *Verifier) Verify(call *CollectCall) (*Verified, error) {
	verified, err := v.Check(call)
	if err != nil {
		return nil, err
	}
	if err := v.Consume(verified); err != nil {
		return nil, err
	}
	return verified, nil
}

func countFailure(err error) {
	switch {
	case errors.Is(err, ErrAttestationUnauthorized):
		unauthorizedCounter.Inc(1)
	case errors.Is(err, ErrAttestationReplayed):
		replayedCounter.Inc(1)
	default:
		invalidCounter.Inc(1)
	}
}
