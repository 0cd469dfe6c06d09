// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package oracle queries the off-chain oracle for a judgment on a DA-layer
// publication, and provides a reference oracle backed by a publication store.
package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/offchainlabs/daattest/attestation"
)

// Reasons an oracle reports instead of a judgment.
const (
	ReasonNotFound         = "NotFound"
	ReasonNotYetAvailable  = "NotYetAvailable"
	ReasonMalformed        = "Malformed"
	ReasonDecryptionFailed = "DecryptionFailed"
)

type Strictness struct {
	Availability bool `koanf:"availability"`
	Finality     bool `koanf:"finality"`
}

var StrictnessAll = Strictness{Availability: true, Finality: true}

type Query struct {
	Publication        string `json:"publication"`
	StrictAvailability bool   `json:"strictAvailability"`
	StrictFinality     bool   `json:"strictFinality"`
}

func QueryFor(r *attestation.Request, s Strictness) Query {
	return Query{
		Publication:        r.DisplayString(),
		StrictAvailability: s.Availability,
		StrictFinality:     s.Finality,
	}
}

// CheckResult carries either an encoded judgment or the reason none was given.
type CheckResult struct {
	Output hexutil.Bytes `json:"output,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// Channel is the transport to the oracle network.
type Channel interface {
	CheckPublication(ctx context.Context, query Query) (*CheckResult, error)
}
