// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package verifier

import (
	"github.com/pkg/errors"
)

var (
	ErrAttestationInvalid      = errors.New("attestation invalid")
	ErrAttestationUnauthorized = errors.New("attestation unauthorized")
	ErrAttestationReplayed     = errors.New("attestation replayed")
)

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrAttestationInvalid, format, args...)
}

func invalid(err error) error {
	return errors.Wrap(ErrAttestationInvalid, err.Error())
}
