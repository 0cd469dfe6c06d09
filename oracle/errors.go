// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package oracle

import (
	"errors"
	"fmt"
)

type ErrorKind uint8

const (
	// NotFound: the DA layer has no such publication.
	NotFound ErrorKind = iota + 1
	// NotYetAvailable: the publication exists but fails the requested
	// availability or finality level.
	NotYetAvailable
	// Malformed: the query or the oracle's answer could not be interpreted.
	Malformed
	TransportFailure
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case NotYetAvailable:
		return "NotYetAvailable"
	case Malformed:
		return "Malformed"
	case TransportFailure:
		return "TransportFailure"
	case Timeout:
		return "Timeout"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Retryable reports whether a fresh request may succeed later. Only an
// answer that cannot be interpreted is final.
func (k ErrorKind) Retryable() bool {
	return k != Malformed
}

type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Reason != "":
		return fmt.Sprintf("oracle %v: %v: %v", e.Kind, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("oracle %v: %v", e.Kind, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("oracle %v: %v", e.Kind, e.Reason)
	default:
		return fmt.Sprintf("oracle %v", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// KindOf extracts the oracle error kind from anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var oracleErr *Error
	if errors.As(err, &oracleErr) {
		return oracleErr.Kind, true
	}
	return 0, false
}
