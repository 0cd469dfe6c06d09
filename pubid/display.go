// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package pubid

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var ErrMalformedIdentifier = errors.New("malformed publication identifier")

const daSeparator = "-DA-"

// evenHex renders v as lowercase hex padded to a whole number of bytes.
func evenHex(v *uint256.Int) string {
	s := v.ToBig().Text(16)
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return s
}

// ToDisplayString renders the human-facing form sent to the oracle network,
// e.g. 0x01-0x01ef-DA-bd1f8159.
func ToDisplayString(profileID *uint256.Int, id ID) string {
	return "0x" + evenHex(profileID) + "-0x" + evenHex(&id.reference) + daSeparator + evenHex(&id.batch)
}

// ParseDisplayString is the inverse of ToDisplayString. Hex digits are
// accepted in either case and with any number of leading zeros.
func ParseDisplayString(s string) (*uint256.Int, ID, error) {
	head, batchHex, found := strings.Cut(s, daSeparator)
	if !found {
		return nil, ID{}, fmt.Errorf("%w: missing %q separator in %q", ErrMalformedIdentifier, daSeparator, s)
	}
	profileHex, referenceHex, found := strings.Cut(head, "-")
	if !found {
		return nil, ID{}, fmt.Errorf("%w: missing reference segment in %q", ErrMalformedIdentifier, s)
	}
	profileHex, ok := strings.CutPrefix(profileHex, "0x")
	if !ok {
		return nil, ID{}, fmt.Errorf("%w: profile segment must start with 0x in %q", ErrMalformedIdentifier, s)
	}
	referenceHex, ok = strings.CutPrefix(referenceHex, "0x")
	if !ok {
		return nil, ID{}, fmt.Errorf("%w: reference segment must start with 0x in %q", ErrMalformedIdentifier, s)
	}
	profile, err := parseSegment("profile", profileHex)
	if err != nil {
		return nil, ID{}, err
	}
	reference, err := parseSegment("reference", referenceHex)
	if err != nil {
		return nil, ID{}, err
	}
	batch, err := parseSegment("batch", batchHex)
	if err != nil {
		return nil, ID{}, err
	}
	return profile, ID{batch: *batch, reference: *reference}, nil
}

func parseSegment(name, digits string) (*uint256.Int, error) {
	if len(digits) == 0 {
		return nil, fmt.Errorf("%w: empty %s segment", ErrMalformedIdentifier, name)
	}
	for _, c := range digits {
		if !isHexDigit(c) {
			return nil, fmt.Errorf("%w: invalid character %q in %s segment", ErrMalformedIdentifier, c, name)
		}
	}
	digits = strings.TrimLeft(digits, "0")
	if len(digits) > FieldBits/4 {
		return nil, fmt.Errorf("%w: %s segment exceeds 128 bits", ErrMalformedIdentifier, name)
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	raw, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %s segment: %v", ErrMalformedIdentifier, name, err)
	}
	return new(uint256.Int).SetBytes(raw), nil
}

func isHexDigit(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
