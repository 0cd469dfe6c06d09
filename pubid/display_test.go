// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package pubid

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestDisplayStringFormat(t *testing.T) {
	id := FromUint64(0xbd1f8159, 0x01ef)
	require.Equal(t, "0x01-0x01ef-DA-bd1f8159", ToDisplayString(uint256.NewInt(1), id))

	id = FromUint64(0x46a30696, 1)
	require.Equal(t, "0x01-0x01-DA-46a30696", ToDisplayString(uint256.NewInt(1), id))

	require.Equal(t, "0x00-0x00-DA-00", ToDisplayString(uint256.NewInt(0), ID{}))
}

func TestParseDisplayString(t *testing.T) {
	profile, id, err := ParseDisplayString("0x01-0x01ef-DA-bd1f8159")
	require.NoError(t, err)
	require.Equal(t, uint64(1), profile.Uint64())
	require.Equal(t, FromUint64(0xbd1f8159, 0x01ef), id)

	profile, id, err = ParseDisplayString("0x1-0x1EF-DA-BD1F8159")
	require.NoError(t, err)
	require.Equal(t, uint64(1), profile.Uint64())
	require.Equal(t, FromUint64(0xbd1f8159, 0x01ef), id)

	// leading zeros beyond 128 bits of width are fine as long as the value fits
	_, id, err = ParseDisplayString("0x01-0x0000000000000000000000000000000000000001-DA-01")
	require.NoError(t, err)
	require.Equal(t, FromUint64(1, 1), id)
}

func TestDisplayRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		profile := random128(r)
		id, err := New(random128(r), random128(r))
		require.NoError(t, err)
		gotProfile, gotID, err := ParseDisplayString(ToDisplayString(profile, id))
		require.NoError(t, err)
		require.True(t, gotProfile.Eq(profile))
		require.Equal(t, id, gotID)
	}
	gotProfile, gotID, err := ParseDisplayString(ToDisplayString(max128, Unpack(new(uint256.Int).SetAllOne())))
	require.NoError(t, err)
	require.True(t, gotProfile.Eq(max128))
	require.Equal(t, Unpack(new(uint256.Int).SetAllOne()), gotID)
}

func TestParseDisplayStringMalformed(t *testing.T) {
	tooWide := "1" + "00000000000000000000000000000000"
	inputs := []string{
		"",
		"-",
		"-DA-",
		"0x01-0x01ef",
		"0x01-0x01ef-DA-",
		"0x01-0x01ef-da-bd1f8159",
		"01-0x01ef-DA-bd1f8159",
		"0x01-01ef-DA-bd1f8159",
		"0x-0x01ef-DA-bd1f8159",
		"0x01-0x-DA-bd1f8159",
		"0x01-0x01ef-DA-0xbd1f8159",
		"0x01-0x01ef-DA-bd1f8159-DA-01",
		"0x01-0x01-0x01ef-DA-bd1f8159",
		"0x01-0x01ef-DA-bd1g8159",
		" 0x01-0x01ef-DA-bd1f8159",
		"0x01-0x01ef-DA-bd1f8159 ",
		"0X01-0x01ef-DA-bd1f8159",
		"0x" + tooWide + "-0x01-DA-01",
		"0x01-0x" + tooWide + "-DA-01",
		"0x01-0x01-DA-" + tooWide,
		"0x01-0x01ef-DA-bd1f8159\x00",
		"0x01-0x01ef-DA-bd1fé8159",
	}
	for _, in := range inputs {
		require.NotPanics(t, func() {
			_, _, err := ParseDisplayString(in)
			require.Truef(t, errors.Is(err, ErrMalformedIdentifier), "input %q: %v", in, err)
		})
	}
}

func TestParseDisplayStringNeverPanics(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	alphabet := []byte("0x1aF-DAg ")
	for i := 0; i < 2000; i++ {
		buf := make([]byte, r.Intn(48))
		for j := range buf {
			buf[j] = alphabet[r.Intn(len(alphabet))]
		}
		require.NotPanics(t, func() {
			_, _, _ = ParseDisplayString(string(buf))
		})
	}
}
