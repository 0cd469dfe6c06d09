// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package collect

import (
	"fmt"

	"github.com/offchainlabs/daattest/pubid"
)

// abbreviation is the first four characters of handle, dropping a trailing
// space in the fourth position.
func abbreviation(handle string) string {
	runes := []rune(handle)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	if len(runes) == 4 && runes[3] == ' ' {
		runes = runes[:3]
	}
	return string(runes)
}

func daSuffix(id pubid.ID) string {
	return fmt.Sprintf("%s-DA-%s", id.Reference().Dec(), id.Batch().Hex())
}

// CollectNFTName is the name of the collect NFT minted for a DA-layer post,
// e.g. "lensprotocol-Collect-1-DA-0x46a30696".
func CollectNFTName(handle string, id pubid.ID) string {
	return handle + "-Collect-" + daSuffix(id)
}

// CollectNFTSymbol is the matching symbol, e.g. "lens-Cl-1-DA-0x46a30696".
func CollectNFTSymbol(handle string, id pubid.ID) string {
	return abbreviation(handle) + "-Cl-" + daSuffix(id)
}
