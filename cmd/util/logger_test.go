// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package util

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func TestSetLogger(t *testing.T) {
	previous := log.Root()
	defer log.SetDefault(previous)

	var output bytes.Buffer
	require.NoError(t, setLogger(&output, "warn", "json"))
	log.Info("quiet")
	log.Warn("attestation rejected", "nonce", 3)
	require.NotContains(t, output.String(), "quiet")
	require.Contains(t, output.String(), `"msg":"attestation rejected"`)
	require.Contains(t, output.String(), `"nonce":3`)

	require.Error(t, setLogger(&output, "loud", "json"))
	require.Error(t, setLogger(&output, "info", "xml"))
}
