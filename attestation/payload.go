// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package attestation

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// abi.encode(bytes judgment, bytes moduleData)
var payloadArgs = abi.Arguments{
	{Name: "judgment", Type: bytesType},
	{Name: "moduleData", Type: bytesType},
}

// ComposePayload produces the meta-transaction data carried to the receiver
// contract.
func ComposePayload(judgment []byte, moduleData []byte) ([]byte, error) {
	if judgment == nil {
		judgment = []byte{}
	}
	if moduleData == nil {
		moduleData = []byte{}
	}
	return payloadArgs.Pack(judgment, moduleData)
}

func SplitPayload(data []byte) ([]byte, []byte, error) {
	values, err := unpack(payloadArgs, data)
	if err != nil {
		return nil, nil, err
	}
	judgment, ok := values[0].([]byte)
	if !ok {
		return nil, nil, fmt.Errorf("%w: judgment is not bytes", ErrMalformedPayload)
	}
	moduleData, ok := values[1].([]byte)
	if !ok {
		return nil, nil, fmt.Errorf("%w: module data is not bytes", ErrMalformedPayload)
	}
	reencoded, err := ComposePayload(judgment, moduleData)
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(reencoded, data) {
		return nil, nil, fmt.Errorf("%w: non-canonical payload encoding", ErrMalformedPayload)
	}
	return judgment, moduleData, nil
}
