// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/offchainlabs/daattest/util/rpcclient"
)

const checkPublicationMethod = "oracle_checkPublication"

// RPCChannel reaches an oracle gateway over JSON-RPC.
type RPCChannel struct {
	client *rpcclient.RpcClient
}

// NewRPCChannel connects to the configured gateway. inproc backs the "self"
// url and may be nil.
func NewRPCChannel(ctx context.Context, config rpcclient.ClientConfigFetcher, inproc *rpc.Server) (*RPCChannel, error) {
	client := rpcclient.NewRpcClient(config, inproc)
	if err := client.Start(ctx); err != nil {
		return nil, err
	}
	return &RPCChannel{client: client}, nil
}

func (c *RPCChannel) CheckPublication(ctx context.Context, query Query) (*CheckResult, error) {
	var result CheckResult
	err := c.client.CallContext(ctx, &result, checkPublicationMethod, hexutil.Bytes(query.Publication), query.StrictAvailability, query.StrictFinality)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *RPCChannel) Close() {
	c.client.Close()
}
