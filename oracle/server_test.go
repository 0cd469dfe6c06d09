// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package oracle

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/daattest/attestation"
	"github.com/offchainlabs/daattest/pubid"
	"github.com/offchainlabs/daattest/util/rpcclient"
	"github.com/offchainlabs/daattest/util/testhelpers"
)

var (
	testModule  = common.HexToAddress("0x23b9467334beb345aaa6fd1545538f3d54436e96")
	testContent = "ar://s7-KUGt9F0TuJ4xTP01kbybqz0QLsk7NKp4zy4day1M"
)

func testPublication(batch, reference uint64) *Publication {
	return &Publication{
		ProfileID:      big.NewInt(1),
		PublicationID:  pubid.FromUint64(batch, reference).Big(),
		CollectModule:  testModule,
		ContentPointer: testContent,
		Available:      true,
		Final:          true,
	}
}

func requestFor(t *testing.T, p *Publication) *attestation.Request {
	t.Helper()
	id, err := pubid.FromBig(p.PublicationID)
	require.NoError(t, err)
	req, err := attestation.NewRequest(p.ProfileID, id, p.CollectModule, p.ContentPointer, nil)
	require.NoError(t, err)
	return req
}

func testServerConfig() *ServerConfig {
	config := DefaultServerConfig
	config.Addr = "127.0.0.1"
	config.Port = 0
	config.VHosts = []string{"*"}
	return &config
}

func startTestOracle(t *testing.T, ctx context.Context, config *ServerConfig, source PublicationSource) string {
	t.Helper()
	_, addr, err := StartServer(ctx, config, source)
	require.NoError(t, err)
	return fmt.Sprintf("http://%v", addr)
}

func dialTestOracle(t *testing.T, ctx context.Context, url string, jwt string, strict Strictness) *Client {
	t.Helper()
	config := DefaultClientConfig
	config.Timeout = 5 * time.Second
	config.Strict = strict
	config.RPC.URL = url
	config.RPC.JWTSecret = jwt
	config.RPC.Retries = 0
	channel, err := NewRPCChannel(ctx, func() *rpcclient.ClientConfig { return &config.RPC }, nil)
	require.NoError(t, err)
	t.Cleanup(channel.Close)
	return NewClient(channel, func() *ClientConfig { return &config })
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	got, ok := KindOf(err)
	require.True(t, ok, "not an oracle error: %v", err)
	require.Equal(t, kind, got, err.Error())
}

func TestOracleServerRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewMemorySource()
	final := testPublication(0x46a30696, 1)
	pending := testPublication(0x46a30696, 2)
	pending.Final = false
	require.NoError(t, source.Put(final))
	require.NoError(t, source.Put(pending))

	url := startTestOracle(t, ctx, testServerConfig(), source)
	client := dialTestOracle(t, ctx, url, "", StrictnessAll)

	req := requestFor(t, final)
	judgment, err := client.Query(ctx, req)
	require.NoError(t, err)
	decoded, err := attestation.DecodeJudgment(judgment)
	require.NoError(t, err)
	require.NoError(t, decoded.Matches(req))

	_, err = client.Query(ctx, requestFor(t, pending))
	requireKind(t, err, NotYetAvailable)

	_, err = client.Query(ctx, requestFor(t, testPublication(0x46a30696, 3)))
	requireKind(t, err, NotFound)

	relaxed := dialTestOracle(t, ctx, url, "", Strictness{Availability: true})
	_, err = relaxed.Query(ctx, requestFor(t, pending))
	require.NoError(t, err)
}

func TestOracleServerMalformedQuery(t *testing.T) {
	api := NewAPI(NewMemorySource())
	for _, display := range []string{"", "abc", "0x01-0x01-46a30696", "0x01-0x01-DA-00"} {
		result, err := api.CheckPublication(context.Background(), []byte(display), true, true)
		require.NoError(t, err)
		require.Equal(t, ReasonMalformed, result.Reason, display)
	}
}

func TestOracleServerJWT(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secret := testhelpers.RandomHash()
	secretPath := filepath.Join(t.TempDir(), "jwt.hex")
	require.NoError(t, os.WriteFile(secretPath, []byte(secret.Hex()), 0600))

	source := NewMemorySource()
	p := testPublication(0xbd1f8159, 0x01ef)
	require.NoError(t, source.Put(p))
	config := testServerConfig()
	config.JWTSecret = secretPath
	url := startTestOracle(t, ctx, config, source)

	_, err := dialTestOracle(t, ctx, url, secretPath, StrictnessAll).Query(ctx, requestFor(t, p))
	require.NoError(t, err)

	_, err = dialTestOracle(t, ctx, url, "", StrictnessAll).Query(ctx, requestFor(t, p))
	requireKind(t, err, TransportFailure)
}

func TestOracleInProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewMemorySource()
	p := testPublication(0xeb395e21, 0x01ef)
	p.RootProfileID = big.NewInt(1)
	p.RootPublicationID = pubid.FromUint64(0xeb395e21, 0x01ee).Big()
	require.NoError(t, source.Put(p))
	rpcServer, err := NewRPCServer(NewAPI(source), 0)
	require.NoError(t, err)
	defer rpcServer.Stop()

	channel, err := NewRPCChannel(ctx, func() *rpcclient.ClientConfig { return &rpcclient.TestClientConfig }, rpcServer)
	require.NoError(t, err)
	defer channel.Close()
	client := NewClient(channel, func() *ClientConfig { return &DefaultClientConfig })

	judgment, err := client.Query(ctx, requestFor(t, p))
	require.NoError(t, err)
	decoded, err := attestation.DecodeJudgment(judgment)
	require.NoError(t, err)
	require.Zero(t, p.RootPublicationID.Cmp(decoded.RootPublicationID))
}
