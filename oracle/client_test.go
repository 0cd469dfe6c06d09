// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package oracle_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/daattest/attestation"
	"github.com/offchainlabs/daattest/oracle"
	"github.com/offchainlabs/daattest/oracle/oracletest"
	"github.com/offchainlabs/daattest/pubid"
)

func testRequest(t *testing.T) *attestation.Request {
	t.Helper()
	req, err := attestation.NewRequest(big.NewInt(1), pubid.FromUint64(0x46a30696, 1),
		common.HexToAddress("0x23b9467334beb345aaa6fd1545538f3d54436e96"), "ar://s7-KUGt9F0TuJ4xTP01kbybqz0QLsk7NKp4zy4day1M", nil)
	require.NoError(t, err)
	return req
}

func expectedJudgment(t *testing.T, req *attestation.Request) []byte {
	t.Helper()
	encoded, err := attestation.EncodeJudgment(req.ExpectedJudgment())
	require.NoError(t, err)
	return encoded
}

func newClient(channel oracle.Channel, timeout time.Duration) *oracle.Client {
	config := oracle.DefaultClientConfig
	config.Timeout = timeout
	return oracle.NewClient(channel, func() *oracle.ClientConfig { return &config })
}

func requireKind(t *testing.T, err error, kind oracle.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	got, ok := oracle.KindOf(err)
	require.True(t, ok, "not an oracle error: %v", err)
	require.Equal(t, kind, got, err.Error())
}

func TestQueryReturnsJudgment(t *testing.T) {
	req := testRequest(t)
	channel := oracletest.NewScripted(oracletest.Judgment(expectedJudgment(t, req)))
	judgment, err := newClient(channel, time.Second).Query(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, expectedJudgment(t, req), judgment)

	queries := channel.Queries()
	require.Len(t, queries, 1)
	require.Equal(t, oracle.Query{
		Publication:        "0x01-0x01-DA-46a30696",
		StrictAvailability: true,
		StrictFinality:     true,
	}, queries[0])
}

func TestQueryClassifiesRefusals(t *testing.T) {
	req := testRequest(t)
	cases := map[string]oracle.ErrorKind{
		oracle.ReasonNotFound:         oracle.NotFound,
		oracle.ReasonNotYetAvailable:  oracle.NotYetAvailable,
		oracle.ReasonMalformed:        oracle.Malformed,
		oracle.ReasonDecryptionFailed: oracle.TransportFailure,
	}
	for reason, kind := range cases {
		channel := oracletest.NewScripted(oracletest.Refusal(reason))
		_, err := newClient(channel, time.Second).Query(context.Background(), req)
		requireKind(t, err, kind)
	}
}

func TestQueryRejectsBadOutput(t *testing.T) {
	req := testRequest(t)
	for _, step := range []oracletest.Step{
		oracletest.Judgment(nil),
		oracletest.Judgment([]byte("abc")),
		{},
	} {
		_, err := newClient(oracletest.NewScripted(step), time.Second).Query(context.Background(), req)
		requireKind(t, err, oracle.Malformed)
	}
}

func TestQueryTransportFailure(t *testing.T) {
	cause := errors.New("connection refused")
	channel := oracletest.NewScripted(oracletest.Step{Err: cause})
	_, err := newClient(channel, time.Second).Query(context.Background(), testRequest(t))
	requireKind(t, err, oracle.TransportFailure)
	require.ErrorIs(t, err, cause)
	var oracleErr *oracle.Error
	require.True(t, errors.As(err, &oracleErr))
	require.True(t, oracleErr.Retryable())
}

func TestQueryTimeout(t *testing.T) {
	channel := oracletest.NewScripted(oracletest.Step{Block: true})
	start := time.Now()
	_, err := newClient(channel, 50*time.Millisecond).Query(context.Background(), testRequest(t))
	requireKind(t, err, oracle.Timeout)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestQueryCancellation(t *testing.T) {
	channel := oracletest.NewScripted(oracletest.Step{Block: true})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := newClient(channel, time.Minute).Query(ctx, testRequest(t))
	require.ErrorIs(t, err, context.Canceled)
	_, isOracleErr := oracle.KindOf(err)
	require.False(t, isOracleErr)
}

func TestErrorKindRetryable(t *testing.T) {
	require.True(t, oracle.NotFound.Retryable())
	require.False(t, oracle.Malformed.Retryable())
	require.True(t, oracle.NotYetAvailable.Retryable())
	require.True(t, oracle.TransportFailure.Retryable())
	require.True(t, oracle.Timeout.Retryable())
	require.Equal(t, "NotYetAvailable", oracle.NotYetAvailable.String())
}
