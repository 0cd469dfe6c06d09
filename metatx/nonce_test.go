// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package metatx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/daattest/util/redisutil"
	"github.com/offchainlabs/daattest/util/testhelpers"
)

func testAllocator(t *testing.T, allocator NonceAllocator) {
	ctx := context.Background()
	alice := testhelpers.RandomAddress()
	bob := testhelpers.RandomAddress()

	n, err := allocator.Reserve(ctx, alice, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)
	n, err = allocator.Reserve(ctx, alice, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	// the chain moved ahead of us
	n, err = allocator.Reserve(ctx, alice, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(10), n)
	n, err = allocator.Reserve(ctx, alice, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(11), n)

	n, err = allocator.Reserve(ctx, bob, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)

	const workers = 8
	const perWorker = 16
	var wg sync.WaitGroup
	results := make(chan uint64, workers*perWorker)
	carol := testhelpers.RandomAddress()
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				n, err := allocator.Reserve(ctx, carol, 0)
				if err != nil {
					t.Error(err)
					return
				}
				results <- n
			}
		}()
	}
	wg.Wait()
	close(results)
	seen := make(map[uint64]struct{})
	for n := range results {
		_, dup := seen[n]
		require.False(t, dup, "nonce %d reserved twice", n)
		seen[n] = struct{}{}
	}
	require.Len(t, seen, workers*perWorker)

	dave := testhelpers.RandomAddress()
	n, err = allocator.Reserve(ctx, dave, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(4), n)
	require.NoError(t, allocator.Release(ctx, dave, 4))
	n, err = allocator.Reserve(ctx, dave, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(4), n, "released nonce is handed out again")

	// only the latest reservation rewinds
	n, err = allocator.Reserve(ctx, dave, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)
	require.NoError(t, allocator.Release(ctx, dave, 4))
	n, err = allocator.Reserve(ctx, dave, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(6), n)

	// releasing nonce 0 forgets the signer
	erin := testhelpers.RandomAddress()
	n, err = allocator.Reserve(ctx, erin, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)
	require.NoError(t, allocator.Release(ctx, erin, 0))
	n, err = allocator.Reserve(ctx, erin, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)

	// unknown signers release as a no-op
	require.NoError(t, allocator.Release(ctx, testhelpers.RandomAddress(), 3))

	// nonces past 2^53 keep full precision
	frank := testhelpers.RandomAddress()
	const high = uint64(1)<<60 + 1
	n, err = allocator.Reserve(ctx, frank, high)
	require.NoError(t, err)
	require.Equal(t, high, n)
	n, err = allocator.Reserve(ctx, frank, 0)
	require.NoError(t, err)
	require.Equal(t, high+1, n)
}

func TestLocalNonceAllocator(t *testing.T) {
	testAllocator(t, NewLocalNonceAllocator())
}

func TestRedisNonceAllocator(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := redisutil.CreateTestRedisClient(ctx, t)
	testAllocator(t, NewRedisNonceAllocator(client, "", DefaultNonceReservationTTL))

	// a second allocator on the same server continues where the first left off
	other := NewRedisNonceAllocator(client, DefaultNonceKeyPrefix, DefaultNonceReservationTTL)
	signer := common.HexToAddress("0x01")
	first, err := NewRedisNonceAllocator(client, "", DefaultNonceReservationTTL).Reserve(ctx, signer, 0)
	require.NoError(t, err)
	second, err := other.Reserve(ctx, signer, 0)
	require.NoError(t, err)
	require.Equal(t, first+1, second)

	// a release by one process is seen by the other
	require.NoError(t, other.Release(ctx, signer, second))
	third, err := NewRedisNonceAllocator(client, "", DefaultNonceReservationTTL).Reserve(ctx, signer, 0)
	require.NoError(t, err)
	require.Equal(t, second, third)
}

func TestRedisNonceReservationExpires(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	client, err := redisutil.RedisClientFromURL("redis://" + server.Addr())
	require.NoError(t, err)
	ctx := context.Background()
	allocator := NewRedisNonceAllocator(client, "", time.Minute)
	signer := testhelpers.RandomAddress()

	n, err := allocator.Reserve(ctx, signer, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(7), n)
	value, err := server.Get(allocator.key(signer))
	require.NoError(t, err)
	require.Equal(t, "7", value)

	server.FastForward(2 * time.Minute)
	n, err = allocator.Reserve(ctx, signer, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(7), n, "abandoned reservation expired")
}
