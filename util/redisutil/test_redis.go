// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package redisutil

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/offchainlabs/daattest/util/testhelpers"
)

// CreateTestRedis returns the url of a redis server for tests. TEST_REDIS
// selects an external server; otherwise a miniredis instance runs until ctx
// is done or the test ends.
func CreateTestRedis(ctx context.Context, t *testing.T) string {
	t.Helper()
	if url := os.Getenv("TEST_REDIS"); url != "" {
		return url
	}
	server := miniredis.NewMiniRedis()
	testhelpers.RequireImpl(t, server.Start())
	stop := context.AfterFunc(ctx, server.Close)
	t.Cleanup(func() {
		stop()
		server.Close()
	})
	return "redis://" + server.Addr() + "/0"
}

// CreateTestRedisClient connects to CreateTestRedis's server.
func CreateTestRedisClient(ctx context.Context, t *testing.T) redis.UniversalClient {
	t.Helper()
	client, err := RedisClientFromURL(CreateTestRedis(ctx, t))
	testhelpers.RequireImpl(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
