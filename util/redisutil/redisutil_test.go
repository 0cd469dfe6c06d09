// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package redisutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSentinelURL(t *testing.T) {
	options, err := parseSentinelURL("redis+sentinel://user:secret@a:26379,b/mymaster/2?dial_timeout=3&read_timeout=250ms&max_retries=4")
	require.NoError(t, err)
	require.Equal(t, []string{"a:26379", "b:6379"}, options.SentinelAddrs)
	require.Equal(t, "user", options.SentinelUsername)
	require.Equal(t, "secret", options.SentinelPassword)
	require.Equal(t, "mymaster", options.MasterName)
	require.Equal(t, 2, options.DB)
	require.Equal(t, 3*time.Second, options.DialTimeout)
	require.Equal(t, 250*time.Millisecond, options.ReadTimeout)
	require.Equal(t, 4, options.MaxRetries)

	for _, bad := range []string{
		"redis+sentinel://a",
		"redis+sentinel://a/m/x",
		"redis+sentinel://a/m/1/2",
		"redis+sentinel://a/m?pool_fifo=true",
		"redis+sentinel://a/m?dial_timeout=soon",
	} {
		_, err := parseSentinelURL(bad)
		require.Error(t, err, bad)
	}
}

func TestRedisClientFromURL(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := RedisClientFromURL("")
	require.NoError(t, err)
	require.Nil(t, client)

	client, err = RedisClientFromURL(CreateTestRedis(ctx, t))
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	v, err := client.Get(ctx, "k").Result()
	require.NoError(t, err)
	require.Equal(t, "v", v)
}
