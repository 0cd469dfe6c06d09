// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package metatx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"
)

// NonceAllocator serializes nonce selection per signer. Reserve returns
// max(floor, last reserved + 1) and never hands out the same nonce twice.
// Release hands back a reservation whose attestation will not reach the
// ledger, so the next Reserve does not leave a gap.
type NonceAllocator interface {
	Reserve(ctx context.Context, signer common.Address, floor uint64) (uint64, error)
	Release(ctx context.Context, signer common.Address, nonce uint64) error
}

type LocalNonceAllocator struct {
	mutex sync.Mutex
	last  map[common.Address]uint64
}

func NewLocalNonceAllocator() *LocalNonceAllocator {
	return &LocalNonceAllocator{last: make(map[common.Address]uint64)}
}

func (a *LocalNonceAllocator) Reserve(_ context.Context, signer common.Address, floor uint64) (uint64, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	next := floor
	if last, ok := a.last[signer]; ok && last+1 > next {
		next = last + 1
	}
	a.last[signer] = next
	return next, nil
}

// Release only rewinds when nonce is still the latest reservation. A nonce
// reserved before a later one stays a gap until the ledger moves past it.
func (a *LocalNonceAllocator) Release(_ context.Context, signer common.Address, nonce uint64) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	last, ok := a.last[signer]
	if !ok || last != nonce {
		return nil
	}
	if nonce == 0 {
		delete(a.last, signer)
	} else {
		a.last[signer] = nonce - 1
	}
	return nil
}

const DefaultNonceKeyPrefix = "daattest.nonce."

// DefaultNonceReservationTTL bounds how long a reservation outlives a
// process that died before releasing it.
const DefaultNonceReservationTTL = time.Hour

// RedisNonceAllocator shares reservations between processes signing with the
// same key. Values are decimal strings updated under WATCH.
type RedisNonceAllocator struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisNonceAllocator(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisNonceAllocator {
	if prefix == "" {
		prefix = DefaultNonceKeyPrefix
	}
	return &RedisNonceAllocator{client: client, prefix: prefix, ttl: ttl}
}

func (a *RedisNonceAllocator) key(signer common.Address) string {
	return a.prefix + strings.ToLower(signer.Hex())
}

func readNonce(ctx context.Context, tx *redis.Tx, key string) (uint64, bool, error) {
	val, err := tx.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt nonce %q at %s: %w", val, key, err)
	}
	return n, true, nil
}

// update runs fn against the stored nonce in an optimistic transaction and
// retries while other clients win the race on key.
func (a *RedisNonceAllocator) update(ctx context.Context, key string, fn func(tx *redis.Tx, last uint64, found bool) error) error {
	for {
		err := a.client.Watch(ctx, func(tx *redis.Tx) error {
			last, found, err := readNonce(ctx, tx, key)
			if err != nil {
				return err
			}
			return fn(tx, last, found)
		}, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Trace("nonce update raced, retrying", "key", key)
	}
}

func (a *RedisNonceAllocator) Reserve(ctx context.Context, signer common.Address, floor uint64) (uint64, error) {
	key := a.key(signer)
	var reserved uint64
	err := a.update(ctx, key, func(tx *redis.Tx, last uint64, found bool) error {
		next := floor
		if found && last+1 > next {
			next = last + 1
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, strconv.FormatUint(next, 10), a.ttl)
			return nil
		})
		reserved = next
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reserving nonce for %v: %w", signer, err)
	}
	return reserved, nil
}

func (a *RedisNonceAllocator) Release(ctx context.Context, signer common.Address, nonce uint64) error {
	key := a.key(signer)
	err := a.update(ctx, key, func(tx *redis.Tx, last uint64, found bool) error {
		if !found || last != nonce {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if nonce == 0 {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, strconv.FormatUint(nonce-1, 10), a.ttl)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("releasing nonce %d for %v: %w", nonce, signer, err)
	}
	return nil
}
