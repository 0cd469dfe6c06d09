// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"

	"github.com/offchainlabs/daattest/pubid"
	"github.com/offchainlabs/daattest/util/redisutil"
	"github.com/offchainlabs/daattest/util/signature"
)

type RedisSourceConfig struct {
	URL        string                     `koanf:"url"`
	KeyPrefix  string                     `koanf:"key-prefix"`
	Expiration time.Duration              `koanf:"expiration"`
	Signing    signature.SimpleHmacConfig `koanf:"signing"`
}

var DefaultRedisSourceConfig = RedisSourceConfig{
	URL:        "",
	KeyPrefix:  "daattest.publication.",
	Expiration: 0,
	Signing:    signature.EmptySimpleHmacConfig,
}

func RedisSourceConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".url", DefaultRedisSourceConfig.URL, "redis url of the publication index (redis:// or redis+sentinel://)")
	f.String(prefix+".key-prefix", DefaultRedisSourceConfig.KeyPrefix, "prefix of publication keys")
	f.Duration(prefix+".expiration", DefaultRedisSourceConfig.Expiration, "expiration of stored publications (0 = never)")
	signature.SimpleHmacConfigAddOptions(prefix+".signing", f)
}

// RedisSource reads publications written by an indexer into redis. Records
// are JSON tagged with a SimpleHmac so that only trusted writers are believed.
type RedisSource struct {
	config RedisSourceConfig
	client redis.UniversalClient
	hmac   *signature.SimpleHmac
}

func NewRedisSource(config RedisSourceConfig) (*RedisSource, error) {
	client, err := redisutil.RedisClientFromURL(config.URL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("redis url required for redis publication source")
	}
	return NewRedisSourceWithClient(config, client)
}

func NewRedisSourceWithClient(config RedisSourceConfig, client redis.UniversalClient) (*RedisSource, error) {
	hmac, err := signature.NewSimpleHmac(&config.Signing)
	if err != nil {
		return nil, err
	}
	return &RedisSource{config: config, client: client, hmac: hmac}, nil
}

func (s *RedisSource) key(profileID *big.Int, publicationID *big.Int) string {
	return fmt.Sprintf("%s%s", s.config.KeyPrefix, newPublicationKey(profileID, publicationID))
}

func (s *RedisSource) Put(ctx context.Context, p *Publication) error {
	if _, err := p.key(); err != nil {
		return err
	}
	value, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(p.ProfileID, p.PublicationID), s.hmac.Seal(value), s.config.Expiration).Err()
}

func (s *RedisSource) GetPublication(ctx context.Context, profileID *big.Int, id pubid.ID) (*Publication, error) {
	sealed, err := s.client.Get(ctx, s.key(profileID, id.Big())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPublicationNotFound
	}
	if err != nil {
		return nil, err
	}
	value, err := s.hmac.Open(sealed)
	if err != nil {
		return nil, errors.Wrapf(err, "publication %v/%v", profileID, id)
	}
	var p Publication
	if err := json.Unmarshal(value, &p); err != nil {
		return nil, errors.Wrapf(err, "decoding publication %v/%v", profileID, id)
	}
	if p.ProfileID == nil || p.PublicationID == nil {
		return nil, errors.Errorf("publication %v/%v has no identifiers", profileID, id)
	}
	return &p, nil
}

func (s *RedisSource) Close() error {
	return s.client.Close()
}

func (s *RedisSource) String() string {
	return fmt.Sprintf("RedisSource(%v)", s.config.KeyPrefix)
}
