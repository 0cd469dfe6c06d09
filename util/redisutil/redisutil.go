// Copyright 2021-2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package redisutil

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClientFromURL creates a client for a redis:// or redis+sentinel://
// URL. An empty URL yields a nil client.
func RedisClientFromURL(redisUrl string) (redis.UniversalClient, error) {
	if redisUrl == "" {
		return nil, nil
	}
	if strings.HasPrefix(redisUrl, "redis+sentinel://") {
		options, err := parseSentinelURL(redisUrl)
		if err != nil {
			return nil, err
		}
		return redis.NewFailoverClient(options), nil
	}
	options, err := redis.ParseURL(redisUrl)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(options), nil
}

// parseSentinelURL accepts
//
//	redis+sentinel://[user:password@]host1[:port1],host2[:port2]/master[/db][?dial_timeout=3s&read_timeout=6s&write_timeout=6s&max_retries=2&pool_size=10]
func parseSentinelURL(redisUrl string) (*redis.FailoverOptions, error) {
	u, err := url.Parse(redisUrl)
	if err != nil {
		return nil, err
	}
	options := &redis.FailoverOptions{}
	if u.User != nil {
		options.SentinelUsername = u.User.Username()
		options.SentinelPassword, _ = u.User.Password()
	}
	for _, hostPort := range strings.Split(u.Host, ",") {
		host, port, err := net.SplitHostPort(hostPort)
		if err != nil {
			host, port = hostPort, ""
		}
		if host == "" {
			host = "localhost"
		}
		if port == "" {
			port = "6379"
		}
		options.SentinelAddrs = append(options.SentinelAddrs, net.JoinHostPort(host, port))
	}

	path := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	switch len(path) {
	case 0:
		return nil, fmt.Errorf("redis: master name is required")
	case 2:
		if options.DB, err = strconv.Atoi(path[1]); err != nil {
			return nil, fmt.Errorf("redis: invalid database number %q", path[1])
		}
		fallthrough
	case 1:
		options.MasterName = path[0]
	default:
		return nil, fmt.Errorf("redis: invalid URL path %s", u.Path)
	}

	query := u.Query()
	durations := map[string]*time.Duration{
		"dial_timeout":  &options.DialTimeout,
		"read_timeout":  &options.ReadTimeout,
		"write_timeout": &options.WriteTimeout,
	}
	ints := map[string]*int{
		"max_retries": &options.MaxRetries,
		"pool_size":   &options.PoolSize,
		"db":          &options.DB,
	}
	for name, values := range query {
		value := values[len(values)-1]
		if target, ok := durations[name]; ok {
			if *target, err = parseDuration(value); err != nil {
				return nil, fmt.Errorf("redis: invalid %s: %w", name, err)
			}
		} else if target, ok := ints[name]; ok {
			if *target, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("redis: invalid %s: %w", name, err)
			}
		} else {
			return nil, fmt.Errorf("redis: unexpected option: %s", name)
		}
	}
	return options, nil
}

// parseDuration reads plain numbers as seconds.
func parseDuration(s string) (time.Duration, error) {
	if i, err := strconv.Atoi(s); err == nil {
		if i <= 0 {
			return -1, nil
		}
		return time.Duration(i) * time.Second, nil
	}
	return time.ParseDuration(s)
}
