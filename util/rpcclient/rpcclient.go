// Copyright 2021-2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/offchainlabs/daattest/util/signature"
)

type ClientConfig struct {
	URL            string        `koanf:"url"`
	JWTSecret      string        `koanf:"jwtsecret"`
	Timeout        time.Duration `koanf:"timeout"`
	Retries        uint          `koanf:"retries"`
	ConnectionWait time.Duration `koanf:"connection-wait"`
	ArgLogLimit    uint          `koanf:"arg-log-limit"`
	RetryErrors    string        `koanf:"retry-errors"`
}

type ClientConfigFetcher func() *ClientConfig

var TestClientConfig = ClientConfig{
	URL:       "self",
	JWTSecret: "",
}

var DefaultClientConfig = ClientConfig{
	URL:         "",
	JWTSecret:   "",
	Timeout:     10 * time.Second,
	Retries:     2,
	ArgLogLimit: 2048,
}

func RPCClientAddOptions(prefix string, f *flag.FlagSet, defaultConfig *ClientConfig) {
	f.String(prefix+".url", defaultConfig.URL, "url of the oracle gateway, use self for an in-process server")
	f.String(prefix+".jwtsecret", defaultConfig.JWTSecret, "path to file with jwtsecret for authentication - ignored if url is self")
	f.Duration(prefix+".connection-wait", defaultConfig.ConnectionWait, "how long to wait for initial connection")
	f.Duration(prefix+".timeout", defaultConfig.Timeout, "per-response timeout (0-disabled)")
	f.Uint(prefix+".arg-log-limit", defaultConfig.ArgLogLimit, "limit size of arguments in log entries")
	f.Uint(prefix+".retries", defaultConfig.Retries, "number of retries in case of failure(0 mean one attempt)")
	f.String(prefix+".retry-errors", defaultConfig.RetryErrors, "Errors matching this regular expression are automatically retried")
}

type RpcClient struct {
	config ClientConfigFetcher
	client *rpc.Client
	inproc *rpc.Server
	logId  uint64
}

// NewRpcClient creates an unconnected client. inproc, if set, is the server
// used when the configured url is "self".
func NewRpcClient(config ClientConfigFetcher, inproc *rpc.Server) *RpcClient {
	return &RpcClient{
		config: config,
		inproc: inproc,
	}
}

func (c *RpcClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func limitString(limit int, str string) string {
	if limit == 0 || len(str) <= limit {
		return str
	}
	prefix := str[:limit/2-1]
	postfix := str[len(str)-limit/2+1:]
	return fmt.Sprintf("%v..%v", prefix, postfix)
}

func logArgs(limit int, args ...interface{}) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		marshalled, err := json.Marshal(arg)
		if err != nil {
			parts = append(parts, "\"CANNOT MARSHALL:"+limitString(limit, err.Error())+"\"")
		} else {
			parts = append(parts, limitString(limit, string(marshalled)))
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// CallContext retries calls that time out or match the retry-errors
// expression, up to the configured number of retries.
func (c *RpcClient) CallContext(ctxIn context.Context, result interface{}, method string, args ...interface{}) error {
	if c.client == nil {
		return errors.New("not connected")
	}
	logId := atomic.AddUint64(&c.logId, 1)
	log.Trace("sending RPC request", "method", method, "logId", logId, "args", logArgs(int(c.config().ArgLogLimit), args...))
	var err error
	for i := 0; i < int(c.config().Retries)+1; i++ {
		if ctxIn.Err() != nil {
			return ctxIn.Err()
		}
		var ctx context.Context
		var cancelCtx context.CancelFunc
		timeout := c.config().Timeout
		if timeout > 0 {
			ctx, cancelCtx = context.WithTimeout(ctxIn, timeout)
		} else {
			ctx, cancelCtx = context.WithCancel(ctxIn)
		}
		err = c.client.CallContext(ctx, result, method, args...)
		cancelCtx()
		logger := log.Trace
		limit := int(c.config().ArgLogLimit)
		if err != nil {
			logger = log.Info
			limit = 0
		}
		logger("rpc response", "method", method, "logId", logId, "err", err, "result", limitString(limit, fmt.Sprintf("%+v", result)), "attempt", i, "args", logArgs(limit, args...))
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		retryErrors := c.config().RetryErrors
		if retryErrors != "" {
			match, regexErr := regexp.MatchString(retryErrors, err.Error())
			if regexErr != nil {
				log.Warn("rpcclient: bad value for retry-error. Not retrying.", "err", err, "value", retryErrors)
			}
			if match {
				continue
			}
		}
		return err
	}
	return err
}

func (c *RpcClient) Start(ctxIn context.Context) error {
	url := c.config().URL
	jwtPath := c.config().JWTSecret
	switch url {
	case "self":
		if c.inproc == nil {
			return errors.New("self not supported for this connection")
		}
		c.client = rpc.DialInProc(c.inproc)
		return nil
	case "":
		return errors.New("no url provided for this connection")
	}
	var jwt *common.Hash
	if jwtPath != "" {
		var err error
		jwt, err = signature.LoadSigningKey(jwtPath)
		if err != nil {
			return err
		}
	}
	connTimeout := time.After(c.config().ConnectionWait)
	for {
		var ctx context.Context
		var cancelCtx context.CancelFunc
		timeout := c.config().Timeout
		if timeout > 0 {
			ctx, cancelCtx = context.WithTimeout(ctxIn, timeout)
		} else {
			ctx, cancelCtx = context.WithCancel(ctxIn)
		}
		var err error
		var client *rpc.Client
		if jwt == nil {
			client, err = rpc.DialContext(ctx, url)
		} else {
			client, err = rpc.DialOptions(ctx, url, rpc.WithHTTPAuth(node.NewJWTAuth([32]byte(*jwt))))
		}
		cancelCtx()
		if err == nil {
			c.client = client
			return nil
		}
		if strings.Contains(err.Error(), "parse") ||
			strings.Contains(err.Error(), "malformed") {
			return fmt.Errorf("%w: url %s", err, url)
		}
		select {
		case <-connTimeout:
			return fmt.Errorf("timeout trying to connect lastError: %w", err)
		case <-ctxIn.Done():
			return ctxIn.Err()
		case <-time.After(time.Second):
		}
	}
}
