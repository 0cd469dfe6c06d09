package rpcclient

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/offchainlabs/daattest/util/testhelpers"
)

func TestLogArgs(t *testing.T) {
	t.Parallel()

	str := logArgs(0, 1, 2, 3, "hello, world")
	if str != `[1, 2, 3, "hello, world"]` {
		Fail(t, "unexpected logs limit 0 got:", str)
	}

	str = logArgs(100, 1, 2, 3, "hello, world")
	if str != `[1, 2, 3, "hello, world"]` {
		Fail(t, "unexpected logs limit 100 got:", str)
	}

	str = logArgs(6, 1, 2, 3, "hello, world")
	if str != `[1, 2, 3, "h..d"]` {
		Fail(t, "unexpected logs limit 6 got:", str)
	}
}

func createTestServer(t *testing.T, stuckOrFailed int64) *rpc.Server {
	server := rpc.NewServer()
	Require(t, server.RegisterName("test", &testAPI{stuckOrFailed, stuckOrFailed}))
	t.Cleanup(server.Stop)
	return server
}

type testAPI struct {
	stuckCalls  int64
	failedCalls int64
}

func (t *testAPI) StuckAtFirst(ctx context.Context) error {
	stuckRemaining := atomic.AddInt64(&t.stuckCalls, -1) + 1
	if stuckRemaining <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
	}
	return errors.New("error")
}

func (t *testAPI) FailAtFirst(ctx context.Context) error {
	failedRemaining := atomic.AddInt64(&t.failedCalls, -1) + 1
	if failedRemaining <= 0 {
		return nil
	}
	return errors.New("error")
}

func (t *testAPI) Echo(data hexutil.Bytes) hexutil.Bytes {
	return data
}

func TestRpcClientRetry(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute*2)
	defer cancel()

	configFetcher := func() *ClientConfig {
		return &ClientConfig{
			URL:     "self",
			Timeout: time.Millisecond * 200,
			Retries: 2,
		}
	}

	clientGood := NewRpcClient(configFetcher, createTestServer(t, 0))
	Require(t, clientGood.Start(ctx))
	defer clientGood.Close()
	err := clientGood.CallContext(ctx, nil, "test_failAtFirst")
	Require(t, err)
	err = clientGood.CallContext(ctx, nil, "test_stuckAtFirst")
	Require(t, err)

	clientBad := NewRpcClient(configFetcher, createTestServer(t, 1000))
	Require(t, clientBad.Start(ctx))
	defer clientBad.Close()
	err = clientBad.CallContext(ctx, nil, "test_failAtFirst")
	if err == nil {
		Fail(t, "no error for failAtFirst")
	}
	err = clientBad.CallContext(ctx, nil, "test_stuckAtFirst")
	if err == nil {
		Fail(t, "no error for stuckAtFirst")
	}

	clientRetry := NewRpcClient(configFetcher, createTestServer(t, 1))
	Require(t, clientRetry.Start(ctx))
	defer clientRetry.Close()
	err = clientRetry.CallContext(ctx, nil, "test_failAtFirst")
	if err == nil {
		Fail(t, "no error for failAtFirst")
	}
	err = clientRetry.CallContext(ctx, nil, "test_stuckAtFirst")
	Require(t, err)
}

func TestRpcClientRetryErrors(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := NewRpcClient(func() *ClientConfig {
		return &ClientConfig{URL: "self", Retries: 1, RetryErrors: "^error$"}
	}, createTestServer(t, 1))
	Require(t, client.Start(ctx))
	defer client.Close()
	Require(t, client.CallContext(ctx, nil, "test_failAtFirst"))
}

func TestRpcClientJWT(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	server := createTestServer(t, 0)
	secret := testhelpers.RandomHash()
	secretPath := filepath.Join(t.TempDir(), "jwt.hex")
	Require(t, os.WriteFile(secretPath, []byte(secret.Hex()), 0600))

	httpServer, url := startHTTP(t, node.NewHTTPHandlerStack(server, nil, []string{"*"}, secret.Bytes()))
	defer httpServer.Close()

	authed := NewRpcClient(func() *ClientConfig {
		return &ClientConfig{URL: url, JWTSecret: secretPath, Timeout: time.Second}
	}, nil)
	Require(t, authed.Start(ctx))
	defer authed.Close()
	var echoed hexutil.Bytes
	Require(t, authed.CallContext(ctx, &echoed, "test_echo", hexutil.Bytes{1, 2, 3}))
	if len(echoed) != 3 {
		Fail(t, "unexpected echo", echoed)
	}

	anonymous := NewRpcClient(func() *ClientConfig {
		return &ClientConfig{URL: url, Timeout: time.Second}
	}, nil)
	Require(t, anonymous.Start(ctx))
	defer anonymous.Close()
	if err := anonymous.CallContext(ctx, &echoed, "test_echo", hexutil.Bytes{1}); err == nil {
		Fail(t, "unauthenticated call succeeded")
	}
}

func TestRpcClientNoURL(t *testing.T) {
	client := NewRpcClient(func() *ClientConfig { return &ClientConfig{} }, nil)
	if err := client.Start(context.Background()); err == nil {
		Fail(t, "started without url")
	}
	if err := client.CallContext(context.Background(), nil, "test_echo"); err == nil {
		Fail(t, "call succeeded without connection")
	}
}

func Require(t *testing.T, err error, printables ...interface{}) {
	t.Helper()
	testhelpers.RequireImpl(t, err, printables...)
}

func Fail(t *testing.T, printables ...interface{}) {
	t.Helper()
	testhelpers.FailImpl(t, printables...)
}
