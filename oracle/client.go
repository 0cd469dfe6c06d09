// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	flag "github.com/spf13/pflag"

	"github.com/offchainlabs/daattest/attestation"
	"github.com/offchainlabs/daattest/util/rpcclient"
)

var (
	queryRequestCounter   = metrics.NewRegisteredCounter("daattest/oracle/query/requests", nil)
	querySuccessCounter   = metrics.NewRegisteredCounter("daattest/oracle/query/success", nil)
	queryFailureCounter   = metrics.NewRegisteredCounter("daattest/oracle/query/failure", nil)
	queryDurationTimer    = metrics.NewRegisteredTimer("daattest/oracle/query/duration", nil)
	queryNotFoundCounter  = metrics.NewRegisteredCounter("daattest/oracle/query/notfound", nil)
	queryNotReadyCounter  = metrics.NewRegisteredCounter("daattest/oracle/query/notready", nil)
	queryMalformedCounter = metrics.NewRegisteredCounter("daattest/oracle/query/malformed", nil)
	queryTransportCounter = metrics.NewRegisteredCounter("daattest/oracle/query/transport", nil)
	queryTimeoutCounter   = metrics.NewRegisteredCounter("daattest/oracle/query/timeout", nil)
)

type ClientConfig struct {
	Timeout time.Duration          `koanf:"timeout"`
	Strict  Strictness             `koanf:"strict"`
	RPC     rpcclient.ClientConfig `koanf:"rpc"`
}

var DefaultClientConfig = ClientConfig{
	Timeout: 30 * time.Second,
	Strict:  StrictnessAll,
	RPC:     rpcclient.DefaultClientConfig,
}

func ClientConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Duration(prefix+".timeout", DefaultClientConfig.Timeout, "overall timeout of one oracle query (0 = no timeout)")
	f.Bool(prefix+".strict.availability", DefaultClientConfig.Strict.Availability, "require the publication to be available on the DA layer")
	f.Bool(prefix+".strict.finality", DefaultClientConfig.Strict.Finality, "require the publication to be final on the DA layer")
	rpcclient.RPCClientAddOptions(prefix+".rpc", f, &DefaultClientConfig.RPC)
}

// Client turns requests into judgments. It never signs and holds no state
// between queries.
type Client struct {
	channel Channel
	config  func() *ClientConfig
}

func NewClient(channel Channel, config func() *ClientConfig) *Client {
	return &Client{channel: channel, config: config}
}

type channelResponse struct {
	result *CheckResult
	err    error
}

// Query asks the oracle for a judgment on r and returns its canonical
// encoding. Failures are *Error values except for cancellation of ctx by the
// caller, which is returned as ctx.Err().
func (c *Client) Query(ctx context.Context, r *attestation.Request) ([]byte, error) {
	queryRequestCounter.Inc(1)
	start := time.Now()
	judgment, err := c.query(ctx, r)
	queryDurationTimer.UpdateSince(start)
	if err != nil {
		queryFailureCounter.Inc(1)
		countKind(err)
		log.Debug("oracle query failed", "request", r, "err", err, "elapsed", time.Since(start))
		return nil, err
	}
	querySuccessCounter.Inc(1)
	log.Debug("oracle judgment received", "request", r, "elapsed", time.Since(start))
	return judgment, nil
}

func (c *Client) query(parent context.Context, r *attestation.Request) ([]byte, error) {
	config := c.config()
	ctx, cancel := parent, context.CancelFunc(func() {})
	if config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, config.Timeout)
	}
	defer cancel()

	query := QueryFor(r, config.Strict)
	responses := make(chan channelResponse, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				responses <- channelResponse{err: fmt.Errorf("oracle channel panicked: %v", p)}
			}
		}()
		result, err := c.channel.CheckPublication(ctx, query)
		responses <- channelResponse{result, err}
	}()

	var response channelResponse
	select {
	case response = <-responses:
	case <-ctx.Done():
		if parent.Err() != nil {
			return nil, parent.Err()
		}
		return nil, &Error{Kind: Timeout, Err: ctx.Err()}
	}
	if response.err != nil {
		if parent.Err() != nil {
			return nil, parent.Err()
		}
		if errors.Is(response.err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, &Error{Kind: Timeout, Err: response.err}
		}
		return nil, &Error{Kind: TransportFailure, Err: response.err}
	}
	return classify(response.result)
}

func classify(result *CheckResult) ([]byte, error) {
	if result == nil {
		return nil, &Error{Kind: Malformed, Reason: "empty response"}
	}
	switch result.Reason {
	case "":
	case ReasonNotFound:
		return nil, &Error{Kind: NotFound, Reason: result.Reason}
	case ReasonNotYetAvailable:
		return nil, &Error{Kind: NotYetAvailable, Reason: result.Reason}
	case ReasonMalformed:
		return nil, &Error{Kind: Malformed, Reason: result.Reason}
	default:
		return nil, &Error{Kind: TransportFailure, Reason: result.Reason}
	}
	if len(result.Output) == 0 {
		return nil, &Error{Kind: Malformed, Reason: "empty judgment"}
	}
	if _, err := attestation.DecodeJudgment(result.Output); err != nil {
		return nil, &Error{Kind: Malformed, Err: err}
	}
	return []byte(result.Output), nil
}

func countKind(err error) {
	kind, ok := KindOf(err)
	if !ok {
		return
	}
	switch kind {
	case NotFound:
		queryNotFoundCounter.Inc(1)
	case NotYetAvailable:
		queryNotReadyCounter.Inc(1)
	case Malformed:
		queryMalformedCounter.Inc(1)
	case TransportFailure:
		queryTransportCounter.Inc(1)
	case Timeout:
		queryTimeoutCounter.Inc(1)
	}
}
