// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package oracle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/rpc"
	flag "github.com/spf13/pflag"

	"github.com/offchainlabs/daattest/attestation"
	"github.com/offchainlabs/daattest/cmd/genericconf"
	"github.com/offchainlabs/daattest/pubid"
	"github.com/offchainlabs/daattest/util/pretty"
	"github.com/offchainlabs/daattest/util/signature"
)

var (
	rpcCheckRequestCounter  = metrics.NewRegisteredCounter("daattest/oracle/rpc/check/requests", nil)
	rpcCheckJudgmentCounter = metrics.NewRegisteredCounter("daattest/oracle/rpc/check/judgments", nil)
	rpcCheckRefusalCounter  = metrics.NewRegisteredCounter("daattest/oracle/rpc/check/refusals", nil)
	rpcCheckFailureCounter  = metrics.NewRegisteredCounter("daattest/oracle/rpc/check/failure", nil)
	rpcCheckDurationTimer   = metrics.NewRegisteredTimer("daattest/oracle/rpc/check/duration", nil)
)

type ServerConfig struct {
	Addr           string                             `koanf:"addr"`
	Port           uint64                             `koanf:"port"`
	JWTSecret      string                             `koanf:"jwtsecret"`
	CORSDomain     []string                           `koanf:"cors-domain"`
	VHosts         []string                           `koanf:"vhosts"`
	BodyLimit      int                                `koanf:"body-limit"`
	ServerTimeouts genericconf.HTTPServerTimeoutConfig `koanf:"server-timeouts"`
	CacheSize      int                                `koanf:"cache-size"`
}

var DefaultServerConfig = ServerConfig{
	Addr:           "localhost",
	Port:           9877,
	JWTSecret:      "",
	CORSDomain:     []string{},
	VHosts:         []string{"localhost"},
	BodyLimit:      0,
	ServerTimeouts: genericconf.HTTPServerTimeoutConfigDefault,
	CacheSize:      1024,
}

func ServerConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".addr", DefaultServerConfig.Addr, "JSON-RPC server listening interface")
	f.Uint64(prefix+".port", DefaultServerConfig.Port, "JSON-RPC server listening port")
	f.String(prefix+".jwtsecret", DefaultServerConfig.JWTSecret, "path to file with jwtsecret required from clients (empty = no authentication)")
	f.StringSlice(prefix+".cors-domain", DefaultServerConfig.CORSDomain, "comma separated list of domains from which to accept cross origin requests")
	f.StringSlice(prefix+".vhosts", DefaultServerConfig.VHosts, "comma separated list of virtual hostnames from which to accept requests")
	f.Int(prefix+".body-limit", DefaultServerConfig.BodyLimit, "maximum size of a request body (0 = rpc package default)")
	genericconf.HTTPServerTimeoutConfigAddOptions(prefix+".server-timeouts", f)
	f.Int(prefix+".cache-size", DefaultServerConfig.CacheSize, "number of final publications to keep in memory (0 = disabled)")
}

// API answers checkPublication queries from a PublicationSource. It stands
// in for the enclave oracle network.
type API struct {
	source PublicationSource
}

func NewAPI(source PublicationSource) *API {
	return &API{source: source}
}

const maxLoggedPublication = 80

// CheckPublication looks up the publication named by its display string.
func (a *API) CheckPublication(ctx context.Context, publication hexutil.Bytes, strictAvailability bool, strictFinality bool) (*CheckResult, error) {
	rpcCheckRequestCounter.Inc(1)
	start := time.Now()
	defer rpcCheckDurationTimer.UpdateSince(start)

	result, err := a.checkPublication(ctx, string(publication), strictAvailability, strictFinality)
	shown := pretty.FirstFewChars(string(publication), maxLoggedPublication)
	switch {
	case err != nil:
		rpcCheckFailureCounter.Inc(1)
		log.Warn("oracle check failed", "publication", shown, "err", err)
	case result.Reason != "":
		rpcCheckRefusalCounter.Inc(1)
		log.Debug("oracle refused judgment", "publication", shown, "reason", result.Reason)
	default:
		rpcCheckJudgmentCounter.Inc(1)
		log.Trace("oracle judgment", "publication", shown, "judgment", pretty.FirstFewBytes(result.Output))
	}
	return result, err
}

func (a *API) checkPublication(ctx context.Context, display string, strictAvailability bool, strictFinality bool) (*CheckResult, error) {
	profileID, id, err := pubid.ParseDisplayString(display)
	if err != nil {
		return &CheckResult{Reason: ReasonMalformed}, nil
	}
	if !id.IsOffchain() {
		return &CheckResult{Reason: ReasonMalformed}, nil
	}
	p, err := a.source.GetPublication(ctx, profileID.ToBig(), id)
	if errors.Is(err, ErrPublicationNotFound) {
		return &CheckResult{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return nil, err
	}
	if (strictAvailability && !p.Available) || (strictFinality && !p.Final) {
		return &CheckResult{Reason: ReasonNotYetAvailable}, nil
	}
	judgment, err := attestation.EncodeJudgment(p.Judgment())
	if err != nil {
		return nil, fmt.Errorf("encoding judgment for %v: %w", display, err)
	}
	return &CheckResult{Output: judgment}, nil
}

// NewRPCServer registers api under the oracle namespace.
func NewRPCServer(api *API, bodyLimit int) (*rpc.Server, error) {
	rpcServer := rpc.NewServer()
	if bodyLimit > 0 {
		rpcServer.SetHTTPBodyLimit(bodyLimit)
	}
	if err := rpcServer.RegisterName("oracle", api); err != nil {
		return nil, err
	}
	return rpcServer, nil
}

func StartServer(ctx context.Context, config *ServerConfig, source PublicationSource) (*http.Server, net.Addr, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.Addr, config.Port))
	if err != nil {
		return nil, nil, err
	}
	srv, err := StartServerOnListener(ctx, listener, config, source)
	if err != nil {
		return nil, nil, err
	}
	return srv, listener.Addr(), nil
}

func StartServerOnListener(ctx context.Context, listener net.Listener, config *ServerConfig, source PublicationSource) (*http.Server, error) {
	if config.CacheSize > 0 {
		cached, err := NewCachedSource(source, config.CacheSize)
		if err != nil {
			return nil, err
		}
		source = cached
	}
	rpcServer, err := NewRPCServer(NewAPI(source), config.BodyLimit)
	if err != nil {
		return nil, err
	}
	var jwtSecret []byte
	if config.JWTSecret != "" {
		secret, err := signature.LoadSigningKey(config.JWTSecret)
		if err != nil {
			return nil, err
		}
		jwtSecret = secret.Bytes()
	}
	srv := &http.Server{
		Handler:           node.NewHTTPHandlerStack(rpcServer, config.CORSDomain, config.VHosts, jwtSecret),
		ReadTimeout:       config.ServerTimeouts.ReadTimeout,
		ReadHeaderTimeout: config.ServerTimeouts.ReadHeaderTimeout,
		WriteTimeout:      config.ServerTimeouts.WriteTimeout,
		IdleTimeout:       config.ServerTimeouts.IdleTimeout,
	}
	go func() {
		err := srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("oracle server stopped", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
		rpcServer.Stop()
	}()
	log.Info("oracle server started", "addr", listener.Addr(), "authenticated", jwtSecret != nil)
	return srv, nil
}
