// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// daoracle is a reference attestation oracle. It answers checkPublication
// queries from a publication index kept in a JSON file or in redis.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/daattest/cmd/genericconf"
	"github.com/offchainlabs/daattest/cmd/util"
	"github.com/offchainlabs/daattest/cmd/util/confighelpers"
	"github.com/offchainlabs/daattest/oracle"
)

type Config struct {
	Server           oracle.ServerConfig      `koanf:"server"`
	PublicationsFile string                   `koanf:"publications-file"`
	Redis            oracle.RedisSourceConfig `koanf:"redis"`

	Conf        genericconf.ConfConfig        `koanf:"conf"`
	LogLevel    string                        `koanf:"log-level"`
	LogType     string                        `koanf:"log-type"`
	FileLogging genericconf.FileLoggingConfig `koanf:"file-logging"`

	Metrics       bool                            `koanf:"metrics"`
	MetricsServer genericconf.MetricsServerConfig `koanf:"metrics-server"`
	PProf         bool                            `koanf:"pprof"`
	PprofCfg      genericconf.PProf               `koanf:"pprof-cfg"`
}

var DefaultConfig = Config{
	Server:           oracle.DefaultServerConfig,
	PublicationsFile: "",
	Redis:            oracle.DefaultRedisSourceConfig,
	Conf:             genericconf.ConfConfigDefault,
	LogLevel:         "INFO",
	LogType:          "plaintext",
	FileLogging:      genericconf.DefaultFileLoggingConfig,
	Metrics:          false,
	MetricsServer:    genericconf.MetricsServerConfigDefault,
	PProf:            false,
	PprofCfg:         genericconf.PProfDefault,
}

func printSampleUsage(progname string) {
	fmt.Printf("\n")
	fmt.Printf("Sample usage:                  %s --publications-file publications.json --server.port 9877\n", progname)
}

func parseDAOracle(args []string) (*Config, error) {
	f := pflag.NewFlagSet("daoracle", pflag.ContinueOnError)
	oracle.ServerConfigAddOptions("server", f)
	f.String("publications-file", DefaultConfig.PublicationsFile, "JSON file with the publications to serve (seeds redis if redis.url is set)")
	oracle.RedisSourceConfigAddOptions("redis", f)

	f.Bool("metrics", DefaultConfig.Metrics, "enable metrics")
	genericconf.MetricsServerAddOptions("metrics-server", f)
	f.Bool("pprof", DefaultConfig.PProf, "enable pprof")
	genericconf.PProfAddOptions("pprof-cfg", f)

	f.String("log-level", DefaultConfig.LogLevel, "log level, valid values are CRIT, ERROR, WARN, INFO, DEBUG, TRACE")
	f.String("log-type", DefaultConfig.LogType, "log type (plaintext or json)")
	genericconf.FileLoggingConfigAddOptions("file-logging", f)
	genericconf.ConfConfigAddOptions("conf", f)

	k, err := confighelpers.BeginCommonParse(f, args)
	if err != nil {
		return nil, err
	}
	var config Config
	if err := confighelpers.EndCommonParse(k, &config); err != nil {
		return nil, err
	}
	if config.Conf.Dump {
		err = confighelpers.DumpConfig(k, map[string]interface{}{
			"redis.signing.signing-key":               "",
			"redis.signing.fallback-verification-key": "",
		})
		if err != nil {
			return nil, err
		}
		os.Exit(0)
	}
	return &config, nil
}

func readPublications(path string) ([]*oracle.Publication, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var publications []*oracle.Publication
	if err := json.Unmarshal(data, &publications); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return publications, nil
}

func openSource(ctx context.Context, config *Config) (oracle.PublicationSource, func(), error) {
	var seed []*oracle.Publication
	if config.PublicationsFile != "" {
		var err error
		if seed, err = readPublications(config.PublicationsFile); err != nil {
			return nil, nil, err
		}
	}
	if config.Redis.URL == "" {
		if seed == nil {
			return nil, nil, errors.New("one of --publications-file or --redis.url is required")
		}
		source := oracle.NewMemorySource()
		for _, p := range seed {
			if err := source.Put(p); err != nil {
				return nil, nil, err
			}
		}
		log.Info("serving publications from file", "file", config.PublicationsFile, "count", len(seed))
		return source, func() {}, nil
	}
	source, err := oracle.NewRedisSource(config.Redis)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range seed {
		if err := source.Put(ctx, p); err != nil {
			source.Close()
			return nil, nil, err
		}
	}
	log.Info("serving publications from redis", "source", source, "seeded", len(seed))
	return source, func() { source.Close() }, nil
}

func main() {
	if err := startup(); err != nil {
		log.Error("Error running daoracle", "err", err)
		os.Exit(1)
	}
}

func startup() error {
	config, err := parseDAOracle(os.Args[1:])
	if err != nil {
		confighelpers.PrintErrorAndExit(err, printSampleUsage)
	}
	if err := genericconf.InitLog(config.LogType, config.LogLevel, &config.FileLogging, genericconf.DefaultPathResolver("")); err != nil {
		confighelpers.PrintErrorAndExit(err, printSampleUsage)
	}

	err = util.StartMetricsAndPProf(&util.MetricsPProfOpts{
		Metrics:       config.Metrics,
		MetricsServer: config.MetricsServer,
		PProf:         config.PProf,
		PprofCfg:      config.PprofCfg,
	})
	if err != nil {
		return err
	}

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, closeSource, err := openSource(ctx, config)
	if err != nil {
		return err
	}
	defer closeSource()

	vcsRevision, vcsTime := confighelpers.GetVersion()
	server, addr, err := oracle.StartServer(ctx, &config.Server, source)
	if err != nil {
		return err
	}
	log.Info("Started oracle JSON-RPC server", "addr", addr, "revision", vcsRevision, "vcs.time", vcsTime)

	<-sigint
	return server.Shutdown(context.Background())
}
