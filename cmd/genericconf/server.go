// Copyright 2021-2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package genericconf

import (
	"net/http"
	// Blank import pprof registers its HTTP handlers.
	_ "net/http/pprof" // #nosec G108
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"
	flag "github.com/spf13/pflag"
)

type MetricsServerConfig struct {
	Addr           string        `koanf:"addr"`
	Port           int           `koanf:"port"`
	UpdateInterval time.Duration `koanf:"update-interval"`
}

var MetricsServerConfigDefault = MetricsServerConfig{
	Addr:           "127.0.0.1",
	Port:           6070,
	UpdateInterval: 3 * time.Second,
}

func MetricsServerAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".addr", MetricsServerConfigDefault.Addr, "metrics server address")
	f.Int(prefix+".port", MetricsServerConfigDefault.Port, "metrics server port")
	f.Duration(prefix+".update-interval", MetricsServerConfigDefault.UpdateInterval, "metrics server update interval")
}

type PProf struct {
	Addr string `koanf:"addr"`
	Port int    `koanf:"port"`
}

var PProfDefault = PProf{
	Addr: "127.0.0.1",
	Port: 6071,
}

func PProfAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".addr", PProfDefault.Addr, "pprof server address")
	f.Int(prefix+".port", PProfDefault.Port, "pprof server port")
}

func StartPprof(address string) {
	exp.Exp(metrics.DefaultRegistry)
	log.Info("Starting metrics server with pprof", "addr", "http://"+address+"/debug/metrics")
	log.Info("Pprof endpoint", "addr", "http://"+address+"/debug/pprof")
	go func() {
		// #nosec G114
		if err := http.ListenAndServe(address, http.DefaultServeMux); err != nil {
			log.Error("Failure in running pprof server", "err", err)
		}
	}()
}
