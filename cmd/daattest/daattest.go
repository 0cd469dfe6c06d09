// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// daattest builds publication identifiers, asks the oracle for judgments,
// signs attestations and collects DA-layer posts.
package main

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/holiman/uint256"
	flag "github.com/spf13/pflag"

	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/daattest/cmd/genericconf"
	cmdutil "github.com/offchainlabs/daattest/cmd/util"
	"github.com/offchainlabs/daattest/cmd/util/confighelpers"
	"github.com/offchainlabs/daattest/pubid"
)

func main() {
	args := os.Args
	if len(args) < 2 {
		printUsage(args[0])
		os.Exit(1)
	}

	var err error
	switch strings.ToLower(args[1]) {
	case "id":
		err = startID(args[2:])
	case "query":
		err = startQuery(args[2:])
	case "attest":
		err = startAttest(args[2:])
	case "collect":
		err = startCollect(args[2:])
	default:
		printUsage(args[0])
		err = fmt.Errorf("unknown command '%s', valid commands are 'id', 'query', 'attest' and 'collect'", args[1])
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		if errors.Is(err, confighelpers.ErrVersion) {
			revision, vcsTime := confighelpers.GetVersion()
			fmt.Printf("Version: %v, time: %v\n", revision, vcsTime)
			os.Exit(0)
		}
		log.Error("daattest failed", "err", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(progname string) {
	fmt.Printf("Usage: %s [id|query|attest|collect] ...\n", progname)
	fmt.Printf("  %s id encode --profile 0x01 --batch 0x46a30696 --reference 0x01\n", progname)
	fmt.Printf("  %s id decode --id <packed publication id>\n", progname)
	fmt.Printf("  %s id parse --publication 0x01-0x01-DA-46a30696\n", progname)
	fmt.Printf("  %s query --publication ... --collect-module ... --content ... --oracle.rpc.url ...\n", progname)
	fmt.Printf("  %s attest ... --attestor-wallet.private-key ... --domain.receiver ...\n", progname)
	fmt.Printf("  %s collect ... --chain-url ... --hub ... --sender-wallet.pathname ...\n", progname)
}

type LoggingConfig struct {
	LogLevel string                 `koanf:"log-level"`
	LogType  string                 `koanf:"log-type"`
	Conf     genericconf.ConfConfig `koanf:"conf"`
}

func addLoggingOptions(f *flag.FlagSet) {
	f.String("log-level", "WARN", "log level, valid values are CRIT, ERROR, WARN, INFO, DEBUG, TRACE")
	f.String("log-type", "plaintext", "log type (plaintext or json)")
	genericconf.ConfConfigAddOptions("conf", f)
}

// parseConfig finishes a parse started by a subcommand. Secrets are blanked
// if the configuration is dumped.
func parseConfig(f *flag.FlagSet, args []string, config interface{}, secrets ...string) (*LoggingConfig, error) {
	k, err := confighelpers.BeginCommonParse(f, args)
	if err != nil {
		return nil, err
	}
	if err := confighelpers.EndCommonParse(k, config); err != nil {
		return nil, err
	}
	logging := &LoggingConfig{
		LogLevel: k.String("log-level"),
		LogType:  k.String("log-type"),
		Conf: genericconf.ConfConfig{
			Dump:      k.Bool("conf.dump"),
			EnvPrefix: k.String("conf.env-prefix"),
			File:      k.Strings("conf.file"),
			String:    k.String("conf.string"),
		},
	}
	if logging.Conf.Dump {
		overrides := make(map[string]interface{})
		for _, secret := range secrets {
			overrides[secret] = ""
		}
		if err := confighelpers.DumpConfig(k, overrides); err != nil {
			return nil, err
		}
		os.Exit(0)
	}
	if err := cmdutil.SetLogger(logging.LogLevel, logging.LogType); err != nil {
		return nil, err
	}
	return logging, nil
}

// daattest id ...

func startID(args []string) error {
	if len(args) == 0 {
		return errors.New("daattest id requires one of 'encode', 'decode' or 'parse'")
	}
	switch strings.ToLower(args[0]) {
	case "encode":
		return startIDEncode(args[1:])
	case "decode":
		return startIDDecode(args[1:])
	case "parse":
		return startIDParse(args[1:])
	}
	return fmt.Errorf("daattest id '%s' not supported, valid arguments are 'encode', 'decode' and 'parse'", args[0])
}

func parseUint(name, s string) (*uint256.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%s %q exceeds 256 bits", name, s)
	}
	return u, nil
}

func printID(profile *uint256.Int, id pubid.ID) {
	fmt.Printf("Publication: %s\n", pubid.ToDisplayString(profile, id))
	fmt.Printf("Profile:     %s\n", profile.Hex())
	fmt.Printf("Batch:       %s\n", id.Batch().Hex())
	fmt.Printf("Reference:   %s\n", id.Reference().Hex())
	fmt.Printf("Packed:      %s (%s)\n", id.Packed().Hex(), id.Packed().Dec())
}

type IDEncodeConfig struct {
	Profile   string `koanf:"profile"`
	Batch     string `koanf:"batch"`
	Reference string `koanf:"reference"`

	LoggingConfig `koanf:",squash"`
}

func startIDEncode(args []string) error {
	f := flag.NewFlagSet("id encode", flag.ContinueOnError)
	f.String("profile", "0x01", "profile id")
	f.String("batch", "", "DA-layer batch id")
	f.String("reference", "", "reference id within the batch")
	addLoggingOptions(f)
	var config IDEncodeConfig
	if _, err := parseConfig(f, args, &config); err != nil {
		return err
	}
	profile, err := parseUint("profile", config.Profile)
	if err != nil {
		return err
	}
	batch, err := parseUint("batch", config.Batch)
	if err != nil {
		return err
	}
	reference, err := parseUint("reference", config.Reference)
	if err != nil {
		return err
	}
	id, err := pubid.New(batch, reference)
	if err != nil {
		return err
	}
	printID(profile, id)
	return nil
}

type IDDecodeConfig struct {
	Profile string `koanf:"profile"`
	ID      string `koanf:"id"`

	LoggingConfig `koanf:",squash"`
}

func startIDDecode(args []string) error {
	f := flag.NewFlagSet("id decode", flag.ContinueOnError)
	f.String("profile", "0x01", "profile id")
	f.String("id", "", "packed publication id (decimal or 0x-prefixed hex)")
	addLoggingOptions(f)
	var config IDDecodeConfig
	if _, err := parseConfig(f, args, &config); err != nil {
		return err
	}
	profile, err := parseUint("profile", config.Profile)
	if err != nil {
		return err
	}
	packed, err := parseUint("id", config.ID)
	if err != nil {
		return err
	}
	printID(profile, pubid.Unpack(packed))
	return nil
}

type IDParseConfig struct {
	Publication string `koanf:"publication"`

	LoggingConfig `koanf:",squash"`
}

func startIDParse(args []string) error {
	f := flag.NewFlagSet("id parse", flag.ContinueOnError)
	f.String("publication", "", "publication display string, e.g. 0x01-0x01-DA-46a30696")
	addLoggingOptions(f)
	var config IDParseConfig
	if _, err := parseConfig(f, args, &config); err != nil {
		return err
	}
	profile, id, err := pubid.ParseDisplayString(config.Publication)
	if err != nil {
		return err
	}
	printID(profile, id)
	return nil
}
