// Copyright 2021-2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package confighelpers

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/mitchellh/mapstructure"
	flag "github.com/spf13/pflag"
)

var ErrVersion = errors.New("version requested")

// BeginCommonParse layers configuration sources: flag defaults, config
// files, the config string, environment variables, then explicit flags.
func BeginCommonParse(f *flag.FlagSet, args []string) (*koanf.Koanf, error) {
	for _, arg := range args {
		if arg == "--version" || arg == "-v" {
			return nil, ErrVersion
		}
	}
	if err := f.Parse(args); err != nil {
		return nil, err
	}
	if f.NArg() != 0 {
		// Unexpected number of parameters
		return nil, fmt.Errorf("unexpected parameter: %s", f.Arg(0))
	}

	var k = koanf.New(".")

	// Load defaults first
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	for _, configFile := range k.Strings("conf.file") {
		if len(configFile) == 0 {
			continue
		}
		if err := k.Load(file.Provider(configFile), json.Parser()); err != nil {
			return nil, fmt.Errorf("error loading local config file %v: %w", configFile, err)
		}
	}
	if configString := k.String("conf.string"); len(configString) > 0 {
		if err := k.Load(rawbytes.Provider([]byte(configString)), json.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config string: %w", err)
		}
	}
	if envPrefix := k.String("conf.env-prefix"); len(envPrefix) > 0 {
		if err := loadEnvironmentVariables(k, envPrefix); err != nil {
			return nil, fmt.Errorf("error loading environment variables: %w", err)
		}
	}

	// Any settings from flags should override everything else.
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("error loading flags: %w", err)
	}
	return k, nil
}

// DAATTEST_ORACLE__RPC_URL becomes oracle.rpc-url.
func loadEnvironmentVariables(k *koanf.Koanf, envPrefix string) error {
	prefix := strings.TrimSuffix(envPrefix, "_") + "_"
	return k.Load(env.Provider(prefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, prefix))
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ReplaceAll(s, "_", "-")
	}), nil)
}

func EndCommonParse(k *koanf.Koanf, config interface{}) error {
	decoderConfig := mapstructure.DecoderConfig{
		ErrorUnused: true,

		// Default values
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(",")),
		Metadata:         nil,
		Result:           config,
		WeaklyTypedInput: true,
	}
	return k.UnmarshalWithConf("", config, koanf.UnmarshalConf{DecoderConfig: &decoderConfig})
}

// DumpConfig blanks out the given fields, e.g. secrets, before the active
// configuration is printed.
func DumpConfig(k *koanf.Koanf, extraOverrideFields map[string]interface{}) error {
	overrideFields := map[string]interface{}{"conf.dump": false}
	for key, value := range extraOverrideFields {
		overrideFields[key] = value
	}
	if err := k.Load(confmap.Provider(overrideFields, "."), nil); err != nil {
		return fmt.Errorf("error removing extra parameters before dump: %w", err)
	}
	c, err := k.Marshal(json.Parser())
	if err != nil {
		return fmt.Errorf("unable to marshal config file to JSON: %w", err)
	}
	fmt.Println(string(c))
	return nil
}

func PrintErrorAndExit(err error, usage func(string)) {
	if err != nil && errors.Is(err, ErrVersion) {
		revision, vcsTime := GetVersion()
		fmt.Printf("Version: %v, time: %v\n", revision, vcsTime)
		os.Exit(0)
	}
	usage(os.Args[0])
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Printf("\nFatal configuration error: %s\n", err.Error())
		os.Exit(1)
	}
	os.Exit(0)
}

func GetVersion() (string, string) {
	revision, vcsTime := "development", "development"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return revision, vcsTime
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}
	return revision, vcsTime
}
