// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package confighelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/daattest/cmd/genericconf"
)

type testConfig struct {
	Name    string                 `koanf:"name"`
	Timeout time.Duration          `koanf:"timeout"`
	Peers   []string               `koanf:"peers"`
	Conf    genericconf.ConfConfig `koanf:"conf"`
}

func testFlags() *flag.FlagSet {
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	f.String("name", "default", "")
	f.Duration("timeout", time.Second, "")
	f.StringSlice("peers", nil, "")
	genericconf.ConfConfigAddOptions("conf", f)
	return f
}

func parse(t *testing.T, args ...string) (*testConfig, error) {
	t.Helper()
	k, err := BeginCommonParse(testFlags(), args)
	if err != nil {
		return nil, err
	}
	var config testConfig
	if err := EndCommonParse(k, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func TestDefaultsAndFlags(t *testing.T) {
	config, err := parse(t)
	require.NoError(t, err)
	require.Equal(t, "default", config.Name)
	require.Equal(t, time.Second, config.Timeout)

	config, err = parse(t, "--name", "flag", "--timeout", "5s", "--peers", "a,b")
	require.NoError(t, err)
	require.Equal(t, "flag", config.Name)
	require.Equal(t, 5*time.Second, config.Timeout)
	require.Equal(t, []string{"a", "b"}, config.Peers)
}

func TestConfigFileAndString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"file","timeout":"3s"}`), 0600))

	config, err := parse(t, "--conf.file", path)
	require.NoError(t, err)
	require.Equal(t, "file", config.Name)
	require.Equal(t, 3*time.Second, config.Timeout)

	config, err = parse(t, "--conf.file", path, "--conf.string", `{"name":"string"}`)
	require.NoError(t, err)
	require.Equal(t, "string", config.Name)

	config, err = parse(t, "--conf.file", path, "--name", "flag")
	require.NoError(t, err)
	require.Equal(t, "flag", config.Name)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("DAATTEST_TEST_NAME", "env")
	config, err := parse(t, "--conf.env-prefix", "DAATTEST_TEST")
	require.NoError(t, err)
	require.Equal(t, "env", config.Name)
}

func TestParseErrors(t *testing.T) {
	_, err := parse(t, "--version")
	require.ErrorIs(t, err, ErrVersion)
	_, err = parse(t, "stray")
	require.Error(t, err)
	_, err = parse(t, "--conf.string", `{"unknown":1}`)
	require.Error(t, err)
}
