// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package genericconf

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func TestToSlogLevel(t *testing.T) {
	for input, want := range map[string]slog.Level{
		"trace": log.LevelTrace,
		"DEBUG": log.LevelDebug,
		"info":  log.LevelInfo,
		"warn":  log.LevelWarn,
		"error": log.LevelError,
		"crit":  log.LevelCrit,
		"3":     log.LevelInfo,
		"5":     log.LevelTrace,
	} {
		got, err := ToSlogLevel(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}
	for _, bad := range []string{"", "loud", "6", "-1"} {
		_, err := ToSlogLevel(bad)
		require.Error(t, err, bad)
	}
}

func TestHandlerFromLogType(t *testing.T) {
	var buf bytes.Buffer
	handler, err := HandlerFromLogType("json", &buf)
	require.NoError(t, err)
	log.NewLogger(handler).Info("hello", "key", "value")
	require.Contains(t, buf.String(), `"key":"value"`)

	_, err = HandlerFromLogType("xml", &buf)
	require.Error(t, err)
}

func TestInitLogToFile(t *testing.T) {
	defer log.SetDefault(log.Root())
	dir := t.TempDir()
	config := DefaultFileLoggingConfig
	config.Enable = true
	config.File = "test.log"
	require.NoError(t, InitLog("plaintext", "info", &config, DefaultPathResolver(dir)))
	log.Info("written to file")
	require.NoError(t, globalFileLoggerFactory.close())

	contents, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "written to file")

	require.Error(t, InitLog("plaintext", "loud", &DefaultFileLoggingConfig, DefaultPathResolver(dir)))
}
