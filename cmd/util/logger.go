// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package util

import (
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/daattest/cmd/genericconf"
)

// SetLogger installs the default logger of one-shot commands, which log to
// stderr and keep stdout for their results.
func SetLogger(logLevel string, logType string) error {
	return setLogger(os.Stderr, logLevel, logType)
}

func setLogger(output io.Writer, logLevel string, logType string) error {
	level, err := genericconf.ToSlogLevel(logLevel)
	if err != nil {
		return err
	}
	handler, err := genericconf.HandlerFromLogType(logType, output)
	if err != nil {
		return err
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(level)
	log.SetDefault(log.NewLogger(glogger))
	return nil
}
