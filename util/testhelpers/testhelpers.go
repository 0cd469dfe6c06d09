// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package testhelpers

import (
	"context"
	"crypto/ecdsa"
	"log/slog"
	"math/big"
	"math/rand"
	"os"
	"regexp"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

const (
	red   = "\033[31;1m"
	clear = "\033[0;0m"
)

// Fail a test should an error occur
func RequireImpl(t *testing.T, err error, printables ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatal(red, printables, err, clear)
	}
}

func FailImpl(t *testing.T, printables ...interface{}) {
	t.Helper()
	t.Fatal(red, printables, clear)
}

func RandomizeSlice(slice []byte) []byte {
	_, err := rand.Read(slice)
	if err != nil {
		panic(err)
	}
	return slice
}

func RandomSlice(size uint64) []byte {
	return RandomizeSlice(make([]byte, size))
}

func RandomHash() common.Hash {
	var hash common.Hash
	RandomizeSlice(hash[:])
	return hash
}

func RandomAddress() common.Address {
	var address common.Address
	RandomizeSlice(address[:])
	return address
}

// Computes a psuedo-random uint64 on the interval [min, max]
func RandomUint64(min, max uint64) uint64 {
	return uint64(rand.Uint64()%(max-min+1) + min)
}

// DeterministicKey derives a private key that is stable across runs.
// The T param is to make sure it's only used in testing.
func DeterministicKey(t *testing.T, seed int64) *ecdsa.PrivateKey {
	t.Helper()
	salt := crypto.Keccak256([]byte{'k'}, common.BigToHash(big.NewInt(seed)).Bytes())
	key, err := crypto.ToECDSA(salt)
	RequireImpl(t, err)
	return key
}

// HardhatKey is the first well-known development account, 0xf39F...2266.
func HardhatKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	RequireImpl(t, err)
	return key
}

type LogHandler struct {
	mutex           sync.Mutex
	t               *testing.T
	records         []slog.Record
	terminalHandler *log.TerminalHandler
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.terminalHandler.Enabled(context.Background(), level)
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	return h.terminalHandler.WithGroup(name)
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.terminalHandler.WithAttrs(attrs)
}

func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	if err := h.terminalHandler.Handle(context.Background(), record); err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.records = append(h.records, record)
	return nil
}

func (h *LogHandler) WasLogged(pattern string) bool {
	re, err := regexp.Compile(pattern)
	RequireImpl(h.t, err)
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, record := range h.records {
		if re.MatchString(record.Message) {
			return true
		}
	}
	return false
}

func newLogHandler(t *testing.T) *LogHandler {
	return &LogHandler{
		t:               t,
		records:         make([]slog.Record, 0),
		terminalHandler: log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelTrace, false),
	}
}

func InitTestLog(t *testing.T, level slog.Level) *LogHandler {
	handler := newLogHandler(t)
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(level)
	log.SetDefault(log.NewLogger(glogger))
	return handler
}
