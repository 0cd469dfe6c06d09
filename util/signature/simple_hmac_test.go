// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

package signature

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSimpleHmacSealOpen(t *testing.T) {
	config := TestSimpleHmacConfig
	h, err := NewSimpleHmac(&config)
	Require(t, err)

	sealed := h.Seal([]byte("publication record"))
	msg, err := h.Open(sealed)
	Require(t, err)
	if string(msg) != "publication record" {
		t.Fatal("unexpected message", string(msg))
	}

	sealed[0] ^= 1
	if _, err := h.Open(sealed); !errors.Is(err, ErrSignatureNotVerified) {
		t.Fatal("tampered record accepted", err)
	}
	if _, err := h.Open([]byte{1, 2}); !errors.Is(err, ErrSignatureNotVerified) {
		t.Fatal("short record accepted", err)
	}
}

func TestSimpleHmacFallbackKey(t *testing.T) {
	oldConfig := TestSimpleHmacConfig
	oldHmac, err := NewSimpleHmac(&oldConfig)
	Require(t, err)

	newConfig := SimpleHmacConfig{
		SigningKey:              "0x1111111111111111111111111111111111111111111111111111111111111111",
		FallbackVerificationKey: oldConfig.SigningKey,
	}
	newHmac, err := NewSimpleHmac(&newConfig)
	Require(t, err)

	if _, err := newHmac.Open(oldHmac.Seal([]byte("old"))); err != nil {
		t.Fatal("fallback key not used", err)
	}
	if _, err := oldHmac.Open(newHmac.Seal([]byte("new"))); err == nil {
		t.Fatal("record under unknown key accepted")
	}
}

func TestLoadSigningKeyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	Require(t, os.WriteFile(path, []byte(TestSimpleHmacConfig.SigningKey+"\n"), 0600))
	key, err := LoadSigningKey(path)
	Require(t, err)
	if key == nil {
		t.Fatal("no key loaded")
	}

	Require(t, os.WriteFile(path, []byte("nope"), 0600))
	if _, err := LoadSigningKey(path); err == nil {
		t.Fatal("garbage key file accepted")
	}
}

func TestSimpleHmacRequiresKey(t *testing.T) {
	if _, err := NewSimpleHmac(&SimpleHmacConfig{}); err == nil {
		t.Fatal("created hmac without key")
	}
	disabled := SimpleHmacConfig{Dangerous: SimpleHmacDangerousConfig{DisableSignatureVerification: true}}
	h, err := NewSimpleHmac(&disabled)
	Require(t, err)
	Require(t, h.VerifySignature(nil, []byte("anything")))
}
