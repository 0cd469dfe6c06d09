// Copyright 2021-2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package pretty shortens untrusted or bulky values for log lines.
package pretty

import "fmt"

const prefixLen = 8

func FirstFewBytes(b []byte) string {
	if len(b) <= prefixLen {
		return fmt.Sprintf("[% x]", b)
	}
	return fmt.Sprintf("[% x ... ] (%d bytes)", b[:prefixLen], len(b))
}

// FirstFewChars quotes s, cutting it after limit runes.
func FirstFewChars(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%q...", string(runes[:limit]))
}
