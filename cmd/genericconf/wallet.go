// Copyright 2021-2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package genericconf

import (
	"errors"

	flag "github.com/spf13/pflag"
)

const PASSWORD_NOT_SET = "PASSWORD_NOT_SET"

type WalletConfig struct {
	Pathname   string `koanf:"pathname"`
	Password   string `koanf:"password"`
	PrivateKey string `koanf:"private-key"`
	Account    string `koanf:"account"`
}

func (w *WalletConfig) Pwd() *string {
	if w.Password == PASSWORD_NOT_SET {
		return nil
	}
	return &w.Password
}

func (w *WalletConfig) Validate() error {
	if w.PrivateKey == "" && w.Pathname == "" {
		return errors.New("either a private key or a keystore pathname is required")
	}
	if w.PrivateKey != "" && w.Pathname != "" {
		return errors.New("private key and keystore pathname are mutually exclusive")
	}
	if w.Pathname != "" && w.Pwd() == nil {
		return errors.New("keystore password required")
	}
	return nil
}

var WalletConfigDefault = WalletConfig{
	Pathname:   "",
	Password:   PASSWORD_NOT_SET,
	PrivateKey: "",
	Account:    "",
}

func WalletConfigAddOptions(prefix string, f *flag.FlagSet, defaultPathname string) {
	f.String(prefix+".pathname", defaultPathname, "pathname for wallet")
	f.String(prefix+".password", WalletConfigDefault.Password, "wallet passphrase")
	f.String(prefix+".private-key", WalletConfigDefault.PrivateKey, "private key for wallet")
	f.String(prefix+".account", WalletConfigDefault.Account, "account to use (default is first account in keystore)")
}
