// Copyright 2021-2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package util

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"

	"github.com/offchainlabs/daattest/util/signature"
)

func openKeystoreAccount(keystorePath, accountAddress, passphrase string) (*keystore.KeyStore, accounts.Account, error) {
	if keystorePath == "" {
		return nil, accounts.Account{}, errors.New("keystore path empty")
	}
	ks := keystore.NewKeyStore(keystorePath, keystore.StandardScryptN, keystore.StandardScryptP)
	var account accounts.Account
	if accountAddress == "" {
		if len(ks.Accounts()) == 0 {
			return nil, accounts.Account{}, errors.New("keystore empty")
		}
		account = ks.Accounts()[0]
	} else {
		var err error
		account, err = ks.Find(accounts.Account{Address: common.HexToAddress(accountAddress)})
		if err != nil {
			return nil, accounts.Account{}, err
		}
	}
	if err := ks.Unlock(account, passphrase); err != nil {
		return nil, accounts.Account{}, err
	}
	return ks, account, nil
}

func GetTransactOptsFromKeystore(keystorePath, accountAddress, passphrase string, chainId *big.Int) (*bind.TransactOpts, error) {
	ks, account, err := openKeystoreAccount(keystorePath, accountAddress, passphrase)
	if err != nil {
		return nil, err
	}
	return bind.NewKeyStoreTransactorWithChainID(ks, account, chainId)
}

// DataSignerFromKeystore returns a hash signer backed by an unlocked keystore
// account along with the account's address.
func DataSignerFromKeystore(keystorePath, accountAddress, passphrase string) (signature.DataSignerFunc, common.Address, error) {
	ks, account, err := openKeystoreAccount(keystorePath, accountAddress, passphrase)
	if err != nil {
		return nil, common.Address{}, err
	}
	return func(hash []byte) ([]byte, error) {
		return ks.SignHash(account, hash)
	}, account.Address, nil
}
