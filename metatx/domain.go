// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package metatx builds, signs and decodes the EIP-712 meta-transaction
// envelope that carries an oracle judgment to the receiver contract.
package metatx

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	flag "github.com/spf13/pflag"
)

const (
	DefaultDomainName    = "PhatRollupMetaTxReceiver"
	DefaultDomainVersion = "0.0.1"
	forwardRequestType   = "ForwardRequest"
)

// Domain pins a signature to one receiver contract on one chain.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

func NewDomain(chainID *big.Int, verifyingContract common.Address) Domain {
	return Domain{
		Name:              DefaultDomainName,
		Version:           DefaultDomainVersion,
		ChainID:           new(big.Int).Set(chainID),
		VerifyingContract: verifyingContract,
	}
}

func (d Domain) String() string {
	return fmt.Sprintf("%v@%v (chain %v, %v)", d.Name, d.Version, d.ChainID, d.VerifyingContract)
}

type DomainConfig struct {
	Name     string `koanf:"name"`
	Version  string `koanf:"version"`
	ChainID  uint64 `koanf:"chain-id"`
	Receiver string `koanf:"receiver"`
}

var DefaultDomainConfig = DomainConfig{
	Name:    DefaultDomainName,
	Version: DefaultDomainVersion,
	ChainID: 31337,
}

func DomainConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".name", DefaultDomainConfig.Name, "EIP-712 domain name of the meta-transaction receiver")
	f.String(prefix+".version", DefaultDomainConfig.Version, "EIP-712 domain version of the meta-transaction receiver")
	f.Uint64(prefix+".chain-id", DefaultDomainConfig.ChainID, "chain id the attestation is bound to")
	f.String(prefix+".receiver", DefaultDomainConfig.Receiver, "address of the meta-transaction receiver contract")
}

func (c *DomainConfig) Validate() error {
	if c.Name == "" {
		return errors.New("empty domain name")
	}
	if c.ChainID == 0 {
		return errors.New("chain id must be set")
	}
	if !common.IsHexAddress(c.Receiver) {
		return fmt.Errorf("invalid receiver address %q", c.Receiver)
	}
	return nil
}

func (c *DomainConfig) Domain() (Domain, error) {
	if err := c.Validate(); err != nil {
		return Domain{}, err
	}
	return Domain{
		Name:              c.Name,
		Version:           c.Version,
		ChainID:           new(big.Int).SetUint64(c.ChainID),
		VerifyingContract: common.HexToAddress(c.Receiver),
	}, nil
}

// ForwardRequest is the signed body of a meta-transaction.
type ForwardRequest struct {
	From  common.Address
	Nonce *big.Int
	Data  []byte
}

var forwardRequestTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	forwardRequestType: {
		{Name: "from", Type: "address"},
		{Name: "nonce", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	},
}

func (d Domain) typedData(req ForwardRequest) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       forwardRequestTypes,
		PrimaryType: forwardRequestType,
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           (*math.HexOrDecimal256)(d.ChainID),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":  req.From.Hex(),
			"nonce": (*math.HexOrDecimal256)(req.Nonce),
			"data":  hexutil.Bytes(req.Data),
		},
	}
}

// Digest returns the EIP-712 hash a signer commits to for req under d.
func Digest(d Domain, req ForwardRequest) (common.Hash, error) {
	if d.ChainID == nil {
		return common.Hash{}, errors.New("domain has no chain id")
	}
	if req.Nonce == nil || req.Nonce.Sign() < 0 {
		return common.Hash{}, fmt.Errorf("invalid nonce %v", req.Nonce)
	}
	if req.Data == nil {
		req.Data = []byte{}
	}
	hash, _, err := apitypes.TypedDataAndHash(d.typedData(req))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(hash), nil
}
