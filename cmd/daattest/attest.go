// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/offchainlabs/daattest/attestation"
	"github.com/offchainlabs/daattest/cmd/genericconf"
	"github.com/offchainlabs/daattest/collect"
	"github.com/offchainlabs/daattest/metatx"
	"github.com/offchainlabs/daattest/oracle"
	"github.com/offchainlabs/daattest/util"
	"github.com/offchainlabs/daattest/util/redisutil"
	"github.com/offchainlabs/daattest/util/rpcclient"
)

type PublicationConfig struct {
	Publication   string `koanf:"publication"`
	CollectModule string `koanf:"collect-module"`
	Content       string `koanf:"content"`
	ModuleData    string `koanf:"module-data"`
}

func addPublicationOptions(f *flag.FlagSet) {
	f.String("publication", "", "publication display string, e.g. 0x01-0x01-DA-46a30696")
	f.String("collect-module", "", "collect module the publication is expected to use")
	f.String("content", "", "content pointer the publication is expected to carry")
	f.String("module-data", "", "hex encoded data for the collect module")
}

func (c *PublicationConfig) params() collect.Params {
	return collect.Params{
		Publication:    c.Publication,
		CollectModule:  c.CollectModule,
		ContentPointer: c.Content,
		ModuleData:     common.FromHex(c.ModuleData),
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openOracle(ctx context.Context, config *oracle.ClientConfig) (*oracle.Client, func(), error) {
	if config.RPC.URL == "" {
		return nil, nil, errors.New("--oracle.rpc.url is required")
	}
	channel, err := oracle.NewRPCChannel(ctx, func() *rpcclient.ClientConfig { return &config.RPC }, nil)
	if err != nil {
		return nil, nil, err
	}
	return oracle.NewClient(channel, func() *oracle.ClientConfig { return config }), channel.Close, nil
}

func openAttestor(wallet *genericconf.WalletConfig) (*metatx.Signer, error) {
	if err := wallet.Validate(); err != nil {
		return nil, fmt.Errorf("attestor wallet: %w", err)
	}
	if wallet.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(wallet.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("attestor private key: %w", err)
		}
		return metatx.SignerFromPrivateKey(key), nil
	}
	return metatx.SignerFromKeystore(wallet.Pathname, wallet.Account, *wallet.Pwd())
}

func openSender(wallet *genericconf.WalletConfig, chainID *big.Int) (*bind.TransactOpts, error) {
	if err := wallet.Validate(); err != nil {
		return nil, fmt.Errorf("sender wallet: %w", err)
	}
	if wallet.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(wallet.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("sender private key: %w", err)
		}
		return bind.NewKeyedTransactorWithChainID(key, chainID)
	}
	return util.GetTransactOptsFromKeystore(wallet.Pathname, wallet.Account, *wallet.Pwd(), chainID)
}

func nonceAllocator(redisURL string) (metatx.NonceAllocator, error) {
	if redisURL == "" {
		return metatx.NewLocalNonceAllocator(), nil
	}
	client, err := redisutil.RedisClientFromURL(redisURL)
	if err != nil {
		return nil, err
	}
	return metatx.NewRedisNonceAllocator(client, metatx.DefaultNonceKeyPrefix, metatx.DefaultNonceReservationTTL), nil
}

// daattest query

type QueryConfig struct {
	PublicationConfig `koanf:",squash"`
	Oracle            oracle.ClientConfig `koanf:"oracle"`

	LoggingConfig `koanf:",squash"`
}

func startQuery(args []string) error {
	f := flag.NewFlagSet("query", flag.ContinueOnError)
	addPublicationOptions(f)
	oracle.ClientConfigAddOptions("oracle", f)
	addLoggingOptions(f)
	var config QueryConfig
	if _, err := parseConfig(f, args, &config, "oracle.rpc.jwtsecret"); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	request, err := attestation.ParseRequest(config.Publication, config.CollectModule, config.Content, common.FromHex(config.ModuleData))
	if err != nil {
		return err
	}
	client, closeClient, err := openOracle(ctx, &config.Oracle)
	if err != nil {
		return err
	}
	defer closeClient()
	judgment, err := client.Query(ctx, request)
	if err != nil {
		return err
	}
	decoded, err := attestation.DecodeJudgment(judgment)
	if err != nil {
		return err
	}
	fmt.Printf("Judgment: %s\n", hexutil.Encode(judgment))
	fmt.Printf("Root:     %v/%v\n", decoded.RootProfileID, decoded.RootPublicationID)
	if err := decoded.Matches(request); err != nil {
		fmt.Printf("Warning:  %v\n", err)
	}
	return nil
}

// daattest attest

type AttestConfig struct {
	PublicationConfig `koanf:",squash"`
	Oracle            oracle.ClientConfig      `koanf:"oracle"`
	Domain            metatx.DomainConfig      `koanf:"domain"`
	AttestorWallet    genericconf.WalletConfig `koanf:"attestor-wallet"`
	Nonce             int64                    `koanf:"nonce"`
	ChainURL          string                   `koanf:"chain-url"`
	NonceRedisURL     string                   `koanf:"nonce-redis-url"`
	Collector         collect.CollectorConfig  `koanf:"collector"`
	Archive           collect.ArchiveConfig    `koanf:"archive"`

	LoggingConfig `koanf:",squash"`
}

func addAttestOptions(f *flag.FlagSet) {
	addPublicationOptions(f)
	oracle.ClientConfigAddOptions("oracle", f)
	metatx.DomainConfigAddOptions("domain", f)
	genericconf.WalletConfigAddOptions("attestor-wallet", f, "")
	f.String("chain-url", "", "URL of the chain the receiver lives on, used to read the next nonce and to submit")
	f.String("nonce-redis-url", "", "redis URL used to share nonce reservations between attestors (empty = in-process)")
	collect.CollectorConfigAddOptions("collector", f)
	collect.ArchiveConfigAddOptions("archive", f)
}

var attestSecrets = []string{
	"oracle.rpc.jwtsecret",
	"attestor-wallet.password",
	"attestor-wallet.private-key",
	"archive.s3.access-key",
	"archive.s3.secret-key",
}

func startAttest(args []string) error {
	f := flag.NewFlagSet("attest", flag.ContinueOnError)
	addAttestOptions(f)
	f.Int64("nonce", -1, "nonce to sign with (-1 = read from the receiver through chain-url)")
	addLoggingOptions(f)
	var config AttestConfig
	if _, err := parseConfig(f, args, &config, attestSecrets...); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	domain, err := config.Domain.Domain()
	if err != nil {
		return err
	}
	if err := config.Archive.Validate(); err != nil {
		return err
	}
	signer, err := openAttestor(&config.AttestorWallet)
	if err != nil {
		return err
	}
	var nonces collect.NonceReader
	switch {
	case config.Nonce >= 0:
		nonces = collect.FixedNonce(config.Nonce)
	case config.ChainURL != "":
		client, err := ethclient.DialContext(ctx, config.ChainURL)
		if err != nil {
			return err
		}
		defer client.Close()
		nonces = collect.NewContractNonceReader(domain.VerifyingContract, client)
	default:
		return errors.New("either --nonce or --chain-url is required")
	}
	allocator := metatx.NonceAllocator(metatx.NewLocalNonceAllocator())
	if config.Nonce < 0 {
		if allocator, err = nonceAllocator(config.NonceRedisURL); err != nil {
			return err
		}
	}
	archive, err := collect.NewArchive(&config.Archive)
	if err != nil {
		return err
	}
	client, closeClient, err := openOracle(ctx, &config.Oracle)
	if err != nil {
		return err
	}
	defer closeClient()

	collector := collect.NewCollector(client, signer, domain, allocator, nonces, nil, archive,
		func() *collect.CollectorConfig { return &config.Collector })
	outcome, err := collector.Collect(ctx, config.params())
	if err != nil {
		return err
	}
	fmt.Printf("Signer:      %v\n", signer.Address())
	fmt.Printf("Nonce:       %v\n", outcome.Envelope.Nonce)
	fmt.Printf("Attestation: %s\n", hexutil.Encode(outcome.Attestation))
	if outcome.ArchiveKey != "" {
		fmt.Printf("Archived:    %s\n", outcome.ArchiveKey)
	}
	return nil
}

// daattest collect

type CollectConfig struct {
	AttestConfig `koanf:",squash"`
	Hub          string                   `koanf:"hub"`
	SenderWallet genericconf.WalletConfig `koanf:"sender-wallet"`
}

func startCollect(args []string) error {
	f := flag.NewFlagSet("collect", flag.ContinueOnError)
	addAttestOptions(f)
	f.String("hub", "", "address of the hub exposing daCollect")
	genericconf.WalletConfigAddOptions("sender-wallet", f, "")
	addLoggingOptions(f)
	var config CollectConfig
	secrets := append([]string{"sender-wallet.password", "sender-wallet.private-key"}, attestSecrets...)
	if _, err := parseConfig(f, args, &config, secrets...); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	if config.ChainURL == "" {
		return errors.New("--chain-url is required")
	}
	if !common.IsHexAddress(config.Hub) {
		return fmt.Errorf("invalid hub address %q", config.Hub)
	}
	domain, err := config.Domain.Domain()
	if err != nil {
		return err
	}
	if err := config.Archive.Validate(); err != nil {
		return err
	}
	signer, err := openAttestor(&config.AttestorWallet)
	if err != nil {
		return err
	}
	backend, err := ethclient.DialContext(ctx, config.ChainURL)
	if err != nil {
		return err
	}
	defer backend.Close()
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("couldn't read chain id: %w", err)
	}
	if chainID.Cmp(domain.ChainID) != 0 {
		return fmt.Errorf("chain %v does not match domain chain id %v", chainID, domain.ChainID)
	}
	sender, err := openSender(&config.SenderWallet, chainID)
	if err != nil {
		return err
	}
	allocator, err := nonceAllocator(config.NonceRedisURL)
	if err != nil {
		return err
	}
	archive, err := collect.NewArchive(&config.Archive)
	if err != nil {
		return err
	}
	client, closeClient, err := openOracle(ctx, &config.Oracle)
	if err != nil {
		return err
	}
	defer closeClient()

	submitter := collect.NewContractSubmitter(common.HexToAddress(config.Hub), backend, sender)
	nonces := collect.NewContractNonceReader(domain.VerifyingContract, backend)
	collector := collect.NewCollector(client, signer, domain, allocator, nonces, submitter, archive,
		func() *collect.CollectorConfig { return &config.Collector })
	outcome, err := collector.Collect(ctx, config.params())
	if err != nil {
		if stage, ok := collect.StageOf(err); ok {
			fmt.Printf("Failed stage: %s\n", stage)
		}
		return err
	}
	receipt := outcome.Receipt
	fmt.Printf("Attestation: %s\n", hexutil.Encode(outcome.Attestation))
	if receipt.DryRun {
		fmt.Printf("Dry run ok, token id %v, unsent tx %v\n", receipt.TokenID, receipt.TxHash)
		return nil
	}
	fmt.Printf("Collected in tx %v (block %v)\n", receipt.TxHash, receipt.BlockNumber)
	return nil
}
