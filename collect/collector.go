// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package collect

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	flag "github.com/spf13/pflag"

	"github.com/offchainlabs/daattest/attestation"
	"github.com/offchainlabs/daattest/metatx"
	"github.com/offchainlabs/daattest/oracle"
	"github.com/offchainlabs/daattest/pubid"
	"github.com/offchainlabs/daattest/util/retry"
	"github.com/offchainlabs/daattest/verifier"
)

var (
	collectDurationTimer  = metrics.NewRegisteredTimer("daattest/collect/duration", nil)
	collectSuccessCounter = metrics.NewRegisteredCounter("daattest/collect/success", nil)
	collectFailureCounter = metrics.NewRegisteredCounter("daattest/collect/failure", nil)
)

type Stage string

const (
	StageIdentifier   Stage = "identifier"
	StageRequest      Stage = "request"
	StageOracle       Stage = "oracle"
	StageSigning      Stage = "signing"
	StageVerification Stage = "verification"
	StageArchive      Stage = "archive"
	StageSubmission   Stage = "submission"
)

// StageError reports which step of a collect attempt failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("collect failed at %s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the failed stage of a Collect error.
func StageOf(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}

func stageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

type CollectorConfig struct {
	Attempts   int           `koanf:"attempts"`
	RetryDelay time.Duration `koanf:"retry-delay"`
	Simulate   bool          `koanf:"simulate"`
	DryRun     bool          `koanf:"dry-run"`
}

var DefaultCollectorConfig = CollectorConfig{
	Attempts:   3,
	RetryDelay: 2 * time.Second,
	Simulate:   true,
	DryRun:     false,
}

func CollectorConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Int(prefix+".attempts", DefaultCollectorConfig.Attempts, "number of times to ask the oracle before giving up on retryable failures")
	f.Duration(prefix+".retry-delay", DefaultCollectorConfig.RetryDelay, "delay between oracle attempts")
	f.Bool(prefix+".simulate", DefaultCollectorConfig.Simulate, "simulate the collect call before submitting it")
	f.Bool(prefix+".dry-run", DefaultCollectorConfig.DryRun, "stop after simulating the collect call")
}

type CollectorConfigFetcher func() *CollectorConfig

// Params names the publication to collect.
type Params struct {
	Publication    string
	CollectModule  string
	ContentPointer string
	ModuleData     []byte
}

// Outcome is everything produced by a collect attempt that got past signing.
type Outcome struct {
	Request     *attestation.Request
	Judgment    []byte
	Envelope    *metatx.Envelope
	Attestation []byte
	ArchiveKey  string
	Receipt     *Receipt
}

// Call is the hub call carrying the outcome's attestation.
func (o *Outcome) Call() *verifier.CollectCall {
	return &verifier.CollectCall{
		ProfileID:              o.Request.ProfileID(),
		PublicationID:          o.Request.PublicationID().Big(),
		Attestation:            common.CopyBytes(o.Attestation),
		ModuleData:             o.Request.ModuleData(),
		ExpectedCollectModule:  o.Request.CollectModule(),
		ExpectedContentPointer: o.Request.ContentPointer(),
	}
}

// Collector runs the full pipeline for one publication: build the request,
// obtain a judgment, sign it under the hub's domain and submit it.
type Collector struct {
	oracle      *oracle.Client
	signer      *metatx.Signer
	domain      metatx.Domain
	nonces      metatx.NonceAllocator
	nonceReader NonceReader
	submitter   Submitter
	archive     Archive
	config      CollectorConfigFetcher
}

// NewCollector wires a collector. nonceReader and archive may be nil.
func NewCollector(
	oracleClient *oracle.Client,
	signer *metatx.Signer,
	domain metatx.Domain,
	nonces metatx.NonceAllocator,
	nonceReader NonceReader,
	submitter Submitter,
	archive Archive,
	config CollectorConfigFetcher,
) *Collector {
	return &Collector{
		oracle:      oracleClient,
		signer:      signer,
		domain:      domain,
		nonces:      nonces,
		nonceReader: nonceReader,
		submitter:   submitter,
		archive:     archive,
		config:      config,
	}
}

func (c *Collector) Collect(ctx context.Context, params Params) (*Outcome, error) {
	start := time.Now()
	outcome, err := c.collect(ctx, params)
	collectDurationTimer.UpdateSince(start)
	if err != nil {
		collectFailureCounter.Inc(1)
		log.Warn("collect failed", "publication", params.Publication, "err", err)
		return outcome, err
	}
	collectSuccessCounter.Inc(1)
	return outcome, nil
}

func (c *Collector) collect(ctx context.Context, params Params) (*Outcome, error) {
	config := c.config()

	profileID, id, err := pubid.ParseDisplayString(params.Publication)
	if err != nil {
		return nil, stageError(StageIdentifier, err)
	}
	if !common.IsHexAddress(params.CollectModule) {
		return nil, stageError(StageRequest, fmt.Errorf("%w: %q", attestation.ErrInvalidAddress, params.CollectModule))
	}
	collectModule := common.HexToAddress(params.CollectModule)
	newRequest := func() (*attestation.Request, error) {
		return attestation.NewRequest(profileID.ToBig(), id, collectModule, params.ContentPointer, params.ModuleData)
	}
	request, err := newRequest()
	if err != nil {
		return nil, stageError(StageRequest, err)
	}

	// Each attempt gets its own request; a judgment is only ever paired
	// with the request it answered.
	type answered struct {
		request  *attestation.Request
		judgment []byte
	}
	retryable := func(err error) bool {
		var oracleErr *oracle.Error
		return errors.As(err, &oracleErr) && oracleErr.Retryable()
	}
	answer, err := retry.UpTo(ctx, config.Attempts, config.RetryDelay, retryable, func(attempt int) (answered, error) {
		req := request
		if attempt > 0 {
			fresh, err := newRequest()
			if err != nil {
				return answered{}, err
			}
			req = fresh
		}
		judgment, err := c.oracle.Query(ctx, req)
		return answered{req, judgment}, err
	})
	if err != nil {
		return nil, stageError(StageOracle, err)
	}
	outcome := &Outcome{Request: answer.request, Judgment: answer.judgment}

	decoded, err := attestation.DecodeJudgment(answer.judgment)
	if err != nil {
		return outcome, stageError(StageOracle, &oracle.Error{Kind: oracle.Malformed, Err: err})
	}
	if err := decoded.Matches(answer.request); err != nil {
		return outcome, stageError(StageOracle, &oracle.Error{Kind: oracle.Malformed, Reason: "judgment does not answer the request", Err: err})
	}

	payload, err := attestation.ComposePayload(answer.judgment, answer.request.ModuleData())
	if err != nil {
		return outcome, stageError(StageSigning, err)
	}
	floor := uint64(0)
	if c.nonceReader != nil {
		if floor, err = c.nonceReader.NextNonce(ctx, c.signer.Address()); err != nil {
			return outcome, stageError(StageSigning, err)
		}
	}
	// A dry run signs at the ledger's next nonce without reserving it. Any
	// other reservation is handed back unless the attestation leaves this
	// function as a result.
	nonce := floor
	handedOut := false
	if !config.DryRun {
		if nonce, err = c.nonces.Reserve(ctx, c.signer.Address(), floor); err != nil {
			return outcome, stageError(StageSigning, err)
		}
		defer func() {
			if !handedOut {
				c.release(ctx, nonce)
			}
		}()
	}
	envelope, err := c.signer.Sign(c.domain, new(big.Int).SetUint64(nonce), payload)
	if err != nil {
		return outcome, stageError(StageSigning, err)
	}
	encoded, err := envelope.Encode()
	if err != nil {
		return outcome, stageError(StageSigning, err)
	}
	outcome.Envelope = envelope
	outcome.Attestation = encoded
	log.Info("signed attestation", "publication", answer.request.DisplayString(), "signer", c.signer.Address(), "nonce", nonce, "dryRun", config.DryRun)

	if c.archive != nil {
		key, err := c.archive.Store(ctx, &Record{
			Publication: answer.request.DisplayString(),
			Signer:      c.signer.Address(),
			Nonce:       nonce,
			Judgment:    answer.judgment,
			ModuleData:  answer.request.ModuleData(),
			Attestation: encoded,
		})
		if err != nil {
			return outcome, stageError(StageArchive, err)
		}
		outcome.ArchiveKey = key
	}

	if c.submitter == nil {
		handedOut = true
		return outcome, nil
	}
	call := outcome.Call()
	if config.Simulate || config.DryRun {
		receipt, err := c.submitter.SubmitCollect(ctx, call, true)
		if err != nil {
			return outcome, submissionError(err)
		}
		outcome.Receipt = receipt
		if config.DryRun {
			return outcome, nil
		}
	}
	receipt, err := c.submitter.SubmitCollect(ctx, call, false)
	if err != nil {
		return outcome, submissionError(err)
	}
	handedOut = true
	outcome.Receipt = receipt
	log.Info("collected publication", "publication", answer.request.DisplayString(), "token", receipt.TokenID, "tx", receipt.TxHash)
	return outcome, nil
}

func (c *Collector) release(ctx context.Context, nonce uint64) {
	if err := c.nonces.Release(context.WithoutCancel(ctx), c.signer.Address(), nonce); err != nil {
		log.Error("failed to release nonce", "signer", c.signer.Address(), "nonce", nonce, "err", err)
		return
	}
	log.Debug("released unused nonce", "signer", c.signer.Address(), "nonce", nonce)
}

// submissionError attributes hub rejections of the attestation to the
// verification stage.
func submissionError(err error) error {
	if errors.Is(err, verifier.ErrAttestationInvalid) ||
		errors.Is(err, verifier.ErrAttestationUnauthorized) ||
		errors.Is(err, verifier.ErrAttestationReplayed) {
		return stageError(StageVerification, err)
	}
	return stageError(StageSubmission, err)
}
