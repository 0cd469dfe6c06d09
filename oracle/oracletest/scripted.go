// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package oracletest provides a deterministic oracle channel for tests.
package oracletest

import (
	"context"
	"errors"
	"sync"

	"github.com/offchainlabs/daattest/oracle"
)

// Step is one scripted answer. Block makes the call wait for ctx.
type Step struct {
	Result *oracle.CheckResult
	Err    error
	Block  bool
}

// Scripted replays its steps in order and then repeats Default.
type Scripted struct {
	mutex   sync.Mutex
	steps   []Step
	Default Step
	queries []oracle.Query
}

var ErrScriptExhausted = errors.New("scripted oracle has no more answers")

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{
		steps:   steps,
		Default: Step{Err: ErrScriptExhausted},
	}
}

func Judgment(output []byte) Step {
	return Step{Result: &oracle.CheckResult{Output: output}}
}

func Refusal(reason string) Step {
	return Step{Result: &oracle.CheckResult{Reason: reason}}
}

func (s *Scripted) CheckPublication(ctx context.Context, query oracle.Query) (*oracle.CheckResult, error) {
	s.mutex.Lock()
	s.queries = append(s.queries, query)
	step := s.Default
	if len(s.steps) > 0 {
		step = s.steps[0]
		s.steps = s.steps[1:]
	}
	s.mutex.Unlock()

	if step.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return step.Result, step.Err
}

func (s *Scripted) Queries() []oracle.Query {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]oracle.Query(nil), s.queries...)
}
