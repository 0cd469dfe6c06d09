// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package verifier

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ModuleWhitelist reports which collect modules the hub accepts.
type ModuleWhitelist interface {
	IsCollectModuleWhitelisted(module common.Address) bool
}

type StaticWhitelist struct {
	mutex   sync.RWMutex
	modules map[common.Address]struct{}
}

func NewStaticWhitelist(modules ...common.Address) *StaticWhitelist {
	w := &StaticWhitelist{modules: make(map[common.Address]struct{}, len(modules))}
	for _, module := range modules {
		w.modules[module] = struct{}{}
	}
	return w
}

func (w *StaticWhitelist) IsCollectModuleWhitelisted(module common.Address) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	_, ok := w.modules[module]
	return ok
}

func (w *StaticWhitelist) Set(module common.Address, whitelisted bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if whitelisted {
		w.modules[module] = struct{}{}
	} else {
		delete(w.modules, module)
	}
}
