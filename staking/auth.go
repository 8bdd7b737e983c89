// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"sync"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/reverts"
)

// Capability names a privileged action class.
type Capability uint8

const (
	// CapAdmin may change policy parameters and the lockup option table.
	CapAdmin Capability = iota
	// CapOperator may sweep buckets, fulfill requests and sync validators.
	CapOperator
)

func (c Capability) String() string {
	switch c {
	case CapAdmin:
		return "admin"
	case CapOperator:
		return "operator"
	default:
		return "unknown"
	}
}

// Authorizer decides whether a caller holds a capability.
type Authorizer interface {
	Authorize(caller plume.Address, cap Capability) error
}

// StaticAuthorizer is a fixed capability table. Admins implicitly hold the
// operator capability.
type StaticAuthorizer struct {
	mu        sync.RWMutex
	admins    map[plume.Address]bool
	operators map[plume.Address]bool
}

// NewStaticAuthorizer builds the table from the initial holder lists.
func NewStaticAuthorizer(admins, operators []plume.Address) *StaticAuthorizer {
	a := &StaticAuthorizer{
		admins:    make(map[plume.Address]bool),
		operators: make(map[plume.Address]bool),
	}
	for _, addr := range admins {
		a.admins[addr] = true
	}
	for _, addr := range operators {
		a.operators[addr] = true
	}
	return a
}

// Authorize implements Authorizer.
func (a *StaticAuthorizer) Authorize(caller plume.Address, cap Capability) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch cap {
	case CapAdmin:
		if a.admins[caller] {
			return nil
		}
	case CapOperator:
		if a.operators[caller] || a.admins[caller] {
			return nil
		}
	}
	return reverts.ErrUnauthorized
}

// Grant adds a capability holder.
func (a *StaticAuthorizer) Grant(addr plume.Address, cap Capability) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cap == CapAdmin {
		a.admins[addr] = true
	} else {
		a.operators[addr] = true
	}
}

// Revoke removes a capability holder.
func (a *StaticAuthorizer) Revoke(addr plume.Address, cap Capability) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cap == CapAdmin {
		delete(a.admins, addr)
	} else {
		delete(a.operators, addr)
	}
}
