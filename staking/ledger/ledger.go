// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/plumenetwork/plume/staking/registry"
)

// Stake is a user's single active locked position. RewardRate is the
// fixed-point per-second rate derived from the lockup option matched at
// stake (or extend) time; later edits to the option table do not touch it.
type Stake struct {
	Amount          *big.Int
	StartTime       uint64
	LockDuration    uint64
	RewardRate      *big.Int
	LastRewardClaim uint64
	Validator       registry.ID
}

// Matured returns true once the lock has run its full duration.
func (s *Stake) Matured(now uint64) bool {
	return now >= s.StartTime+s.LockDuration
}

// Remaining returns the lock time left, zero once matured.
func (s *Stake) Remaining(now uint64) uint64 {
	end := s.StartTime + s.LockDuration
	if now >= end {
		return 0
	}
	return end - now
}

// Account is the per-user ledger state. The three balances are orthogonal:
// a user can hold parked funds, an active stake and a pending withdrawal at
// the same time.
type Account struct {
	Parked             *big.Int
	Stake              *Stake   `rlp:"nil"`
	PendingRequest     *uint64  `rlp:"nil"` // withdrawal request ID, at most one in flight
	RewardAccumulated  *big.Int
	AutoCompoundPeriod uint64 // 0 disables auto-compounding
}

// normalize replaces nil amounts with zero after a raw load.
func (a *Account) normalize() {
	if a.Parked == nil {
		a.Parked = new(big.Int)
	}
	if a.RewardAccumulated == nil {
		a.RewardAccumulated = new(big.Int)
	}
}

// HasStake returns true if the account has an active locked position.
func (a *Account) HasStake() bool {
	return a.Stake != nil && a.Stake.Amount != nil && a.Stake.Amount.Sign() > 0
}

// LockupOption is one allowed lock duration with its yield. Durations are
// matched by exact equality, not by range.
type LockupOption struct {
	Duration uint64
	APYBps   uint64
}
