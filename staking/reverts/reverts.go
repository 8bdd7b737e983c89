// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the sentinel errors returned by staking entry
// points. Every error here rejects a call before (or without) any state
// mutation, mirroring a transactional revert.
package reverts

import "errors"

// Validation errors. Rejected before any state is touched.
var (
	ErrZeroAmount         = errors.New("amount is zero")
	ErrBelowMinStake      = errors.New("amount below minimum stake")
	ErrLockupNotAllowed   = errors.New("lock duration does not match a configured option")
	ErrAutoCompoundPeriod = errors.New("auto-compound period not a multiple of the compounding unit or exceeds lock duration")
	ErrInvalidConfig      = errors.New("parameter out of range")
)

// State-conflict errors.
var (
	ErrActiveStakeExists      = errors.New("active stake already exists")
	ErrValidatorExists        = errors.New("validator already registered")
	ErrNoActiveStake          = errors.New("no active stake")
	ErrActiveWithdrawalExists = errors.New("pending withdrawal already exists")
	ErrNoPendingWithdrawal    = errors.New("no pending withdrawal")
	ErrCooldownActive         = errors.New("cooldown period has not elapsed")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrShortenedMaturity      = errors.New("new lock cannot shorten the effective maturity")
	ErrUnknownValidator       = errors.New("unknown validator")
	ErrUnknownRequest         = errors.New("unknown withdrawal request")
	ErrRequestNotReady        = errors.New("withdrawal request not matured")
)

// Authorization errors.
var (
	ErrUnauthorized = errors.New("caller lacks the required capability")
	ErrReentrancy   = errors.New("reentrant call rejected")
)

// Resource-exhaustion conditions.
var (
	ErrInsufficientLiquidity   = errors.New("liquidity buffer cannot cover the request")
	ErrInsufficientRewardFunds = errors.New("reward pools cannot cover the claim")
	ErrNoBucketCapacity        = errors.New("no bucket slot can take the request")
	ErrInstantPaused           = errors.New("instant redemption is paused")
	ErrInstantCapExceeded      = errors.New("instant redemption utilization cap exceeded")
)
