// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
)

var (
	bpsDenominator = new(big.Int).SetUint64(plume.BpsDenominator)
	secondsPerYear = new(big.Int).SetUint64(plume.SecondsPerYear)
)

// RatePerSecond derives the fixed-point per-second reward rate from an
// annual percentage yield expressed in basis points:
//
//	rate = apyBps * 1e18 / (10_000 * secondsPerYear)
//
// The rate is locked into a stake at lock time and never re-derived.
func RatePerSecond(apyBps uint64) *big.Int {
	rate := new(big.Int).SetUint64(apyBps)
	rate.Mul(rate, plume.Precision)
	return rate.Div(rate, new(big.Int).Mul(bpsDenominator, secondsPerYear))
}

// Accrued returns the reward earned by amount between lastClaim and now:
//
//	reward = amount * (now - lastClaim) * ratePerSecond / 1e18
//
// Division truncates, so rewards round down. Elapsed time below lastClaim
// yields zero rather than a negative reward.
func Accrued(amount, ratePerSecond *big.Int, lastClaim, now uint64) *big.Int {
	if now <= lastClaim || amount.Sign() <= 0 || ratePerSecond.Sign() <= 0 {
		return new(big.Int)
	}
	reward := new(big.Int).SetUint64(now - lastClaim)
	reward.Mul(reward, ratePerSecond)
	reward.Mul(reward, amount)
	return reward.Div(reward, plume.Precision)
}

// Penalty returns the time-proportional early-unstake penalty:
//
//	penalty = amount * penaltyBps * remaining / (lockDuration * 10_000)
//
// A matured stake (remaining == 0) carries no penalty. remaining is clamped
// to lockDuration so a penalty can never exceed the flat rate.
func Penalty(amount *big.Int, penaltyBps, remaining, lockDuration uint64) *big.Int {
	if remaining == 0 || lockDuration == 0 || amount.Sign() <= 0 {
		return new(big.Int)
	}
	if remaining > lockDuration {
		remaining = lockDuration
	}
	penalty := new(big.Int).SetUint64(penaltyBps)
	penalty.Mul(penalty, new(big.Int).SetUint64(remaining))
	penalty.Mul(penalty, amount)
	return penalty.Div(penalty, new(big.Int).Mul(new(big.Int).SetUint64(lockDuration), bpsDenominator))
}

// Fee returns amount * feeBps / 10_000, truncating.
func Fee(amount *big.Int, feeBps uint64) *big.Int {
	if feeBps == 0 || amount.Sign() <= 0 {
		return new(big.Int)
	}
	fee := new(big.Int).SetUint64(feeBps)
	fee.Mul(fee, amount)
	return fee.Div(fee, bpsDenominator)
}

// Split divides amount into a retained slice (amount * ratioBps / 10_000)
// and the remainder. Used to withhold liquidity from new stakes.
func Split(amount *big.Int, ratioBps uint64) (retained, remainder *big.Int) {
	retained = Fee(amount, ratioBps)
	remainder = new(big.Int).Sub(amount, retained)
	return retained, remainder
}
