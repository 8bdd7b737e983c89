// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package plume

import "math/big"

// Constants of the staking protocol.
const (
	// BpsDenominator is the divisor for basis-point rates (100% == 10_000 bps).
	BpsDenominator uint64 = 10_000

	// SecondsPerYear is the accrual year used to derive per-second reward rates.
	SecondsPerYear uint64 = 365 * 24 * 60 * 60

	// CompoundingUnit is the granularity of auto-compound periods.
	// A user's auto-compound period must be a whole multiple of it.
	CompoundingUnit uint64 = 30 * 24 * 60 * 60 // 30 days

	// DefaultCooldownPeriod is the waiting time between an unstake request
	// and the earliest maturity of the bucket it lands in.
	DefaultCooldownPeriod uint64 = 14 * 24 * 60 * 60 // 14 days

	// DefaultBucketWindow is the width of a maturity bucket.
	DefaultBucketWindow uint64 = 24 * 60 * 60 // 1 day

	// DefaultMaxSweep bounds the buckets visited by a single sweep call.
	DefaultMaxSweep = 16
)

// Precision is the fixed-point scale (1e18) used for reward rates and
// amounts. Rewards are computed with truncating division at this scale.
var Precision = big.NewInt(1e18)

// InitialMinStake is the default minimum stake (1 token at 1e18 scale).
var InitialMinStake = new(big.Int).Mul(big.NewInt(1), Precision)
