// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package buffer

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/storage"
)

var (
	slotWithheld         = plume.BytesToBytes32([]byte("buffer-withheld"))
	slotInstantUnstaked  = plume.BytesToBytes32([]byte("buffer-instant-unstaked"))
	slotWithholdRatio    = plume.BytesToBytes32([]byte("buffer-withhold-ratio-bps"))
	slotInstantFee       = plume.BytesToBytes32([]byte("buffer-instant-fee-bps"))
	slotStandardFee      = plume.BytesToBytes32([]byte("buffer-standard-fee-bps"))
	slotInstantUtil      = plume.BytesToBytes32([]byte("buffer-instant-util-bps"))
	slotPenalty          = plume.BytesToBytes32([]byte("buffer-penalty-bps"))
	slotMinStake         = plume.BytesToBytes32([]byte("buffer-min-stake"))
	slotCooldown         = plume.BytesToBytes32([]byte("buffer-cooldown-period"))
	slotBucketWindow     = plume.BytesToBytes32([]byte("buffer-bucket-window"))
	slotBucketCapacity   = plume.BytesToBytes32([]byte("buffer-bucket-capacity"))
	slotAutoOpenBuckets  = plume.BytesToBytes32([]byte("buffer-auto-open-buckets"))
	slotInstantPaused    = plume.BytesToBytes32([]byte("buffer-instant-paused"))
	slotFeeRecipientAddr = plume.BytesToBytes32([]byte("buffer-fee-recipient"))
)

// Service holds the liquidity buffer that backs instant unstakes and
// withdrawal fulfillment, plus the policy knobs that govern both.
type Service struct {
	withheld        *storage.BigInt
	instantUnstaked *storage.BigInt

	withholdRatio  *storage.Uint64
	instantFee     *storage.Uint64
	standardFee    *storage.Uint64
	instantUtil    *storage.Uint64
	penalty        *storage.Uint64
	minStake       *storage.BigInt
	cooldown       *storage.Uint64
	bucketWindow   *storage.Uint64
	bucketCapacity *storage.Uint64
	autoOpen       *storage.Uint64
	instantPaused  *storage.Uint64
	feeRecipient   *storage.Value[plume.Address]
}

func New(sctx *storage.Context) *Service {
	return &Service{
		withheld:        storage.NewBigInt(sctx, slotWithheld),
		instantUnstaked: storage.NewBigInt(sctx, slotInstantUnstaked),
		withholdRatio:   storage.NewUint64(sctx, slotWithholdRatio),
		instantFee:      storage.NewUint64(sctx, slotInstantFee),
		standardFee:     storage.NewUint64(sctx, slotStandardFee),
		instantUtil:     storage.NewUint64(sctx, slotInstantUtil),
		penalty:         storage.NewUint64(sctx, slotPenalty),
		minStake:        storage.NewBigInt(sctx, slotMinStake),
		cooldown:        storage.NewUint64(sctx, slotCooldown),
		bucketWindow:    storage.NewUint64(sctx, slotBucketWindow),
		bucketCapacity:  storage.NewUint64(sctx, slotBucketCapacity),
		autoOpen:        storage.NewUint64(sctx, slotAutoOpenBuckets),
		instantPaused:   storage.NewUint64(sctx, slotInstantPaused),
		feeRecipient:    storage.NewValue[plume.Address](sctx, slotFeeRecipientAddr),
	}
}

// Available returns the buffer's current balance.
func (s *Service) Available() (*big.Int, error) {
	return s.withheld.Get()
}

// Deposit credits the buffer.
func (s *Service) Deposit(amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	cur, err := s.withheld.Get()
	if err != nil {
		return err
	}
	return s.withheld.Set(new(big.Int).Add(cur, amount))
}

// Withdraw debits the buffer, failing when the balance cannot cover it.
func (s *Service) Withdraw(amount *big.Int) error {
	cur, err := s.withheld.Get()
	if err != nil {
		return err
	}
	if cur.Cmp(amount) < 0 {
		return reverts.ErrInsufficientLiquidity
	}
	return s.withheld.Set(new(big.Int).Sub(cur, amount))
}

// TotalInstantUnstaked returns the running total routed through the
// instant path since genesis.
func (s *Service) TotalInstantUnstaked() (*big.Int, error) {
	return s.instantUnstaked.Get()
}

// CheckInstant verifies the instant path may serve amount: the path must
// not be paused, the buffer must cover the payout, and the cumulative
// instant volume including this amount may not exceed instantUtilBps of
// all outstanding exit volume (queued plus instant). On success the caller
// debits via Withdraw and records via RecordInstant.
func (s *Service) CheckInstant(amount, outstanding *big.Int) error {
	paused, err := s.instantPaused.Get()
	if err != nil {
		return err
	}
	if paused != 0 {
		return reverts.ErrInstantPaused
	}
	cur, err := s.withheld.Get()
	if err != nil {
		return err
	}
	if cur.Cmp(amount) < 0 {
		return reverts.ErrInsufficientLiquidity
	}
	utilBps, err := s.instantUtil.Get()
	if err != nil {
		return err
	}
	if utilBps < plume.BpsDenominator {
		total, err := s.instantUnstaked.Get()
		if err != nil {
			return err
		}
		total.Add(total, amount)
		base := new(big.Int).Add(outstanding, total)
		lhs := new(big.Int).Mul(total, new(big.Int).SetUint64(plume.BpsDenominator))
		rhs := new(big.Int).Mul(base, new(big.Int).SetUint64(utilBps))
		if lhs.Cmp(rhs) > 0 {
			return reverts.ErrInstantCapExceeded
		}
	}
	return nil
}

// RecordInstant bumps the instant-unstake running total.
func (s *Service) RecordInstant(amount *big.Int) error {
	cur, err := s.instantUnstaked.Get()
	if err != nil {
		return err
	}
	return s.instantUnstaked.Set(new(big.Int).Add(cur, amount))
}
