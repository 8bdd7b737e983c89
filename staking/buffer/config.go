// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package buffer

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/reverts"
)

// Config is the snapshot of all policy parameters, used by views and the
// admin surface.
type Config struct {
	WithholdRatioBps uint64
	InstantFeeBps    uint64
	StandardFeeBps   uint64
	InstantUtilBps   uint64
	PenaltyBps       uint64
	MinStake         *big.Int
	CooldownPeriod   uint64
	BucketWindow     uint64
	BucketCapacity   uint32
	AutoOpenBuckets  bool
	InstantPaused    bool
	FeeRecipient     plume.Address
}

// Initialize seeds every unset parameter with its default. Safe to call on
// every startup; set slots keep their values.
func (s *Service) Initialize() error {
	min, err := s.minStake.Get()
	if err != nil {
		return err
	}
	if min.Sign() == 0 {
		if err := s.minStake.Set(plume.InitialMinStake); err != nil {
			return err
		}
	}
	cd, err := s.cooldown.Get()
	if err != nil {
		return err
	}
	if cd == 0 {
		if err := s.cooldown.Set(plume.DefaultCooldownPeriod); err != nil {
			return err
		}
	}
	win, err := s.bucketWindow.Get()
	if err != nil {
		return err
	}
	if win == 0 {
		if err := s.bucketWindow.Set(plume.DefaultBucketWindow); err != nil {
			return err
		}
	}
	capacity, err := s.bucketCapacity.Get()
	if err != nil {
		return err
	}
	if capacity == 0 {
		if err := s.bucketCapacity.Set(1); err != nil {
			return err
		}
	}
	util, err := s.instantUtil.Get()
	if err != nil {
		return err
	}
	if util == 0 {
		if err := s.instantUtil.Set(plume.BpsDenominator); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot reads every parameter at once.
func (s *Service) Snapshot() (*Config, error) {
	cfg := &Config{}
	var err error
	if cfg.WithholdRatioBps, err = s.withholdRatio.Get(); err != nil {
		return nil, err
	}
	if cfg.InstantFeeBps, err = s.instantFee.Get(); err != nil {
		return nil, err
	}
	if cfg.StandardFeeBps, err = s.standardFee.Get(); err != nil {
		return nil, err
	}
	if cfg.InstantUtilBps, err = s.instantUtil.Get(); err != nil {
		return nil, err
	}
	if cfg.PenaltyBps, err = s.penalty.Get(); err != nil {
		return nil, err
	}
	if cfg.MinStake, err = s.minStake.Get(); err != nil {
		return nil, err
	}
	if cfg.CooldownPeriod, err = s.cooldown.Get(); err != nil {
		return nil, err
	}
	if cfg.BucketWindow, err = s.bucketWindow.Get(); err != nil {
		return nil, err
	}
	capacity, err := s.bucketCapacity.Get()
	if err != nil {
		return nil, err
	}
	cfg.BucketCapacity = uint32(capacity)
	auto, err := s.autoOpen.Get()
	if err != nil {
		return nil, err
	}
	cfg.AutoOpenBuckets = auto != 0
	paused, err := s.instantPaused.Get()
	if err != nil {
		return nil, err
	}
	cfg.InstantPaused = paused != 0
	if cfg.FeeRecipient, err = s.feeRecipient.Get(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkBps(v uint64) error {
	if v > plume.BpsDenominator {
		return reverts.ErrInvalidConfig
	}
	return nil
}

// SetWithholdRatio sets the fraction of each stake retained in the buffer.
func (s *Service) SetWithholdRatio(bps uint64) error {
	if err := checkBps(bps); err != nil {
		return err
	}
	return s.withholdRatio.Set(bps)
}

// SetInstantFee sets the fee charged on the instant unstake path.
func (s *Service) SetInstantFee(bps uint64) error {
	if err := checkBps(bps); err != nil {
		return err
	}
	return s.instantFee.Set(bps)
}

// SetStandardFee sets the fee charged on standard fulfillment.
func (s *Service) SetStandardFee(bps uint64) error {
	if err := checkBps(bps); err != nil {
		return err
	}
	return s.standardFee.Set(bps)
}

// SetInstantUtil caps the share of all outstanding exit volume the
// instant path may carry. BpsDenominator disables the cap.
func (s *Service) SetInstantUtil(bps uint64) error {
	if err := checkBps(bps); err != nil {
		return err
	}
	return s.instantUtil.Set(bps)
}

// SetPenalty sets the early-withdrawal penalty rate.
func (s *Service) SetPenalty(bps uint64) error {
	if err := checkBps(bps); err != nil {
		return err
	}
	return s.penalty.Set(bps)
}

// SetMinStake sets the minimum stake amount.
func (s *Service) SetMinStake(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return reverts.ErrInvalidConfig
	}
	return s.minStake.Set(amount)
}

// SetCooldownPeriod sets the unstake cooldown in seconds.
func (s *Service) SetCooldownPeriod(seconds uint64) error {
	if seconds == 0 {
		return reverts.ErrInvalidConfig
	}
	return s.cooldown.Set(seconds)
}

// SetBucketWindow sets the maturity bucket width in seconds.
func (s *Service) SetBucketWindow(seconds uint64) error {
	return s.bucketWindow.Set(seconds)
}

// SetBucketCapacity sets the request capacity of one bucket slot.
func (s *Service) SetBucketCapacity(capacity uint32) error {
	if capacity == 0 {
		return reverts.ErrInvalidConfig
	}
	return s.bucketCapacity.Set(uint64(capacity))
}

// SetAutoOpenBuckets toggles bucket auto-provisioning on overflow.
func (s *Service) SetAutoOpenBuckets(on bool) error {
	var v uint64
	if on {
		v = 1
	}
	return s.autoOpen.Set(v)
}

// SetInstantPaused toggles the instant unstake path.
func (s *Service) SetInstantPaused(paused bool) error {
	var v uint64
	if paused {
		v = 1
	}
	return s.instantPaused.Set(v)
}

// SetFeeRecipient sets the address credited with fees and penalties.
func (s *Service) SetFeeRecipient(addr plume.Address) error {
	return s.feeRecipient.Set(addr)
}
