// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/ledger"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/token"
)

func (m *Minter) admin(caller plume.Address, op string, fn func() error) (err error) {
	if err := m.auth.Authorize(caller, CapAdmin); err != nil {
		return err
	}
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave(op, &err)
	err = fn()
	if err == nil {
		logger.Info("parameter changed", "op", op, "caller", caller)
	}
	return err
}

// SetLockupOptions replaces the lockup option table. Existing stakes keep
// their locked-in rates.
func (m *Minter) SetLockupOptions(caller plume.Address, opts []ledger.LockupOption) error {
	return m.admin(caller, "set_lockup_options", func() error {
		return m.ledger.SetOptions(opts)
	})
}

// AddValidator registers a validator directly, bypassing the sync source.
func (m *Minter) AddValidator(caller plume.Address, v registry.Validator) error {
	return m.admin(caller, "add_validator", func() error {
		return m.registry.Add(v)
	})
}

// SetWithholdRatio sets the slice of each stake retained in the buffer.
func (m *Minter) SetWithholdRatio(caller plume.Address, bps uint64) error {
	return m.admin(caller, "set_withhold_ratio", func() error {
		return m.buffer.SetWithholdRatio(bps)
	})
}

// SetInstantFee sets the instant unstake fee.
func (m *Minter) SetInstantFee(caller plume.Address, bps uint64) error {
	return m.admin(caller, "set_instant_fee", func() error {
		return m.buffer.SetInstantFee(bps)
	})
}

// SetStandardFee sets the standard fulfillment fee.
func (m *Minter) SetStandardFee(caller plume.Address, bps uint64) error {
	return m.admin(caller, "set_standard_fee", func() error {
		return m.buffer.SetStandardFee(bps)
	})
}

// SetInstantUtil caps the share of all outstanding exit volume the
// instant path may carry.
func (m *Minter) SetInstantUtil(caller plume.Address, bps uint64) error {
	return m.admin(caller, "set_instant_util", func() error {
		return m.buffer.SetInstantUtil(bps)
	})
}

// SetPenalty sets the early-withdrawal penalty rate.
func (m *Minter) SetPenalty(caller plume.Address, bps uint64) error {
	return m.admin(caller, "set_penalty", func() error {
		return m.buffer.SetPenalty(bps)
	})
}

// SetMinStake sets the minimum stake amount.
func (m *Minter) SetMinStake(caller plume.Address, amount *big.Int) error {
	return m.admin(caller, "set_min_stake", func() error {
		return m.buffer.SetMinStake(amount)
	})
}

// SetCooldownPeriod sets the unstake cooldown in seconds.
func (m *Minter) SetCooldownPeriod(caller plume.Address, seconds uint64) error {
	return m.admin(caller, "set_cooldown", func() error {
		return m.buffer.SetCooldownPeriod(seconds)
	})
}

// SetBucketWindow sets the maturity bucket width in seconds.
func (m *Minter) SetBucketWindow(caller plume.Address, seconds uint64) error {
	return m.admin(caller, "set_bucket_window", func() error {
		return m.buffer.SetBucketWindow(seconds)
	})
}

// SetBucketCapacity sets the request capacity of one bucket slot.
func (m *Minter) SetBucketCapacity(caller plume.Address, capacity uint32) error {
	return m.admin(caller, "set_bucket_capacity", func() error {
		return m.buffer.SetBucketCapacity(capacity)
	})
}

// SetAutoOpenBuckets toggles bucket auto-provisioning on overflow.
func (m *Minter) SetAutoOpenBuckets(caller plume.Address, on bool) error {
	return m.admin(caller, "set_auto_open_buckets", func() error {
		return m.buffer.SetAutoOpenBuckets(on)
	})
}

// SetInstantPaused toggles the instant unstake path.
func (m *Minter) SetInstantPaused(caller plume.Address, paused bool) error {
	return m.admin(caller, "set_instant_paused", func() error {
		return m.buffer.SetInstantPaused(paused)
	})
}

// SetFeeRecipient sets the address credited with fees and penalties.
func (m *Minter) SetFeeRecipient(caller plume.Address, addr plume.Address) error {
	return m.admin(caller, "set_fee_recipient", func() error {
		return m.buffer.SetFeeRecipient(addr)
	})
}

// FundRewards mints pUSD into the reward pool.
func (m *Minter) FundRewards(caller plume.Address, amount *big.Int) error {
	return m.admin(caller, "fund_rewards", func() error {
		return m.tokens.Mint(token.PUSD, RewardPoolAddress, amount)
	})
}

// MintPLUME credits newly issued PLUME to an address. Genesis funding and
// reward surplus top-ups go through here.
func (m *Minter) MintPLUME(caller plume.Address, to plume.Address, amount *big.Int) error {
	return m.admin(caller, "mint_plume", func() error {
		return m.tokens.Mint(token.PLUME, to, amount)
	})
}
