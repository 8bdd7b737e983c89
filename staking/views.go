// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/buckets"
	"github.com/plumenetwork/plume/staking/buffer"
	"github.com/plumenetwork/plume/staking/fulfill"
	"github.com/plumenetwork/plume/staking/ledger"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/stakes"
	"github.com/plumenetwork/plume/staking/token"
)

// Account returns the user's ledger state.
func (m *Minter) Account(user plume.Address) (*ledger.Account, error) {
	return m.ledger.Account(user)
}

// PendingRewards returns what a checkpoint at now would credit, plus the
// already accumulated claimable amount. Read-only.
func (m *Minter) PendingRewards(user plume.Address, now uint64) (*big.Int, error) {
	acc, err := m.ledger.Account(user)
	if err != nil {
		return nil, err
	}
	pending := new(big.Int).Set(acc.RewardAccumulated)
	if acc.HasStake() {
		s := acc.Stake
		pending.Add(pending, stakes.Accrued(s.Amount, s.RewardRate, s.LastRewardClaim, now))
	}
	return pending, nil
}

// Balance returns an address's balance of one token.
func (m *Minter) Balance(t token.Token, addr plume.Address) (*big.Int, error) {
	return m.tokens.Balance(t, addr)
}

// TotalStaked returns the sum of all active principal.
func (m *Minter) TotalStaked() (*big.Int, error) {
	return m.ledger.TotalStaked()
}

// LockupOptions returns the configured lockup option table.
func (m *Minter) LockupOptions() ([]ledger.LockupOption, error) {
	return m.ledger.Options()
}

// Validators returns all cached validators in insertion order.
func (m *Minter) Validators() ([]*registry.Validator, error) {
	return m.registry.All()
}

// Validator returns one cached validator snapshot.
func (m *Minter) Validator(id registry.ID) (*registry.Validator, error) {
	return m.registry.Get(id)
}

// Request returns one withdrawal request.
func (m *Minter) Request(id uint64) (*fulfill.Request, error) {
	return m.fulfill.Get(id)
}

// PendingRequests returns the open request IDs in arrival order.
func (m *Minter) PendingRequests() ([]uint64, error) {
	return m.fulfill.Pending()
}

// BucketSummary reports a validator's bucket availability.
func (m *Minter) BucketSummary(validator registry.ID, now uint64) (*buckets.Summary, error) {
	return m.buckets.Summarize(validator, now)
}

// Buckets returns a validator's bucket list, oldest first.
func (m *Minter) Buckets(validator registry.ID) ([]buckets.Bucket, error) {
	return m.buckets.Buckets(validator)
}

// Config returns the current policy parameters.
func (m *Minter) Config() (*buffer.Config, error) {
	return m.buffer.Snapshot()
}

// BufferState reports the liquidity buffer balance, the gross amount owed
// to open withdrawal requests and the running instant-unstake total.
func (m *Minter) BufferState() (available, outstanding, instantTotal *big.Int, err error) {
	if available, err = m.buffer.Available(); err != nil {
		return nil, nil, nil, err
	}
	if outstanding, err = m.fulfill.TotalOutstanding(); err != nil {
		return nil, nil, nil, err
	}
	if instantTotal, err = m.buffer.TotalInstantUnstaked(); err != nil {
		return nil, nil, nil, err
	}
	return available, outstanding, instantTotal, nil
}

// StakeInfo reports the engine-wide aggregates: principal delegated across
// validators, amounts cooling in unswept buckets and the buffer balance.
func (m *Minter) StakeInfo(now uint64) (*registry.StakeInfo, error) {
	staked, err := m.ledger.TotalStaked()
	if err != nil {
		return nil, err
	}
	parked, err := m.buffer.Available()
	if err != nil {
		return nil, err
	}
	cooling := new(big.Int)
	all, err := m.registry.All()
	if err != nil {
		return nil, err
	}
	for _, v := range all {
		sum, err := m.buckets.Summarize(v.ID, now)
		if err != nil {
			return nil, err
		}
		cooling.Add(cooling, sum.AmountLocked)
	}
	return &registry.StakeInfo{
		Staked:  staked,
		Cooling: cooling,
		Parked:  parked,
	}, nil
}
