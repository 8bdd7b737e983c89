// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/fulfill"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/stakes"
	"github.com/plumenetwork/plume/staking/token"
)

// SweepMaturedBuckets releases up to maxSweep matured buckets of a
// validator into the liquidity buffer. Idempotent: swept buckets are never
// revisited. maxSweep <= 0 uses the default bound.
func (m *Minter) SweepMaturedBuckets(caller plume.Address, validator registry.ID, now uint64, maxSweep int) (swept int, gained *big.Int, err error) {
	if err := m.auth.Authorize(caller, CapOperator); err != nil {
		return 0, nil, err
	}
	if err := m.enter(); err != nil {
		return 0, nil, err
	}
	defer m.leave("sweep_buckets", &err)

	if maxSweep <= 0 {
		maxSweep = plume.DefaultMaxSweep
	}
	swept, gained, err = m.buckets.SweepMatured(validator, now, maxSweep)
	if err != nil {
		return 0, nil, err
	}
	if swept == 0 {
		return 0, gained, nil
	}
	if err := m.buffer.Deposit(gained); err != nil {
		return 0, nil, err
	}
	logger.Info("buckets swept", "validator", validator, "swept", swept, "gained", gained)
	m.publish(BucketSweptEvent{Validator: validator, Swept: swept, Amount: new(big.Int).Set(gained)})
	return swept, gained, nil
}

// payRequest builds the settlement callback shared by both fulfillment
// modes: the gross leaves the buffer, the penalty slice plus the standard
// fee go to the fee recipient, and the rest lands in the user's parked
// balance.
func (m *Minter) payRequest(feeBps uint64, feeRecipient plume.Address) fulfill.PayFn {
	return func(req *fulfill.Request, gross, penalty *big.Int) error {
		if err := m.buffer.Withdraw(gross); err != nil {
			return err
		}
		fee := stakes.Fee(gross, feeBps)
		charge := new(big.Int).Add(penalty, fee)
		if charge.Cmp(gross) > 0 {
			charge.Set(gross)
		}
		net := new(big.Int).Sub(gross, charge)
		if charge.Sign() > 0 {
			if err := m.tokens.Transfer(token.PLUME, PoolAddress, feeRecipient, charge); err != nil {
				return err
			}
		}
		if net.Sign() > 0 {
			if err := m.ledger.Park(req.User, net); err != nil {
				return err
			}
		}
		remaining := new(big.Int).Sub(req.Amount, gross)
		if remaining.Sign() == 0 {
			if err := m.ledger.ClearPendingRequest(req.User); err != nil {
				return err
			}
		}
		m.publish(RequestFulfilledEvent{
			User:      req.User,
			RequestID: req.ID,
			Gross:     new(big.Int).Set(gross),
			Net:       net,
			Remaining: remaining,
		})
		return nil
	}
}

// FulfillRequests fills the given requests whole, first-in-first-out,
// against the current buffer balance. Fulfillment stops at the first
// request the buffer cannot cover in full. Returns how many requests were
// filled and the gross total paid.
func (m *Minter) FulfillRequests(caller plume.Address, ids []uint64, now uint64) (processed int, paid *big.Int, err error) {
	if err := m.auth.Authorize(caller, CapOperator); err != nil {
		return 0, nil, err
	}
	if err := m.enter(); err != nil {
		return 0, nil, err
	}
	defer m.leave("fulfill_fifo", &err)

	cfg, err := m.buffer.Snapshot()
	if err != nil {
		return 0, nil, err
	}
	budget, err := m.buffer.Available()
	if err != nil {
		return 0, nil, err
	}
	processed, paid, err = m.fulfill.FulfillFIFO(ids, now, budget, m.payRequest(cfg.StandardFeeBps, cfg.FeeRecipient))
	if err != nil {
		return processed, paid, err
	}
	logger.Info("requests fulfilled", "mode", "fifo", "processed", processed, "paid", paid)
	return processed, paid, nil
}

// FulfillProRata splits the current buffer balance across the given
// requests proportionally to their remaining amounts, partially filling
// each when the buffer cannot cover them all. Returns the gross amount
// spent and the number of requests touched.
func (m *Minter) FulfillProRata(caller plume.Address, ids []uint64, now uint64) (spent *big.Int, processed int, err error) {
	if err := m.auth.Authorize(caller, CapOperator); err != nil {
		return nil, 0, err
	}
	if err := m.enter(); err != nil {
		return nil, 0, err
	}
	defer m.leave("fulfill_pro_rata", &err)

	cfg, err := m.buffer.Snapshot()
	if err != nil {
		return nil, 0, err
	}
	budget, err := m.buffer.Available()
	if err != nil {
		return nil, 0, err
	}
	spent, processed, err = m.fulfill.FulfillProRata(ids, now, budget, m.payRequest(cfg.StandardFeeBps, cfg.FeeRecipient))
	if err != nil {
		return spent, processed, err
	}
	logger.Info("requests fulfilled", "mode", "pro-rata", "processed", processed, "spent", spent)
	return spent, processed, nil
}

// AddBuckets provisions count empty bucket slots for a validator.
func (m *Minter) AddBuckets(caller plume.Address, validator registry.ID, count int) (err error) {
	if err := m.auth.Authorize(caller, CapOperator); err != nil {
		return err
	}
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave("add_buckets", &err)

	if _, err := m.registry.Get(validator); err != nil {
		return err
	}
	return m.buckets.Add(validator, count)
}

// SyncValidators pulls the external registry and appends validators
// missing from the local cache. Returns how many were added.
func (m *Minter) SyncValidators(caller plume.Address) (added int, err error) {
	if err := m.auth.Authorize(caller, CapOperator); err != nil {
		return 0, err
	}
	if err := m.enter(); err != nil {
		return 0, err
	}
	defer m.leave("sync_validators", &err)

	added, err = m.registry.Sync(m.validator)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		logger.Info("validators synced", "added", added)
	}
	return added, nil
}
