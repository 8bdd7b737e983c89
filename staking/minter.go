// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking is the facade over the staking engine: the token ledger,
// the validator registry cache, the per-user stake ledger, the maturity
// bucket scheduler, the liquidity buffer and the withdrawal request book.
// All mutating entry points run under a single-flight guard and take an
// explicit unix-seconds clock.
package staking

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/event"

	"github.com/plumenetwork/plume/kv"
	"github.com/plumenetwork/plume/log"
	"github.com/plumenetwork/plume/metrics"
	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/buckets"
	"github.com/plumenetwork/plume/staking/buffer"
	"github.com/plumenetwork/plume/staking/fulfill"
	"github.com/plumenetwork/plume/staking/ledger"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/stakes"
	"github.com/plumenetwork/plume/staking/storage"
	"github.com/plumenetwork/plume/staking/token"
)

var logger = log.WithContext("pkg", "staking")

var metricOps = metrics.LazyLoadCounterVec("staking_operation_total", []string{"op", "status"})

// Custody addresses. PoolAddress holds all PLUME under management, staked
// principal and buffer alike; RewardPoolAddress holds reward funding.
var (
	PoolAddress       = plume.BytesToAddress([]byte("staking-pool-custody"))
	RewardPoolAddress = plume.BytesToAddress([]byte("staking-reward-pool"))
)

// Minter is the staking engine facade.
type Minter struct {
	tokens    *token.Ledger
	registry  *registry.Service
	ledger    *ledger.Service
	buckets   *buckets.Service
	buffer    *buffer.Service
	fulfill   *fulfill.Service
	auth      Authorizer
	validator registry.Source

	busy  atomic.Bool
	feed  event.Feed
	scope event.SubscriptionScope
}

// New builds the engine over the given store. source is the external
// validator registry pulled by SyncValidators; auth gates the operator and
// admin surfaces.
func New(store kv.GetPutter, source registry.Source, auth Authorizer) (*Minter, error) {
	// Namespace the engine's keys so the store can be shared.
	sctx := storage.NewContext(kv.Bucket("stk:").NewGetPutter(store))
	m := &Minter{
		tokens:    token.NewLedger(sctx),
		registry:  registry.New(sctx),
		buckets:   buckets.New(sctx),
		buffer:    buffer.New(sctx),
		fulfill:   fulfill.New(sctx),
		auth:      auth,
		validator: source,
	}
	// Folded rewards become principal, so the ledger asks the engine to
	// back them out of the pool's surplus before it folds.
	m.ledger = ledger.New(sctx, m.backCompound)
	if err := m.buffer.Initialize(); err != nil {
		return nil, err
	}
	return m, nil
}

// SubscribeEvents delivers staking events to ch until unsubscribed.
func (m *Minter) SubscribeEvents(ch chan<- Notification) event.Subscription {
	return m.scope.Track(m.feed.Subscribe(ch))
}

// Close tears down all event subscriptions.
func (m *Minter) Close() {
	m.scope.Close()
}

func (m *Minter) publish(e Event) {
	m.feed.Send(Notification{Event: e})
}

// enter takes the single-flight guard. Nested or concurrent mutating calls
// fail instead of interleaving partially written state.
func (m *Minter) enter() error {
	if !m.busy.CompareAndSwap(false, true) {
		return reverts.ErrReentrancy
	}
	return nil
}

func (m *Minter) leave(op string, err *error) {
	m.busy.Store(false)
	status := "ok"
	if *err != nil {
		status = "err"
	}
	metricOps().AddWithLabel(1, map[string]string{"op": op, "status": status})
}

// Park moves amount of the user's PLUME into their parked balance, held in
// pool custody but withdrawable at any time.
func (m *Minter) Park(user plume.Address, amount *big.Int) (err error) {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave("park", &err)

	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	if err := m.tokens.Transfer(token.PLUME, user, PoolAddress, amount); err != nil {
		return err
	}
	if err := m.ledger.Park(user, amount); err != nil {
		return err
	}
	m.publish(ParkedEvent{User: user, Amount: new(big.Int).Set(amount)})
	return nil
}

// WithdrawParked releases amount of the user's parked balance back to their
// own token balance.
func (m *Minter) WithdrawParked(user plume.Address, amount *big.Int) (err error) {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave("withdraw_parked", &err)

	if err := m.ledger.WithdrawParked(user, amount); err != nil {
		return err
	}
	if err := m.tokens.Transfer(token.PLUME, PoolAddress, user, amount); err != nil {
		return err
	}
	m.publish(ParkedWithdrawnEvent{User: user, Amount: new(big.Int).Set(amount)})
	return nil
}

// Stake opens the user's locked position with a validator. A slice of the
// amount set by the withhold ratio stays in the liquidity buffer; the rest
// is delegated. lockDuration must match a configured option, 0 selecting
// the longest one.
func (m *Minter) Stake(
	user plume.Address,
	validator registry.ID,
	lockDuration uint64,
	amount *big.Int,
	autoCompoundPeriod uint64,
	now uint64,
) (err error) {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave("stake", &err)

	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	v, err := m.registry.Get(validator)
	if err != nil {
		return err
	}
	if !v.Active {
		return reverts.ErrUnknownValidator
	}
	bal, err := m.tokens.Balance(token.PLUME, user)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	cfg, err := m.buffer.Snapshot()
	if err != nil {
		return err
	}
	// The ledger validates before it writes; tokens move only once the
	// stake is accepted, so a rejection never strands user funds.
	if err := m.ledger.Stake(user, validator, lockDuration, amount, autoCompoundPeriod, cfg.MinStake, now); err != nil {
		return err
	}
	if err := m.tokens.Transfer(token.PLUME, user, PoolAddress, amount); err != nil {
		return err
	}
	withheld, delegated := stakes.Split(amount, cfg.WithholdRatioBps)
	if err := m.buffer.Deposit(withheld); err != nil {
		return err
	}
	if err := m.registry.AddTotalStaked(validator, delegated); err != nil {
		return err
	}
	logger.Debug("stake opened", "user", user, "validator", validator, "amount", amount, "lock", lockDuration)
	m.publish(StakedEvent{
		User:      user,
		Validator: validator,
		Amount:    new(big.Int).Set(amount),
		Lock:      lockDuration,
		Time:      now,
	})
	return nil
}

// ExtendTime re-locks the user's stake under a new duration without
// touching principal. The new maturity may not come earlier than the
// current one.
func (m *Minter) ExtendTime(user plume.Address, newLockDuration, now uint64) (err error) {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave("extend_time", &err)
	return m.ledger.ExtendTime(user, newLockDuration, now)
}

// ExtendAmount moves parked funds into the user's active stake. The same
// withhold split as Stake applies to the added amount.
func (m *Minter) ExtendAmount(user plume.Address, amount *big.Int, now uint64) (err error) {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.leave("extend_amount", &err)

	acc, err := m.ledger.Account(user)
	if err != nil {
		return err
	}
	if !acc.HasStake() {
		return reverts.ErrNoActiveStake
	}
	validator := acc.Stake.Validator
	cfg, err := m.buffer.Snapshot()
	if err != nil {
		return err
	}
	if err := m.ledger.ExtendAmount(user, amount, now); err != nil {
		return err
	}
	withheld, delegated := stakes.Split(amount, cfg.WithholdRatioBps)
	if err := m.buffer.Deposit(withheld); err != nil {
		return err
	}
	if err := m.registry.AddTotalStaked(validator, delegated); err != nil {
		return err
	}
	m.publish(StakedEvent{
		User:      user,
		Validator: validator,
		Amount:    new(big.Int).Set(amount),
		Time:      now,
	})
	return nil
}

// releaseEarmarks backs a queued exit of amount out of the earmarks that
// covered it: delegated principal first, then the buffer for the withheld
// slice that never reached the validator. Keeps the pool's claims in step
// with the bucket the amount moves into.
func (m *Minter) releaseEarmarks(validator registry.ID, amount *big.Int) error {
	v, err := m.registry.Get(validator)
	if err != nil {
		return err
	}
	removed := new(big.Int).Set(amount)
	if v.TotalStaked.Cmp(removed) < 0 {
		removed.Set(v.TotalStaked)
	}
	if removed.Sign() > 0 {
		if err := m.registry.AddTotalStaked(validator, new(big.Int).Neg(removed)); err != nil {
			return err
		}
	}
	if shortfall := new(big.Int).Sub(amount, removed); shortfall.Sign() > 0 {
		return m.buffer.Withdraw(shortfall)
	}
	return nil
}

// RequestUnstake slices amount out of the active stake into a maturity
// bucket. Returns the request ID and the bucket's maturity time. An
// early exit accrues a time-proportional penalty collected when the
// request pays out.
func (m *Minter) RequestUnstake(user plume.Address, amount *big.Int, now uint64) (id uint64, readyTime uint64, err error) {
	if err := m.enter(); err != nil {
		return 0, 0, err
	}
	defer m.leave("request_unstake", &err)

	acc, err := m.ledger.Account(user)
	if err != nil {
		return 0, 0, err
	}
	if !acc.HasStake() {
		return 0, 0, reverts.ErrNoActiveStake
	}
	if acc.PendingRequest != nil {
		return 0, 0, reverts.ErrActiveWithdrawalExists
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, 0, reverts.ErrZeroAmount
	}
	if acc.Stake.Amount.Cmp(amount) < 0 {
		return 0, 0, reverts.ErrInsufficientBalance
	}
	cfg, err := m.buffer.Snapshot()
	if err != nil {
		return 0, 0, err
	}

	validator := acc.Stake.Validator
	// An exit larger than the delegated total draws the difference from
	// the buffer; verify coverage before any state moves.
	v, err := m.registry.Get(validator)
	if err != nil {
		return 0, 0, err
	}
	if v.TotalStaked.Cmp(amount) < 0 {
		shortfall := new(big.Int).Sub(amount, v.TotalStaked)
		avail, err := m.buffer.Available()
		if err != nil {
			return 0, 0, err
		}
		if avail.Cmp(shortfall) < 0 {
			return 0, 0, reverts.ErrInsufficientLiquidity
		}
	}
	bucketIndex, readyTime, err := m.buckets.Assign(
		validator, amount, now,
		cfg.CooldownPeriod, cfg.BucketWindow,
		cfg.BucketCapacity, cfg.AutoOpenBuckets,
	)
	if err != nil {
		return 0, 0, err
	}

	penalty, _, err := m.ledger.RequestUnstake(user, amount, cfg.PenaltyBps, now)
	if err != nil {
		return 0, 0, err
	}
	if err := m.releaseEarmarks(validator, amount); err != nil {
		return 0, 0, err
	}

	id, err = m.fulfill.Enqueue(&fulfill.Request{
		User:             user,
		Validator:        validator,
		Amount:           new(big.Int).Set(amount),
		PenaltyRemaining: penalty,
		RequestedAt:      now,
		ReadyTime:        readyTime,
		BucketIndex:      bucketIndex,
	})
	if err != nil {
		return 0, 0, err
	}
	if err := m.ledger.SetPendingRequest(user, id); err != nil {
		return 0, 0, err
	}
	logger.Debug("unstake requested", "user", user, "request", id, "amount", amount, "ready", readyTime)
	m.publish(UnstakeRequestedEvent{
		User:      user,
		Validator: validator,
		RequestID: id,
		Amount:    new(big.Int).Set(amount),
		Penalty:   new(big.Int).Set(penalty),
		ReadyTime: readyTime,
	})
	return id, readyTime, nil
}

// InstantUnstake exits amount immediately against the liquidity buffer,
// paying the instant fee on top of any early-exit penalty. Returns the net
// amount delivered to the user.
func (m *Minter) InstantUnstake(user plume.Address, amount *big.Int, now uint64) (net *big.Int, err error) {
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer m.leave("instant_unstake", &err)

	if amount == nil || amount.Sign() <= 0 {
		return nil, reverts.ErrZeroAmount
	}
	outstanding, err := m.fulfill.TotalOutstanding()
	if err != nil {
		return nil, err
	}
	if err := m.buffer.CheckInstant(amount, outstanding); err != nil {
		return nil, err
	}
	cfg, err := m.buffer.Snapshot()
	if err != nil {
		return nil, err
	}

	penalty, validator, err := m.ledger.RequestUnstake(user, amount, cfg.PenaltyBps, now)
	if err != nil {
		return nil, err
	}
	// The buffer alone pays the exit. The delegated total stays put so
	// exactly one earmark covers the amount leaving custody; later queued
	// exits reconcile it through their buffer shortfall.
	if err := m.buffer.Withdraw(amount); err != nil {
		return nil, err
	}
	if err := m.buffer.RecordInstant(amount); err != nil {
		return nil, err
	}

	fee := stakes.Fee(amount, cfg.InstantFeeBps)
	charge := new(big.Int).Add(penalty, fee)
	if charge.Cmp(amount) > 0 {
		charge.Set(amount)
	}
	net = new(big.Int).Sub(amount, charge)
	if charge.Sign() > 0 {
		if err := m.tokens.Transfer(token.PLUME, PoolAddress, cfg.FeeRecipient, charge); err != nil {
			return nil, err
		}
	}
	if net.Sign() > 0 {
		if err := m.tokens.Transfer(token.PLUME, PoolAddress, user, net); err != nil {
			return nil, err
		}
	}
	logger.Debug("instant unstake", "user", user, "amount", amount, "net", net)
	m.publish(InstantUnstakedEvent{
		User:      user,
		Validator: validator,
		Amount:    new(big.Int).Set(amount),
		Fee:       fee,
		Penalty:   penalty,
		Net:       new(big.Int).Set(net),
	})
	return net, nil
}

// Unstake settles the user's matured withdrawal request directly against
// the buffer, without waiting for operator fulfillment. Returns the net
// amount delivered.
func (m *Minter) Unstake(user plume.Address, now uint64) (net *big.Int, err error) {
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer m.leave("unstake", &err)

	acc, err := m.ledger.Account(user)
	if err != nil {
		return nil, err
	}
	if acc.PendingRequest == nil {
		return nil, reverts.ErrNoPendingWithdrawal
	}
	req, err := m.fulfill.Get(*acc.PendingRequest)
	if err != nil {
		return nil, err
	}
	if !req.Ready(now) {
		return nil, reverts.ErrCooldownActive
	}
	cfg, err := m.buffer.Snapshot()
	if err != nil {
		return nil, err
	}
	// Before a sweep the bucket's earmark pays the exit; after one the
	// funds sit in the buffer, so that is what gets debited.
	swept, err := m.buckets.Swept(req.Validator, req.BucketIndex)
	if err != nil {
		return nil, err
	}
	if swept {
		if err := m.buffer.Withdraw(req.Amount); err != nil {
			return nil, err
		}
	}

	fee := stakes.Fee(req.Amount, cfg.StandardFeeBps)
	charge := new(big.Int).Add(req.PenaltyRemaining, fee)
	if charge.Cmp(req.Amount) > 0 {
		charge.Set(req.Amount)
	}
	net = new(big.Int).Sub(req.Amount, charge)
	if charge.Sign() > 0 {
		if err := m.tokens.Transfer(token.PLUME, PoolAddress, cfg.FeeRecipient, charge); err != nil {
			return nil, err
		}
	}
	if net.Sign() > 0 {
		if err := m.tokens.Transfer(token.PLUME, PoolAddress, user, net); err != nil {
			return nil, err
		}
	}

	if _, err := m.fulfill.Remove(req.ID); err != nil {
		return nil, err
	}
	if err := m.buckets.Release(req.Validator, req.BucketIndex, req.Amount); err != nil {
		return nil, err
	}
	if err := m.ledger.ClearPendingRequest(user); err != nil {
		return nil, err
	}
	logger.Debug("self-service unstake", "user", user, "request", req.ID, "net", net)
	m.publish(UnstakedEvent{
		User:      user,
		RequestID: req.ID,
		Amount:    new(big.Int).Set(req.Amount),
		Net:       new(big.Int).Set(net),
	})
	return net, nil
}

// ClaimRewards checkpoints and pays out the user's accrued rewards, pUSD
// first and PLUME for the remainder. PLUME payouts come from the pool's
// surplus over principal and buffer obligations; when the pools cannot
// cover the claim it is restored untouched.
func (m *Minter) ClaimRewards(user plume.Address, now uint64) (paidPUSD, paidPLUME *big.Int, err error) {
	if err := m.enter(); err != nil {
		return nil, nil, err
	}
	defer m.leave("claim_rewards", &err)

	amount, err := m.ledger.ClaimRewards(user, now)
	if err != nil {
		return nil, nil, err
	}
	if amount.Sign() == 0 {
		return new(big.Int), new(big.Int), nil
	}

	restore := func() {
		if rerr := m.ledger.RestoreRewards(user, amount); rerr != nil {
			logger.Error("reward restore failed", "user", user, "amount", amount, "err", rerr)
		}
	}

	pusdBal, err := m.tokens.Balance(token.PUSD, RewardPoolAddress)
	if err != nil {
		restore()
		return nil, nil, err
	}
	paidPUSD = new(big.Int).Set(amount)
	if paidPUSD.Cmp(pusdBal) > 0 {
		paidPUSD.Set(pusdBal)
	}
	paidPLUME = new(big.Int).Sub(amount, paidPUSD)

	if paidPLUME.Sign() > 0 {
		surplus, serr := m.plumeSurplus()
		if serr != nil {
			restore()
			return nil, nil, serr
		}
		if surplus.Cmp(paidPLUME) < 0 {
			restore()
			return nil, nil, reverts.ErrInsufficientRewardFunds
		}
	}

	if paidPUSD.Sign() > 0 {
		if terr := m.tokens.Transfer(token.PUSD, RewardPoolAddress, user, paidPUSD); terr != nil {
			restore()
			return nil, nil, terr
		}
	}
	if paidPLUME.Sign() > 0 {
		if terr := m.tokens.Transfer(token.PLUME, PoolAddress, user, paidPLUME); terr != nil {
			restore()
			return nil, nil, terr
		}
	}
	m.publish(RewardsClaimedEvent{
		User:      user,
		Amount:    amount,
		PaidPUSD:  paidPUSD,
		PaidPLUME: paidPLUME,
	})
	return paidPUSD, paidPLUME, nil
}

// plumeSurplus is the pool's PLUME balance beyond every claim on it: the
// buffer, delegated totals, unswept bucket totals and parked balances.
// Only this slack may pay or back rewards.
func (m *Minter) plumeSurplus() (*big.Int, error) {
	bal, err := m.tokens.Balance(token.PLUME, PoolAddress)
	if err != nil {
		return nil, err
	}
	claims, err := m.buffer.Available()
	if err != nil {
		return nil, err
	}
	all, err := m.registry.All()
	if err != nil {
		return nil, err
	}
	for _, v := range all {
		claims.Add(claims, v.TotalStaked)
		sum, err := m.buckets.Summarize(v.ID, 0)
		if err != nil {
			return nil, err
		}
		claims.Add(claims, sum.AmountLocked)
	}
	parked, err := m.ledger.TotalParked()
	if err != nil {
		return nil, err
	}
	claims.Add(claims, parked)

	surplus := new(big.Int).Sub(bal, claims)
	if surplus.Sign() < 0 {
		surplus.SetInt64(0)
	}
	return surplus, nil
}

// backCompound earmarks folded rewards the same way a new stake's amount
// is earmarked. Folding without pool surplus would mint principal custody
// cannot pay, so it is refused.
func (m *Minter) backCompound(validator registry.ID, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	surplus, err := m.plumeSurplus()
	if err != nil {
		return err
	}
	if surplus.Cmp(amount) < 0 {
		return reverts.ErrInsufficientRewardFunds
	}
	cfg, err := m.buffer.Snapshot()
	if err != nil {
		return err
	}
	withheld, delegated := stakes.Split(amount, cfg.WithholdRatioBps)
	if err := m.buffer.Deposit(withheld); err != nil {
		return err
	}
	return m.registry.AddTotalStaked(validator, delegated)
}

// CompoundRewards folds the user's accrued rewards into their stake's
// principal.
func (m *Minter) CompoundRewards(user plume.Address, now uint64) (folded *big.Int, err error) {
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer m.leave("compound_rewards", &err)

	folded, err = m.ledger.CompoundRewards(user, now)
	if err != nil {
		return nil, err
	}
	if folded.Sign() > 0 {
		m.publish(RewardsCompoundedEvent{User: user, Amount: new(big.Int).Set(folded)})
	}
	return folded, nil
}
