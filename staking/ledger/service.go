// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/stakes"
	"github.com/plumenetwork/plume/staking/storage"
)

var (
	slotAccounts    = plume.BytesToBytes32([]byte("ledger-accounts"))
	slotTotalStaked = plume.BytesToBytes32([]byte("ledger-total-staked"))
	slotTotalParked = plume.BytesToBytes32([]byte("ledger-total-parked"))
	slotOptions     = plume.BytesToBytes32([]byte("ledger-lockup-options"))
)

// FoldGate approves folding compounded rewards into principal and earmarks
// the folded amount on the caller's side. A nil gate always approves.
type FoldGate func(validator registry.ID, amount *big.Int) error

// Service is the per-user stake/unstake state machine. Every mutating
// operation checkpoints reward accrual before touching principal, so elapsed
// time is never double-counted or lost.
type Service struct {
	accounts    *storage.Mapping[plume.Address, Account]
	totalStaked *storage.BigInt
	totalParked *storage.BigInt
	options     *storage.Value[[]LockupOption]
	fold        FoldGate
}

// New creates the ledger service over the given storage context.
func New(sctx *storage.Context, fold FoldGate) *Service {
	return &Service{
		accounts:    storage.NewMapping[plume.Address, Account](sctx, slotAccounts),
		totalStaked: storage.NewBigInt(sctx, slotTotalStaked),
		totalParked: storage.NewBigInt(sctx, slotTotalParked),
		options:     storage.NewValue[[]LockupOption](sctx, slotOptions),
		fold:        fold,
	}
}

// Account returns the user's ledger state, a zero account if never seen.
// Accounts are never deleted; zeroed balances persist.
func (s *Service) Account(user plume.Address) (*Account, error) {
	acc, err := s.accounts.Get(user)
	if err != nil {
		return nil, err
	}
	acc.normalize()
	return &acc, nil
}

func (s *Service) setAccount(user plume.Address, acc *Account) error {
	return s.accounts.Set(user, *acc)
}

// TotalStaked returns the sum of all active principal.
func (s *Service) TotalStaked() (*big.Int, error) {
	return s.totalStaked.Get()
}

func (s *Service) addTotalStaked(delta *big.Int) error {
	total, err := s.totalStaked.Get()
	if err != nil {
		return err
	}
	total.Add(total, delta)
	if total.Sign() < 0 {
		return errors.New("total staked underflow")
	}
	return s.totalStaked.Set(total)
}

// TotalParked returns the sum of all parked balances.
func (s *Service) TotalParked() (*big.Int, error) {
	return s.totalParked.Get()
}

func (s *Service) addTotalParked(delta *big.Int) error {
	total, err := s.totalParked.Get()
	if err != nil {
		return err
	}
	total.Add(total, delta)
	if total.Sign() < 0 {
		return errors.New("total parked underflow")
	}
	return s.totalParked.Set(total)
}

// SetOptions replaces the lockup option table. Existing stakes keep the
// rates locked in when they were created.
func (s *Service) SetOptions(opts []LockupOption) error {
	for _, opt := range opts {
		if opt.Duration == 0 {
			return reverts.ErrInvalidConfig
		}
	}
	return s.options.Set(opts)
}

// Options returns the configured lockup option table.
func (s *Service) Options() ([]LockupOption, error) {
	return s.options.Get()
}

// matchOption resolves a requested duration against the option table.
// Duration 0 is the sentinel for the longest configured option; anything
// else must match exactly.
func (s *Service) matchOption(duration uint64) (*LockupOption, error) {
	opts, err := s.options.Get()
	if err != nil {
		return nil, err
	}
	if duration == 0 {
		var longest *LockupOption
		for i := range opts {
			if longest == nil || opts[i].Duration > longest.Duration {
				longest = &opts[i]
			}
		}
		if longest == nil {
			return nil, reverts.ErrLockupNotAllowed
		}
		return longest, nil
	}
	for i := range opts {
		if opts[i].Duration == duration {
			return &opts[i], nil
		}
	}
	return nil, reverts.ErrLockupNotAllowed
}

// Park moves external funds into the withdrawable, non-earning balance.
func (s *Service) Park(user plume.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	acc, err := s.Account(user)
	if err != nil {
		return err
	}
	acc.Parked.Add(acc.Parked, amount)
	if err := s.setAccount(user, acc); err != nil {
		return err
	}
	return s.addTotalParked(amount)
}

// WithdrawParked releases parked funds back to the user.
func (s *Service) WithdrawParked(user plume.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	acc, err := s.Account(user)
	if err != nil {
		return err
	}
	if acc.Parked.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	acc.Parked.Sub(acc.Parked, amount)
	if err := s.setAccount(user, acc); err != nil {
		return err
	}
	return s.addTotalParked(new(big.Int).Neg(amount))
}

// Stake opens the user's single active locked position. The lock duration
// must exactly match a configured option (0 selects the longest); the
// auto-compound period, if set, must be a whole multiple of the compounding
// unit and no longer than the lock.
func (s *Service) Stake(
	user plume.Address,
	validator registry.ID,
	lockDuration uint64,
	amount *big.Int,
	autoCompoundPeriod uint64,
	minStake *big.Int,
	now uint64,
) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	if amount.Cmp(minStake) < 0 {
		return reverts.ErrBelowMinStake
	}
	acc, err := s.Account(user)
	if err != nil {
		return err
	}
	if acc.HasStake() {
		return reverts.ErrActiveStakeExists
	}
	opt, err := s.matchOption(lockDuration)
	if err != nil {
		return err
	}
	if autoCompoundPeriod != 0 {
		if autoCompoundPeriod%plume.CompoundingUnit != 0 || autoCompoundPeriod > opt.Duration {
			return reverts.ErrAutoCompoundPeriod
		}
	}

	acc.Stake = &Stake{
		Amount:          new(big.Int).Set(amount),
		StartTime:       now,
		LockDuration:    opt.Duration,
		RewardRate:      stakes.RatePerSecond(opt.APYBps),
		LastRewardClaim: now,
		Validator:       validator,
	}
	acc.AutoCompoundPeriod = autoCompoundPeriod
	if err := s.setAccount(user, acc); err != nil {
		return err
	}
	return s.addTotalStaked(amount)
}

// ExtendTime re-locks the active stake under a new duration. The new
// maturity may not come earlier than the current one; the start time resets
// to now and the rate is re-derived from the matched option.
func (s *Service) ExtendTime(user plume.Address, newLockDuration, now uint64) error {
	acc, err := s.Account(user)
	if err != nil {
		return err
	}
	if !acc.HasStake() {
		return reverts.ErrNoActiveStake
	}
	opt, err := s.matchOption(newLockDuration)
	if err != nil {
		return err
	}
	if now+opt.Duration < acc.Stake.StartTime+acc.Stake.LockDuration {
		return reverts.ErrShortenedMaturity
	}
	if _, err := s.checkpoint(acc, now); err != nil {
		return err
	}
	acc.Stake.StartTime = now
	acc.Stake.LockDuration = opt.Duration
	acc.Stake.RewardRate = stakes.RatePerSecond(opt.APYBps)
	if acc.AutoCompoundPeriod > opt.Duration {
		acc.AutoCompoundPeriod = 0
	}
	return s.setAccount(user, acc)
}

// ExtendAmount moves parked funds into the active stake. Accrual is
// checkpointed before the principal change so the added funds do not earn
// for already-elapsed time.
func (s *Service) ExtendAmount(user plume.Address, amount *big.Int, now uint64) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	acc, err := s.Account(user)
	if err != nil {
		return err
	}
	if !acc.HasStake() {
		return reverts.ErrNoActiveStake
	}
	if acc.Parked.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	if _, err := s.checkpoint(acc, now); err != nil {
		return err
	}
	acc.Parked.Sub(acc.Parked, amount)
	acc.Stake.Amount.Add(acc.Stake.Amount, amount)
	if err := s.setAccount(user, acc); err != nil {
		return err
	}
	if err := s.addTotalParked(new(big.Int).Neg(amount)); err != nil {
		return err
	}
	return s.addTotalStaked(amount)
}

// RequestUnstake slices amount out of the active stake and computes the
// time-proportional early-exit penalty. The caller queues the withdrawal
// request and then records its ID via SetPendingRequest.
func (s *Service) RequestUnstake(
	user plume.Address,
	amount *big.Int,
	penaltyBps uint64,
	now uint64,
) (penalty *big.Int, validator registry.ID, err error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, 0, reverts.ErrZeroAmount
	}
	acc, err := s.Account(user)
	if err != nil {
		return nil, 0, err
	}
	if !acc.HasStake() {
		return nil, 0, reverts.ErrNoActiveStake
	}
	if acc.PendingRequest != nil {
		return nil, 0, reverts.ErrActiveWithdrawalExists
	}
	if acc.Stake.Amount.Cmp(amount) < 0 {
		return nil, 0, reverts.ErrInsufficientBalance
	}
	if _, err := s.checkpoint(acc, now); err != nil {
		return nil, 0, err
	}

	stake := acc.Stake
	penalty = stakes.Penalty(amount, penaltyBps, stake.Remaining(now), stake.LockDuration)
	validator = stake.Validator

	stake.Amount.Sub(stake.Amount, amount)
	if stake.Amount.Sign() == 0 {
		acc.Stake = nil
	}
	if err := s.setAccount(user, acc); err != nil {
		return nil, 0, err
	}
	if err := s.addTotalStaked(new(big.Int).Neg(amount)); err != nil {
		return nil, 0, err
	}
	return penalty, validator, nil
}

// SetPendingRequest records the user's in-flight withdrawal request ID.
func (s *Service) SetPendingRequest(user plume.Address, id uint64) error {
	acc, err := s.Account(user)
	if err != nil {
		return err
	}
	if acc.PendingRequest != nil {
		return reverts.ErrActiveWithdrawalExists
	}
	acc.PendingRequest = &id
	return s.setAccount(user, acc)
}

// ClearPendingRequest removes the in-flight request marker once the request
// has been fully paid.
func (s *Service) ClearPendingRequest(user plume.Address) error {
	acc, err := s.Account(user)
	if err != nil {
		return err
	}
	acc.PendingRequest = nil
	return s.setAccount(user, acc)
}

// Checkpoint accrues rewards up to now. With auto-compounding enabled and
// due, the accrued reward folds into principal and is returned as
// compounded; otherwise it lands in the claimable accumulator and
// compounded is zero.
func (s *Service) Checkpoint(user plume.Address, now uint64) (compounded *big.Int, err error) {
	acc, err := s.Account(user)
	if err != nil {
		return nil, err
	}
	compounded, err = s.checkpoint(acc, now)
	if err != nil {
		return nil, err
	}
	return compounded, s.setAccount(user, acc)
}

func (s *Service) checkpoint(acc *Account, now uint64) (*big.Int, error) {
	compounded := new(big.Int)
	if !acc.HasStake() || now <= acc.Stake.LastRewardClaim {
		return compounded, nil
	}
	stake := acc.Stake
	reward := stakes.Accrued(stake.Amount, stake.RewardRate, stake.LastRewardClaim, now)
	elapsed := now - stake.LastRewardClaim

	if acc.AutoCompoundPeriod > 0 && elapsed >= acc.AutoCompoundPeriod {
		switch err := s.approveFold(stake.Validator, reward); {
		case err == nil:
			stake.Amount.Add(stake.Amount, reward)
			compounded.Set(reward)
			if err := s.addTotalStaked(reward); err != nil {
				return nil, err
			}
		case errors.Is(err, reverts.ErrInsufficientRewardFunds):
			// unbackable fold stays claimable instead of failing the op
			acc.RewardAccumulated.Add(acc.RewardAccumulated, reward)
		default:
			return nil, err
		}
	} else {
		acc.RewardAccumulated.Add(acc.RewardAccumulated, reward)
	}
	stake.LastRewardClaim = now
	return compounded, nil
}

// approveFold runs the fold gate; the gate earmarks amount when it
// approves.
func (s *Service) approveFold(validator registry.ID, amount *big.Int) error {
	if s.fold == nil {
		return nil
	}
	return s.fold(validator, amount)
}

// ClaimRewards checkpoints and drains the claimable accumulator. The caller
// pays the returned amount out of the reward pools.
func (s *Service) ClaimRewards(user plume.Address, now uint64) (*big.Int, error) {
	acc, err := s.Account(user)
	if err != nil {
		return nil, err
	}
	if _, err := s.checkpoint(acc, now); err != nil {
		return nil, err
	}
	claimed := new(big.Int).Set(acc.RewardAccumulated)
	acc.RewardAccumulated.SetInt64(0)
	return claimed, s.setAccount(user, acc)
}

// RestoreRewards returns a claim to the accumulator after a failed payout.
func (s *Service) RestoreRewards(user plume.Address, amount *big.Int) error {
	acc, err := s.Account(user)
	if err != nil {
		return err
	}
	acc.RewardAccumulated.Add(acc.RewardAccumulated, amount)
	return s.setAccount(user, acc)
}

// CompoundRewards checkpoints and folds the claimable accumulator into the
// active stake's principal. The fold gate must back the folded amount;
// explicit compounding fails outright when it cannot.
func (s *Service) CompoundRewards(user plume.Address, now uint64) (*big.Int, error) {
	acc, err := s.Account(user)
	if err != nil {
		return nil, err
	}
	if !acc.HasStake() {
		return nil, reverts.ErrNoActiveStake
	}
	if _, err := s.checkpoint(acc, now); err != nil {
		return nil, err
	}
	folded := new(big.Int).Set(acc.RewardAccumulated)
	if folded.Sign() == 0 {
		return folded, s.setAccount(user, acc)
	}
	if err := s.approveFold(acc.Stake.Validator, folded); err != nil {
		// keep the checkpoint; only the fold is refused
		if serr := s.setAccount(user, acc); serr != nil {
			return nil, serr
		}
		return nil, err
	}
	acc.RewardAccumulated.SetInt64(0)
	acc.Stake.Amount.Add(acc.Stake.Amount, folded)
	if err := s.setAccount(user, acc); err != nil {
		return nil, err
	}
	return folded, s.addTotalStaked(folded)
}
