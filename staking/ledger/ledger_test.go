// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumenetwork/plume/kv"
	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/storage"
)

const (
	day  = uint64(24 * 3600)
	year = uint64(365 * 24 * 3600)
)

var user = plume.BytesToAddress([]byte("user"))

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), plume.Precision)
}

func newService(t *testing.T) *Service {
	t.Helper()
	return newGatedService(t, nil)
}

func newGatedService(t *testing.T, fold FoldGate) *Service {
	t.Helper()
	s := New(storage.NewContext(kv.NewMem()), fold)
	require.NoError(t, s.SetOptions([]LockupOption{
		{Duration: 90 * day, APYBps: 300},
		{Duration: year, APYBps: 500},
	}))
	return s
}

func stakeTokens(t *testing.T, s *Service, amount int64, lock, autoCompound, now uint64) {
	t.Helper()
	require.NoError(t, s.Stake(user, 1, lock, tokens(amount), autoCompound, tokens(1), now))
}

func TestStakeValidation(t *testing.T) {
	s := newService(t)

	err := s.Stake(user, 1, year, new(big.Int), 0, tokens(1), 0)
	assert.ErrorIs(t, err, reverts.ErrZeroAmount)

	err = s.Stake(user, 1, year, big.NewInt(1), 0, tokens(1), 0)
	assert.ErrorIs(t, err, reverts.ErrBelowMinStake)

	err = s.Stake(user, 1, 17*day, tokens(10), 0, tokens(1), 0)
	assert.ErrorIs(t, err, reverts.ErrLockupNotAllowed)

	// auto-compound period must be a whole multiple of the compounding unit
	err = s.Stake(user, 1, year, tokens(10), 45*day, tokens(1), 0)
	assert.ErrorIs(t, err, reverts.ErrAutoCompoundPeriod)
	// and no longer than the lock
	err = s.Stake(user, 1, 90*day, tokens(10), 120*day, tokens(1), 0)
	assert.ErrorIs(t, err, reverts.ErrAutoCompoundPeriod)

	stakeTokens(t, s, 10, year, 0, 0)
	err = s.Stake(user, 1, year, tokens(10), 0, tokens(1), 0)
	assert.ErrorIs(t, err, reverts.ErrActiveStakeExists)
}

func TestStakeZeroSelectsLongestOption(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 10, 0, 0, 0)

	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.Equal(t, year, acc.Stake.LockDuration)

	total, err := s.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, tokens(10), total)
}

func TestParkAndWithdraw(t *testing.T) {
	s := newService(t)

	require.NoError(t, s.Park(user, tokens(5)))
	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.Equal(t, tokens(5), acc.Parked)

	err = s.WithdrawParked(user, tokens(6))
	assert.ErrorIs(t, err, reverts.ErrInsufficientBalance)

	require.NoError(t, s.WithdrawParked(user, tokens(5)))
	acc, err = s.Account(user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Parked.Int64())
}

func TestCheckpointAccumulates(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, year, 0, 0)

	compounded, err := s.Checkpoint(user, year)
	require.NoError(t, err)
	assert.Equal(t, int64(0), compounded.Int64())

	acc, err := s.Account(user)
	require.NoError(t, err)
	// one year at 5%: just below 50 tokens after truncation
	assert.True(t, acc.RewardAccumulated.Cmp(tokens(50)) <= 0)
	assert.True(t, acc.RewardAccumulated.Cmp(tokens(49)) > 0)
	// principal untouched without auto-compounding
	assert.Equal(t, tokens(1000), acc.Stake.Amount)
}

func TestCheckpointAutoCompoundBoundary(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, year, 90*day, 0)

	// one second short of the period: accumulate, don't fold
	compounded, err := s.Checkpoint(user, 90*day-1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), compounded.Int64())
	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.True(t, acc.RewardAccumulated.Sign() > 0)
	assert.Equal(t, tokens(1000), acc.Stake.Amount)

	s2 := newService(t)
	stakeTokens(t, s2, 1000, year, 90*day, 0)

	// exactly at the period boundary the reward folds into principal
	compounded, err = s2.Checkpoint(user, 90*day)
	require.NoError(t, err)
	assert.True(t, compounded.Sign() > 0)
	acc, err = s2.Account(user)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.RewardAccumulated.Int64())
	expected := new(big.Int).Add(tokens(1000), compounded)
	assert.Equal(t, expected, acc.Stake.Amount)

	// total staked tracks the fold
	total, err := s2.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, expected, total)
}

func TestExtendTime(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, 90*day, 0, 0)

	// re-locking under a shorter maturity is rejected late in the lock
	err := s.ExtendTime(user, 90*day, 0)
	require.NoError(t, err) // same maturity from t=0 is fine

	s2 := newService(t)
	stakeTokens(t, s2, 1000, year, 0, 0)
	err = s2.ExtendTime(user, 90*day, 0)
	assert.ErrorIs(t, err, reverts.ErrShortenedMaturity)

	// extending re-derives the rate and resets the start
	require.NoError(t, s.ExtendTime(user, year, 30*day))
	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.Equal(t, uint64(30*day), acc.Stake.StartTime)
	assert.Equal(t, year, acc.Stake.LockDuration)
	// the first 30 days accrued at the old rate before the switch
	assert.True(t, acc.RewardAccumulated.Sign() > 0)
}

func TestExtendTimeDropsOversizedAutoCompound(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, year, 180*day, 0)

	require.NoError(t, s.ExtendTime(user, 90*day, year-90*day))
	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), acc.AutoCompoundPeriod)
}

func TestExtendAmount(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, year, 0, 0)
	require.NoError(t, s.Park(user, tokens(500)))

	err := s.ExtendAmount(user, tokens(600), 30*day)
	assert.ErrorIs(t, err, reverts.ErrInsufficientBalance)

	require.NoError(t, s.ExtendAmount(user, tokens(500), 30*day))
	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.Equal(t, tokens(1500), acc.Stake.Amount)
	assert.Equal(t, int64(0), acc.Parked.Int64())
	// accrual was checkpointed before the principal change
	assert.True(t, acc.RewardAccumulated.Sign() > 0)
	assert.Equal(t, uint64(30*day), acc.Stake.LastRewardClaim)

	total, err := s.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, tokens(1500), total)
}

func TestRequestUnstakePenalty(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, year, 0, 0)

	// full exit at t=0 carries the flat 5% penalty
	penalty, validator, err := s.RequestUnstake(user, tokens(1000), 500, 0)
	require.NoError(t, err)
	assert.Equal(t, tokens(50), penalty)
	assert.Equal(t, uint64(1), uint64(validator))

	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.False(t, acc.HasStake())

	total, err := s.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, int64(0), total.Int64())
}

func TestRequestUnstakeMaturedNoPenalty(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, year, 0, 0)

	penalty, _, err := s.RequestUnstake(user, tokens(400), 500, year)
	require.NoError(t, err)
	assert.Equal(t, int64(0), penalty.Int64())

	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.Equal(t, tokens(600), acc.Stake.Amount)
}

func TestRequestUnstakeGuards(t *testing.T) {
	s := newService(t)

	_, _, err := s.RequestUnstake(user, tokens(1), 500, 0)
	assert.ErrorIs(t, err, reverts.ErrNoActiveStake)

	stakeTokens(t, s, 10, year, 0, 0)
	_, _, err = s.RequestUnstake(user, tokens(11), 500, 0)
	assert.ErrorIs(t, err, reverts.ErrInsufficientBalance)

	// a recorded pending request blocks further unstakes
	require.NoError(t, s.SetPendingRequest(user, 7))
	_, _, err = s.RequestUnstake(user, tokens(1), 500, 0)
	assert.ErrorIs(t, err, reverts.ErrActiveWithdrawalExists)

	err = s.SetPendingRequest(user, 8)
	assert.ErrorIs(t, err, reverts.ErrActiveWithdrawalExists)

	require.NoError(t, s.ClearPendingRequest(user))
	_, _, err = s.RequestUnstake(user, tokens(1), 500, 0)
	require.NoError(t, err)
}

func TestClaimAndRestoreRewards(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, year, 0, 0)

	claimed, err := s.ClaimRewards(user, year)
	require.NoError(t, err)
	assert.True(t, claimed.Sign() > 0)

	// accumulator drained
	again, err := s.ClaimRewards(user, year)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Int64())

	// a failed payout puts the claim back
	require.NoError(t, s.RestoreRewards(user, claimed))
	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.Equal(t, claimed, acc.RewardAccumulated)
}

func TestCompoundRewards(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, year, 0, 0)

	folded, err := s.CompoundRewards(user, 180*day)
	require.NoError(t, err)
	assert.True(t, folded.Sign() > 0)

	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Add(tokens(1000), folded), acc.Stake.Amount)
	assert.Equal(t, int64(0), acc.RewardAccumulated.Int64())

	total, err := s.TotalStaked()
	require.NoError(t, err)
	assert.Equal(t, acc.Stake.Amount, total)
}

func refuseFold(registry.ID, *big.Int) error {
	return reverts.ErrInsufficientRewardFunds
}

func TestCompoundRewardsGateRefused(t *testing.T) {
	s := newGatedService(t, refuseFold)
	stakeTokens(t, s, 1000, year, 0, 0)

	_, err := s.CompoundRewards(user, 180*day)
	assert.ErrorIs(t, err, reverts.ErrInsufficientRewardFunds)

	// the checkpoint survives; only the fold was refused
	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.True(t, acc.RewardAccumulated.Sign() > 0)
	assert.Equal(t, tokens(1000), acc.Stake.Amount)
	assert.Equal(t, uint64(180*day), acc.Stake.LastRewardClaim)
}

func TestCheckpointAutoCompoundGateRefused(t *testing.T) {
	s := newGatedService(t, refuseFold)
	stakeTokens(t, s, 1000, year, 90*day, 0)

	// the unbackable fold stays claimable instead of failing the checkpoint
	compounded, err := s.Checkpoint(user, 90*day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), compounded.Int64())

	acc, err := s.Account(user)
	require.NoError(t, err)
	assert.True(t, acc.RewardAccumulated.Sign() > 0)
	assert.Equal(t, tokens(1000), acc.Stake.Amount)
}

func TestTotalParked(t *testing.T) {
	s := newService(t)
	stakeTokens(t, s, 1000, year, 0, 0)

	require.NoError(t, s.Park(user, tokens(5)))
	total, err := s.TotalParked()
	require.NoError(t, err)
	assert.Equal(t, tokens(5), total)

	require.NoError(t, s.WithdrawParked(user, tokens(2)))
	total, err = s.TotalParked()
	require.NoError(t, err)
	assert.Equal(t, tokens(3), total)

	// folding parked funds into the stake releases their parked claim
	require.NoError(t, s.ExtendAmount(user, tokens(3), 30*day))
	total, err = s.TotalParked()
	require.NoError(t, err)
	assert.Equal(t, int64(0), total.Int64())
}
