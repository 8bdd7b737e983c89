// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package buffer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumenetwork/plume/kv"
	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/storage"
)

func newService(t *testing.T) *Service {
	t.Helper()
	s := New(storage.NewContext(kv.NewMem()))
	require.NoError(t, s.Initialize())
	return s
}

func TestInitializeDefaults(t *testing.T) {
	s := newService(t)
	cfg, err := s.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, plume.InitialMinStake, cfg.MinStake)
	assert.Equal(t, plume.DefaultCooldownPeriod, cfg.CooldownPeriod)
	assert.Equal(t, plume.DefaultBucketWindow, cfg.BucketWindow)
	assert.Equal(t, uint32(1), cfg.BucketCapacity)
	assert.Equal(t, plume.BpsDenominator, cfg.InstantUtilBps)
	assert.False(t, cfg.AutoOpenBuckets)
	assert.False(t, cfg.InstantPaused)
}

func TestInitializeKeepsSetValues(t *testing.T) {
	s := newService(t)
	require.NoError(t, s.SetCooldownPeriod(3600))
	require.NoError(t, s.Initialize())

	cfg, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(3600), cfg.CooldownPeriod)
}

func TestDepositWithdraw(t *testing.T) {
	s := newService(t)

	require.NoError(t, s.Deposit(big.NewInt(100)))
	avail, err := s.Available()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), avail)

	err = s.Withdraw(big.NewInt(150))
	assert.ErrorIs(t, err, reverts.ErrInsufficientLiquidity)

	require.NoError(t, s.Withdraw(big.NewInt(100)))
	avail, err = s.Available()
	require.NoError(t, err)
	assert.Equal(t, int64(0), avail.Int64())
}

func TestCheckInstantPaused(t *testing.T) {
	s := newService(t)
	require.NoError(t, s.Deposit(big.NewInt(100)))
	require.NoError(t, s.SetInstantPaused(true))

	err := s.CheckInstant(big.NewInt(10), big.NewInt(0))
	assert.ErrorIs(t, err, reverts.ErrInstantPaused)

	require.NoError(t, s.SetInstantPaused(false))
	assert.NoError(t, s.CheckInstant(big.NewInt(10), big.NewInt(0)))
}

func TestCheckInstantLiquidity(t *testing.T) {
	s := newService(t)
	require.NoError(t, s.Deposit(big.NewInt(100)))

	err := s.CheckInstant(big.NewInt(200), big.NewInt(0))
	assert.ErrorIs(t, err, reverts.ErrInsufficientLiquidity)
}

func TestCheckInstantUtilizationCap(t *testing.T) {
	s := newService(t)
	require.NoError(t, s.Deposit(big.NewInt(100)))
	require.NoError(t, s.SetInstantUtil(2500)) // instant exits may carry 25% of all exit volume

	// 25 of (75 queued + 25 instant) sits exactly on the cap
	assert.NoError(t, s.CheckInstant(big.NewInt(25), big.NewInt(75)))
	err := s.CheckInstant(big.NewInt(26), big.NewInt(75))
	assert.ErrorIs(t, err, reverts.ErrInstantCapExceeded)

	// the cap tracks cumulative instant volume, not single calls
	require.NoError(t, s.RecordInstant(big.NewInt(25)))
	err = s.CheckInstant(big.NewInt(1), big.NewInt(75))
	assert.ErrorIs(t, err, reverts.ErrInstantCapExceeded)
}

func TestRecordInstant(t *testing.T) {
	s := newService(t)
	require.NoError(t, s.RecordInstant(big.NewInt(10)))
	require.NoError(t, s.RecordInstant(big.NewInt(5)))

	total, err := s.TotalInstantUnstaked()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(15), total)
}

func TestSetterBounds(t *testing.T) {
	s := newService(t)

	assert.ErrorIs(t, s.SetWithholdRatio(10_001), reverts.ErrInvalidConfig)
	assert.ErrorIs(t, s.SetInstantFee(10_001), reverts.ErrInvalidConfig)
	assert.ErrorIs(t, s.SetStandardFee(10_001), reverts.ErrInvalidConfig)
	assert.ErrorIs(t, s.SetPenalty(10_001), reverts.ErrInvalidConfig)
	assert.ErrorIs(t, s.SetCooldownPeriod(0), reverts.ErrInvalidConfig)
	assert.ErrorIs(t, s.SetBucketCapacity(0), reverts.ErrInvalidConfig)
	assert.ErrorIs(t, s.SetMinStake(big.NewInt(-1)), reverts.ErrInvalidConfig)

	assert.NoError(t, s.SetWithholdRatio(10_000))
	assert.NoError(t, s.SetPenalty(0))
}

func TestFeeRecipientRoundtrip(t *testing.T) {
	s := newService(t)
	addr := plume.BytesToAddress([]byte("fees"))
	require.NoError(t, s.SetFeeRecipient(addr))

	cfg, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, addr, cfg.FeeRecipient)
}
