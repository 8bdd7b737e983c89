// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plumenetwork/plume/kv"
	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/ledger"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/token"
)

const (
	day  = uint64(24 * 3600)
	year = uint64(365 * 24 * 3600)
)

var (
	admin    = plume.BytesToAddress([]byte("admin"))
	operator = plume.BytesToAddress([]byte("operator"))
	feeAddr  = plume.BytesToAddress([]byte("fees"))
	alice    = plume.BytesToAddress([]byte("alice"))
	bob      = plume.BytesToAddress([]byte("bob"))
	carol    = plume.BytesToAddress([]byte("carol"))
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), plume.Precision)
}

type testSource struct {
	validators []registry.Validator
}

func (s *testSource) Validators() ([]registry.Validator, error) {
	return s.validators, nil
}

// newTestMinter builds an engine over an in-memory store with one active
// validator, a one-year 5% lockup option, a 5% early-exit penalty, a 10%
// withhold ratio and four bucket slots.
func newTestMinter(t *testing.T) *Minter {
	return newMinterWithBuckets(t, 4)
}

func newMinterWithBuckets(t *testing.T, bucketSlots int) *Minter {
	t.Helper()

	source := &testSource{validators: []registry.Validator{
		{ID: 1, TotalStaked: new(big.Int), Active: true, AddedAt: 1},
	}}
	auth := NewStaticAuthorizer([]plume.Address{admin}, []plume.Address{operator})

	m, err := New(kv.NewMem(), source, auth)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	require.NoError(t, m.SetLockupOptions(admin, []ledger.LockupOption{
		{Duration: 90 * day, APYBps: 300},
		{Duration: year, APYBps: 500},
	}))
	require.NoError(t, m.SetPenalty(admin, 500))
	require.NoError(t, m.SetWithholdRatio(admin, 1000))
	require.NoError(t, m.SetFeeRecipient(admin, feeAddr))

	added, err := m.SyncValidators(operator)
	require.NoError(t, err)
	require.Equal(t, 1, added)
	require.NoError(t, m.AddBuckets(operator, 1, bucketSlots))
	return m
}

type TestFunc func(t *testing.T)

// TestSequence chains engine operations into one scenario.
type TestSequence struct {
	minter *Minter

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(minter *Minter) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), minter: minter}
}

func (ts *TestSequence) AddFunc(f TestFunc) *TestSequence {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.funcs = append(ts.funcs, f)
	return ts
}

func (ts *TestSequence) Mint(user plume.Address, amount *big.Int) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.minter.MintPLUME(admin, user, amount); err != nil {
			t.Fatalf("failed to mint for %s: %v", user, err)
		}
	})
}

func (ts *TestSequence) Stake(user plume.Address, amount *big.Int, lock, autoCompound, now uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.minter.Stake(user, 1, lock, amount, autoCompound, now); err != nil {
			t.Fatalf("failed to stake for %s: %v", user, err)
		}
		t.Logf("staked %s for %s", amount, user)
	})
}

func (ts *TestSequence) RequestUnstake(user plume.Address, amount *big.Int, now uint64, id *uint64, ready *uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		gotID, gotReady, err := ts.minter.RequestUnstake(user, amount, now)
		if err != nil {
			t.Fatalf("failed to request unstake for %s: %v", user, err)
		}
		if id != nil {
			*id = gotID
		}
		if ready != nil {
			*ready = gotReady
		}
		t.Logf("unstake %s requested for %s, ready at %d", amount, user, gotReady)
	})
}

func (ts *TestSequence) Sweep(validator registry.ID, now uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		swept, gained, err := ts.minter.SweepMaturedBuckets(operator, validator, now, 0)
		if err != nil {
			t.Fatalf("failed to sweep validator %d: %v", validator, err)
		}
		t.Logf("swept %d buckets, gained %s", swept, gained)
	})
}

func (ts *TestSequence) Fulfill(ids []uint64, now uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		processed, paid, err := ts.minter.FulfillRequests(operator, ids, now)
		if err != nil {
			t.Fatalf("failed to fulfill %v: %v", ids, err)
		}
		t.Logf("fulfilled %d requests, paid %s", processed, paid)
	})
}

func (ts *TestSequence) Run(t *testing.T) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, f := range ts.funcs {
		f(t)
	}
}

// poolInvariant checks that pool custody exactly equals the sum of every
// claim on it: the liquidity buffer, delegated principal, unswept bucket
// totals and all parked balances. users must name every account holding a
// parked balance.
func poolInvariant(t *testing.T, m *Minter, now uint64, users ...plume.Address) {
	t.Helper()

	bal, err := m.Balance(token.PLUME, PoolAddress)
	require.NoError(t, err)

	claims := new(big.Int)
	available, _, _, err := m.BufferState()
	require.NoError(t, err)
	claims.Add(claims, available)

	all, err := m.Validators()
	require.NoError(t, err)
	for _, v := range all {
		claims.Add(claims, v.TotalStaked)
		sum, err := m.BucketSummary(v.ID, now)
		require.NoError(t, err)
		claims.Add(claims, sum.AmountLocked)
	}
	for _, u := range users {
		acc, err := m.Account(u)
		require.NoError(t, err)
		claims.Add(claims, acc.Parked)
	}
	require.True(t, bal.Cmp(claims) == 0, "pool custody %s does not equal claims %s", bal, claims)
}
