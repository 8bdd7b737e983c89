// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package buckets

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumenetwork/plume/kv"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/storage"
)

func newService() *Service {
	return New(storage.NewContext(kv.NewMem()))
}

func TestMaturityAlignment(t *testing.T) {
	// maturity rounds up to the next window boundary
	assert.Equal(t, uint64(1100), maturityFor(1000, 100, 50))
	assert.Equal(t, uint64(1150), maturityFor(1001, 100, 50))
	// zero window disables alignment
	assert.Equal(t, uint64(1101), maturityFor(1001, 100, 0))
}

func TestAssignSharesWindow(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 1))

	// two requests rounding up to the same boundary land in one bucket
	idx1, mat1, err := s.Assign(1, big.NewInt(100), 1001, 100, 50, 2, false)
	require.NoError(t, err)
	idx2, mat2, err := s.Assign(1, big.NewInt(200), 1010, 100, 50, 2, false)
	require.NoError(t, err)

	assert.Equal(t, idx1, idx2)
	assert.Equal(t, mat1, mat2)
	assert.Equal(t, uint64(1150), mat1)

	list, err := s.Buckets(1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, big.NewInt(300), list[0].Total)
	assert.Equal(t, uint32(2), list[0].Requests)
}

func TestAssignRespectsCooldown(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 1))

	// a request landing on an exact boundary fixes the bucket there
	_, mat, err := s.Assign(1, big.NewInt(100), 1000, 100, 50, 2, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1100), mat)

	// a later request may not join it: maturity 1100 would cut its
	// cooldown short, and the single slot leaves nowhere else to go
	_, _, err = s.Assign(1, big.NewInt(100), 1010, 100, 50, 2, false)
	assert.ErrorIs(t, err, reverts.ErrNoBucketCapacity)
}

func TestSwept(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 1))

	idx, mat, err := s.Assign(1, big.NewInt(100), 1000, 100, 50, 1, false)
	require.NoError(t, err)

	swept, err := s.Swept(1, idx)
	require.NoError(t, err)
	assert.False(t, swept)

	_, _, err = s.SweepMatured(1, mat, 16)
	require.NoError(t, err)

	swept, err = s.Swept(1, idx)
	require.NoError(t, err)
	assert.True(t, swept)

	_, err = s.Swept(1, idx+1)
	assert.Error(t, err)
}

func TestAssignCapacityExhausted(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 2))

	// two buckets, capacity one each: the third request has nowhere to go
	_, _, err := s.Assign(1, big.NewInt(100), 1000, 100, 50, 1, false)
	require.NoError(t, err)
	_, _, err = s.Assign(1, big.NewInt(100), 1000, 100, 50, 1, false)
	require.NoError(t, err)
	_, _, err = s.Assign(1, big.NewInt(100), 1000, 100, 50, 1, false)
	assert.ErrorIs(t, err, reverts.ErrNoBucketCapacity)
}

func TestAssignAutoOpen(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 2))

	for range 2 {
		_, _, err := s.Assign(1, big.NewInt(100), 1000, 100, 50, 1, true)
		require.NoError(t, err)
	}
	idx, _, err := s.Assign(1, big.NewInt(100), 1000, 100, 50, 1, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), idx)

	list, err := s.Buckets(1)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestAssignZeroAmount(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 1))
	_, _, err := s.Assign(1, big.NewInt(0), 1000, 100, 50, 1, false)
	assert.ErrorIs(t, err, reverts.ErrZeroAmount)
}

func TestSweepIdempotent(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 2))

	_, mat, err := s.Assign(1, big.NewInt(100), 1000, 100, 50, 1, false)
	require.NoError(t, err)
	_, _, err = s.Assign(1, big.NewInt(200), 1000, 100, 50, 1, false)
	require.NoError(t, err)

	// nothing matured yet
	swept, gained, err := s.SweepMatured(1, mat-1, 16)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
	assert.Equal(t, int64(0), gained.Int64())

	swept, gained, err = s.SweepMatured(1, mat, 16)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)
	assert.Equal(t, big.NewInt(300), gained)

	// repeating the sweep with the same clock gains nothing
	swept, gained, err = s.SweepMatured(1, mat, 16)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
	assert.Equal(t, int64(0), gained.Int64())
}

func TestSweepBound(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 3))
	for range 3 {
		_, _, err := s.Assign(1, big.NewInt(100), 1000, 100, 50, 1, false)
		require.NoError(t, err)
	}

	swept, _, err := s.SweepMatured(1, 2000, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	swept, _, err = s.SweepMatured(1, 2000, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
}

func TestRelease(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 1))

	idx, _, err := s.Assign(1, big.NewInt(300), 1000, 100, 50, 2, false)
	require.NoError(t, err)

	require.NoError(t, s.Release(1, idx, big.NewInt(300)))
	list, err := s.Buckets(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), list[0].Total.Int64())
	assert.Equal(t, uint32(0), list[0].Requests)

	// releasing from a swept bucket is a no-op
	idx, mat, err := s.Assign(1, big.NewInt(100), 1000, 100, 50, 2, false)
	require.NoError(t, err)
	_, _, err = s.SweepMatured(1, mat, 16)
	require.NoError(t, err)
	require.NoError(t, s.Release(1, idx, big.NewInt(100)))
}

func TestSummarize(t *testing.T) {
	s := newService()
	require.NoError(t, s.Add(1, 2))

	_, mat, err := s.Assign(1, big.NewInt(100), 1000, 100, 50, 1, false)
	require.NoError(t, err)
	_, _, err = s.Assign(1, big.NewInt(200), 1200, 100, 50, 1, false)
	require.NoError(t, err)

	sum, err := s.Summarize(1, mat)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalBuckets)
	assert.Equal(t, 1, sum.MaturedUnswept)
	assert.Equal(t, big.NewInt(300), sum.AmountLocked)

	// sweeping the matured bucket moves its amount out of the locked total
	_, _, err = s.SweepMatured(1, mat, 16)
	require.NoError(t, err)
	sum, err = s.Summarize(1, mat)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.MaturedUnswept)
	assert.Equal(t, big.NewInt(200), sum.AmountLocked)
}
