// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package buckets

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/storage"
)

var slotBuckets = plume.BytesToBytes32([]byte("buckets-by-validator"))

// Service schedules unstaked amounts into per-validator maturity buckets.
// Requests landing inside the same window share one maturity timestamp, so
// the operator sweeps a handful of buckets instead of one entry per request.
type Service struct {
	byValidator *storage.Mapping[registry.ID, []Bucket]
}

func New(sctx *storage.Context) *Service {
	return &Service{
		byValidator: storage.NewMapping[registry.ID, []Bucket](sctx, slotBuckets),
	}
}

// Buckets returns a copy of the validator's bucket list, oldest first.
func (s *Service) Buckets(validator registry.ID) ([]Bucket, error) {
	list, err := s.byValidator.Get(validator)
	if err != nil {
		return nil, err
	}
	out := make([]Bucket, len(list))
	copy(out, list)
	return out, nil
}

// Add appends count empty bucket slots to the validator's list.
func (s *Service) Add(validator registry.ID, count int) error {
	if count <= 0 {
		return reverts.ErrZeroAmount
	}
	list, err := s.byValidator.Get(validator)
	if err != nil {
		return err
	}
	for range count {
		list = append(list, Bucket{Total: new(big.Int)})
	}
	return s.byValidator.Set(validator, list)
}

// maturityFor aligns now+cooldown up to the next window boundary. Every
// request made inside one window lands on the same timestamp.
func maturityFor(now, cooldown, window uint64) uint64 {
	earliest := now + cooldown
	if window == 0 {
		return earliest
	}
	if rem := earliest % window; rem != 0 {
		earliest += window - rem
	}
	return earliest
}

// Assign places amount into the earliest bucket that can take it and
// returns the bucket's index and maturity time. An unused slot gets its
// maturity fixed on first use. When every slot is full the call either
// appends a fresh bucket (autoOpen) or fails with ErrNoBucketCapacity.
func (s *Service) Assign(
	validator registry.ID,
	amount *big.Int,
	now, cooldown, window uint64,
	capacity uint32,
	autoOpen bool,
) (uint32, uint64, error) {
	if amount.Sign() <= 0 {
		return 0, 0, reverts.ErrZeroAmount
	}
	list, err := s.byValidator.Get(validator)
	if err != nil {
		return 0, 0, err
	}

	maturity := maturityFor(now, cooldown, window)

	pick := -1
	for i := range list {
		if list[i].Open(maturity, capacity) {
			pick = i
			break
		}
	}
	if pick < 0 {
		if !autoOpen {
			return 0, 0, reverts.ErrNoBucketCapacity
		}
		list = append(list, Bucket{Total: new(big.Int)})
		pick = len(list) - 1
	}

	b := &list[pick]
	if b.MaturityTime == 0 {
		b.MaturityTime = maturity
	}
	if b.Total == nil {
		b.Total = new(big.Int)
	}
	b.Total = new(big.Int).Add(b.Total, amount)
	b.Requests++

	if err := s.byValidator.Set(validator, list); err != nil {
		return 0, 0, err
	}
	return uint32(pick), b.MaturityTime, nil
}

// Swept reports whether a bucket has already been swept into the buffer.
func (s *Service) Swept(validator registry.ID, index uint32) (bool, error) {
	list, err := s.byValidator.Get(validator)
	if err != nil {
		return false, err
	}
	if int(index) >= len(list) {
		return false, errors.Errorf("bucket index %d out of range for validator %d", index, validator)
	}
	return list[index].Swept, nil
}

// Release backs amount out of a bucket after its request leaves the queue
// through a path other than a sweep, such as a self-service unstake.
func (s *Service) Release(validator registry.ID, index uint32, amount *big.Int) error {
	list, err := s.byValidator.Get(validator)
	if err != nil {
		return err
	}
	if int(index) >= len(list) {
		return errors.Errorf("bucket index %d out of range for validator %d", index, validator)
	}
	b := &list[index]
	if b.Swept {
		// funds already moved on sweep; the record stays for audit
		return nil
	}
	if b.Total == nil || b.Total.Cmp(amount) < 0 || b.Requests == 0 {
		return errors.Errorf("bucket %d of validator %d underflows on release", index, validator)
	}
	b.Total = new(big.Int).Sub(b.Total, amount)
	b.Requests--
	return s.byValidator.Set(validator, list)
}

// SweepMatured marks up to maxSweep matured buckets as swept and returns
// how many were swept along with their combined amount. Already swept
// buckets are skipped, so repeating the call with the same clock gains
// nothing.
func (s *Service) SweepMatured(validator registry.ID, now uint64, maxSweep int) (int, *big.Int, error) {
	list, err := s.byValidator.Get(validator)
	if err != nil {
		return 0, nil, err
	}

	swept := 0
	gained := new(big.Int)
	for i := range list {
		if swept >= maxSweep {
			break
		}
		b := &list[i]
		if b.Swept || !b.Matured(now) {
			continue
		}
		b.Swept = true
		if b.Total != nil {
			gained.Add(gained, b.Total)
		}
		swept++
	}
	if swept == 0 {
		return 0, gained, nil
	}
	if err := s.byValidator.Set(validator, list); err != nil {
		return 0, nil, err
	}
	return swept, gained, nil
}

// Summarize reports the validator's bucket availability without mutating
// anything.
func (s *Service) Summarize(validator registry.ID, now uint64) (*Summary, error) {
	list, err := s.byValidator.Get(validator)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		TotalBuckets: len(list),
		AmountLocked: new(big.Int),
	}
	for i := range list {
		b := &list[i]
		if b.Swept {
			continue
		}
		if b.Matured(now) {
			sum.MaturedUnswept++
		}
		if b.Total != nil {
			sum.AmountLocked.Add(sum.AmountLocked, b.Total)
		}
	}
	return sum, nil
}
