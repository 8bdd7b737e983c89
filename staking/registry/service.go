// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/plumenetwork/plume/cache"
	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/storage"
)

var (
	slotValidators = plume.BytesToBytes32([]byte("registry-validators"))
	slotOrder      = plume.BytesToBytes32([]byte("registry-order"))
)

const snapshotCacheSize = 256

// Service is the validator registry adapter: a read-through cache of
// validator metadata keyed by ID, with a persisted insertion-order list so
// list-returning views iterate deterministically. Lookups by ID are O(1);
// the linear scan of the reference implementation is deliberately not
// reproduced.
type Service struct {
	validators *storage.Mapping[ID, Validator]
	order      *storage.Value[[]ID]

	snapshots *cache.LRU
}

// New creates the registry service over the given storage context.
func New(sctx *storage.Context) *Service {
	snapshots, err := cache.NewLRU(snapshotCacheSize)
	if err != nil {
		// cache size is a positive constant
		panic(err)
	}
	return &Service{
		validators: storage.NewMapping[ID, Validator](sctx, slotValidators),
		order:      storage.NewValue[[]ID](sctx, slotOrder),
		snapshots:  snapshots,
	}
}

// Add appends a validator to the cache. Adding an already-known ID is an
// error; Sync is the append-missing path.
func (s *Service) Add(v Validator) error {
	known, err := s.validators.Has(v.ID)
	if err != nil {
		return err
	}
	if known {
		return reverts.ErrValidatorExists
	}
	if v.TotalStaked == nil {
		v.TotalStaked = new(big.Int)
	}
	order, err := s.order.Get()
	if err != nil {
		return err
	}
	if err := s.validators.Set(v.ID, v); err != nil {
		return err
	}
	s.snapshots.Remove(v.ID)
	return s.order.Set(append(order, v.ID))
}

// Get returns the validator snapshot for the ID. Unknown IDs yield
// ErrUnknownValidator.
func (s *Service) Get(id ID) (*Validator, error) {
	loaded, err := s.snapshots.GetOrLoad(id, func(any) (any, error) {
		v, err := s.validators.Get(id)
		if err != nil {
			return nil, err
		}
		return &v, nil
	})
	if err != nil {
		return nil, err
	}
	v := loaded.(*Validator)
	if v.IsEmpty() {
		return nil, reverts.ErrUnknownValidator
	}
	// callers may mutate the returned snapshot
	cp := *v
	if v.TotalStaked != nil {
		cp.TotalStaked = new(big.Int).Set(v.TotalStaked)
	}
	return &cp, nil
}

// ByIndex returns the validator at the given insertion-order index.
func (s *Service) ByIndex(index int) (*Validator, error) {
	order, err := s.order.Get()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(order) {
		return nil, errors.New("validator index out of range")
	}
	return s.Get(order[index])
}

// Count returns the number of registered validators.
func (s *Service) Count() (int, error) {
	order, err := s.order.Get()
	if err != nil {
		return 0, err
	}
	return len(order), nil
}

// All returns all validators in insertion order.
func (s *Service) All() ([]*Validator, error) {
	order, err := s.order.Get()
	if err != nil {
		return nil, err
	}
	list := make([]*Validator, 0, len(order))
	for _, id := range order {
		v, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

// SetTotalStaked overwrites the delegated total of a validator.
func (s *Service) SetTotalStaked(id ID, total *big.Int) error {
	v, err := s.validators.Get(id)
	if err != nil {
		return err
	}
	if v.IsEmpty() {
		return reverts.ErrUnknownValidator
	}
	v.TotalStaked = new(big.Int).Set(total)
	s.snapshots.Remove(id)
	return s.validators.Set(id, v)
}

// AddTotalStaked adjusts the delegated total of a validator by delta, which
// may be negative. The total never goes below zero.
func (s *Service) AddTotalStaked(id ID, delta *big.Int) error {
	v, err := s.validators.Get(id)
	if err != nil {
		return err
	}
	if v.IsEmpty() {
		return reverts.ErrUnknownValidator
	}
	total := new(big.Int)
	if v.TotalStaked != nil {
		total.Set(v.TotalStaked)
	}
	total.Add(total, delta)
	if total.Sign() < 0 {
		return errors.New("validator total staked underflow")
	}
	v.TotalStaked = total
	s.snapshots.Remove(id)
	return s.validators.Set(id, v)
}

// Sync pulls the live validator list from the external source and appends
// entries missing locally. The append is transactional: a source failure
// leaves the cache untouched, merely stale.
func (s *Service) Sync(source Source) (added int, err error) {
	live, err := source.Validators()
	if err != nil {
		return 0, errors.Wrap(err, "registry source unreachable")
	}
	order, err := s.order.Get()
	if err != nil {
		return 0, err
	}
	for _, v := range live {
		known, err := s.validators.Has(v.ID)
		if err != nil {
			return 0, err
		}
		if known {
			continue
		}
		if v.TotalStaked == nil {
			v.TotalStaked = new(big.Int)
		}
		if err := s.validators.Set(v.ID, v); err != nil {
			return 0, err
		}
		order = append(order, v.ID)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.order.Set(order)
}
