// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fulfill

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/storage"
)

var (
	slotRequests    = plume.BytesToBytes32([]byte("fulfill-requests"))
	slotNextID      = plume.BytesToBytes32([]byte("fulfill-next-id"))
	slotPending     = plume.BytesToBytes32([]byte("fulfill-pending"))
	slotOutstanding = plume.BytesToBytes32([]byte("fulfill-outstanding"))
)

// PayFn settles one fill: gross leaves the buffer, penalty out of gross
// goes to the fee recipient, the rest reaches the user. The callback runs
// before the request record is updated; returning an error aborts the fill.
type PayFn func(req *Request, gross, penalty *big.Int) error

// Service is the withdrawal request book.
type Service struct {
	requests    *storage.Mapping[requestKey, Request]
	nextID      *storage.Uint64
	pending     *storage.Value[[]uint64]
	outstanding *storage.BigInt
}

func New(sctx *storage.Context) *Service {
	return &Service{
		requests:    storage.NewMapping[requestKey, Request](sctx, slotRequests),
		nextID:      storage.NewUint64(sctx, slotNextID),
		pending:     storage.NewValue[[]uint64](sctx, slotPending),
		outstanding: storage.NewBigInt(sctx, slotOutstanding),
	}
}

// Enqueue stores a new request and returns its assigned ID. IDs are
// monotonic and never reused.
func (s *Service) Enqueue(req *Request) (uint64, error) {
	id, err := s.nextID.Get()
	if err != nil {
		return 0, err
	}
	id++ // first request gets ID 1, zero stays the "no request" marker
	if err := s.nextID.Set(id); err != nil {
		return 0, err
	}
	req.ID = id
	if err := s.requests.Set(requestKey(id), *req); err != nil {
		return 0, err
	}
	order, err := s.pending.Get()
	if err != nil {
		return 0, err
	}
	if err := s.pending.Set(append(order, id)); err != nil {
		return 0, err
	}
	out, err := s.outstanding.Get()
	if err != nil {
		return 0, err
	}
	if err := s.outstanding.Set(new(big.Int).Add(out, req.Amount)); err != nil {
		return 0, err
	}
	return id, nil
}

// Get loads one request.
func (s *Service) Get(id uint64) (*Request, error) {
	req, err := s.requests.Get(requestKey(id))
	if err != nil {
		return nil, err
	}
	if req.ID == 0 {
		return nil, reverts.ErrUnknownRequest
	}
	return &req, nil
}

// Pending returns the open request IDs in arrival order.
func (s *Service) Pending() ([]uint64, error) {
	return s.pending.Get()
}

// TotalOutstanding is the gross amount still owed across open requests.
func (s *Service) TotalOutstanding() (*big.Int, error) {
	return s.outstanding.Get()
}

// Remove drops a request that settles outside the queue, such as a
// self-service unstake of a matured request.
func (s *Service) Remove(id uint64) (*Request, error) {
	req, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.requests.Delete(requestKey(id)); err != nil {
		return nil, err
	}
	if err := s.dropPending(id); err != nil {
		return nil, err
	}
	out, err := s.outstanding.Get()
	if err != nil {
		return nil, err
	}
	if err := s.outstanding.Set(new(big.Int).Sub(out, req.Amount)); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) dropPending(id uint64) error {
	order, err := s.pending.Get()
	if err != nil {
		return err
	}
	for i, v := range order {
		if v == id {
			return s.pending.Set(append(order[:i], order[i+1:]...))
		}
	}
	return nil
}

// settle applies a fill of gross against req and persists the result.
// Returns the penalty slice of the fill.
func (s *Service) settle(req *Request, gross *big.Int, pay PayFn) (*big.Int, error) {
	// penalty prorated by the filled share of the remaining amount
	penalty := new(big.Int).Mul(req.PenaltyRemaining, gross)
	penalty.Div(penalty, req.Amount)

	if err := pay(req, gross, penalty); err != nil {
		return nil, err
	}

	req.Amount = new(big.Int).Sub(req.Amount, gross)
	req.PenaltyRemaining = new(big.Int).Sub(req.PenaltyRemaining, penalty)
	if req.Amount.Sign() == 0 {
		req.Fulfilled = true
	}
	if err := s.requests.Set(requestKey(req.ID), *req); err != nil {
		return nil, err
	}
	if req.Fulfilled {
		if err := s.dropPending(req.ID); err != nil {
			return nil, err
		}
	}
	out, err := s.outstanding.Get()
	if err != nil {
		return nil, err
	}
	if err := s.outstanding.Set(new(big.Int).Sub(out, gross)); err != nil {
		return nil, err
	}
	return penalty, nil
}

// FulfillFIFO fills the given requests whole, in the order given,
// stopping at the first one the budget cannot cover in full. Requests not
// yet matured are skipped. Returns how many were filled and the gross
// total paid out.
func (s *Service) FulfillFIFO(ids []uint64, now uint64, budget *big.Int, pay PayFn) (int, *big.Int, error) {
	left := new(big.Int).Set(budget)
	paid := new(big.Int)
	processed := 0

	for _, id := range ids {
		req, err := s.Get(id)
		if err != nil {
			return processed, paid, err
		}
		if req.Fulfilled || !req.Ready(now) {
			continue
		}
		if left.Cmp(req.Amount) < 0 {
			break
		}
		gross := new(big.Int).Set(req.Amount)
		if _, err := s.settle(req, gross, pay); err != nil {
			return processed, paid, err
		}
		left.Sub(left, gross)
		paid.Add(paid, gross)
		processed++
	}
	return processed, paid, nil
}

// FulfillProRata splits budget across the given requests in proportion to
// their remaining amounts. When the budget covers everything each request
// fills whole; otherwise every matured request gets a truncated
// proportional share. Returns the gross amount spent and the number of
// requests touched.
func (s *Service) FulfillProRata(ids []uint64, now uint64, budget *big.Int, pay PayFn) (*big.Int, int, error) {
	type entry struct {
		req    *Request
		amount *big.Int
	}
	var eligible []entry
	total := new(big.Int)
	for _, id := range ids {
		req, err := s.Get(id)
		if err != nil {
			return nil, 0, err
		}
		if req.Fulfilled || !req.Ready(now) {
			continue
		}
		eligible = append(eligible, entry{req, new(big.Int).Set(req.Amount)})
		total.Add(total, req.Amount)
	}
	if len(eligible) == 0 || total.Sign() == 0 {
		return new(big.Int), 0, nil
	}

	spent := new(big.Int)
	processed := 0
	full := budget.Cmp(total) >= 0
	for _, e := range eligible {
		gross := e.amount
		if !full {
			gross = new(big.Int).Mul(budget, e.amount)
			gross.Div(gross, total)
		}
		if gross.Sign() == 0 {
			continue
		}
		if _, err := s.settle(e.req, gross, pay); err != nil {
			return spent, processed, err
		}
		spent.Add(spent, gross)
		processed++
	}
	return spent, processed, nil
}
