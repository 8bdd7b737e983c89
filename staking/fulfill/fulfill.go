// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fulfill keeps pending withdrawal requests and settles them
// against the liquidity buffer, either first-in-first-out or pro rata.
package fulfill

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/registry"
)

// Request is one pending withdrawal. Amount is the remaining gross amount
// still owed; PenaltyRemaining is the slice of it that routes to the fee
// recipient instead of the user. Partial fills shrink both proportionally.
type Request struct {
	ID               uint64
	User             plume.Address
	Validator        registry.ID
	Amount           *big.Int
	PenaltyRemaining *big.Int
	RequestedAt      uint64
	ReadyTime        uint64
	BucketIndex      uint32
	Fulfilled        bool
}

// Ready returns true once the request's maturity has passed.
func (r *Request) Ready(now uint64) bool {
	return r.ReadyTime <= now
}

type requestKey uint64

func (k requestKey) Bytes() []byte {
	var b [8]byte
	v := uint64(k)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b[:]
}
