// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"encoding/binary"
	"math/big"
)

// ID identifies a validator.
type ID uint64

// Bytes returns the big-endian byte form of the ID, for use as a storage key.
func (id ID) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}

// Validator is the local metadata snapshot of one validator. TotalStaked is
// the amount currently delegated to it by this contract; Commission is the
// validator's cut in basis points.
type Validator struct {
	ID            ID
	CommissionBps uint64
	TotalStaked   *big.Int
	Active        bool
	AddedAt       uint64
}

// IsEmpty returns true for the zero snapshot, i.e. an unknown validator.
func (v *Validator) IsEmpty() bool {
	return v.TotalStaked == nil && v.AddedAt == 0 && !v.Active
}

// StakeInfo are the per-contract aggregates exposed to the external
// registry boundary.
type StakeInfo struct {
	Staked  *big.Int // principal currently delegated across validators
	Cooling *big.Int // amounts sitting in unswept maturity buckets
	Parked  *big.Int // liquidity buffer holdings
}

// Source is the external registry read view. Sync pulls from it; the local
// cache never receives push notifications.
type Source interface {
	Validators() ([]Validator, error)
}
