// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package buckets

import "math/big"

// Bucket is one maturity-windowed aggregation of unstake requests for a
// validator. A bucket with MaturityTime zero is an unused slot; its maturity
// is fixed when the first request lands in it. Swept buckets stay in place
// for audit history and are never reused.
type Bucket struct {
	MaturityTime uint64
	Total        *big.Int
	Requests     uint32
	Swept        bool
}

// Open returns true if the slot can still take requests for the given
// maturity floor and per-bucket capacity.
func (b *Bucket) Open(maturityFloor uint64, capacity uint32) bool {
	if b.Swept {
		return false
	}
	if b.MaturityTime == 0 {
		return true
	}
	return b.MaturityTime >= maturityFloor && b.Requests < capacity
}

// Matured returns true if the bucket has been used and its maturity passed.
func (b *Bucket) Matured(now uint64) bool {
	return b.MaturityTime != 0 && b.MaturityTime <= now
}

// Summary is the read-only availability health check of one validator's
// bucket set.
type Summary struct {
	TotalBuckets   int
	MaturedUnswept int
	AmountLocked   *big.Int
}
