// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/buckets"
	"github.com/plumenetwork/plume/staking/fulfill"
	"github.com/plumenetwork/plume/staking/ledger"
	"github.com/plumenetwork/plume/staking/registry"
)

// Account is the JSON view of a user's ledger state.
type Account struct {
	Parked             *math.HexOrDecimal256 `json:"parked"`
	RewardAccumulated  *math.HexOrDecimal256 `json:"rewardAccumulated"`
	AutoCompoundPeriod uint64                `json:"autoCompoundPeriod"`
	Stake              *StakeView            `json:"stake,omitempty"`
	PendingRequest     *uint64               `json:"pendingRequest,omitempty"`
}

// StakeView is the JSON view of an active locked position.
type StakeView struct {
	Amount          *math.HexOrDecimal256 `json:"amount"`
	StartTime       uint64                `json:"startTime"`
	LockDuration    uint64                `json:"lockDuration"`
	LastRewardClaim uint64                `json:"lastRewardClaim"`
	Validator       uint64                `json:"validator"`
}

func convertAccount(acc *ledger.Account) *Account {
	out := &Account{
		Parked:             (*math.HexOrDecimal256)(acc.Parked),
		RewardAccumulated:  (*math.HexOrDecimal256)(acc.RewardAccumulated),
		AutoCompoundPeriod: acc.AutoCompoundPeriod,
		PendingRequest:     acc.PendingRequest,
	}
	if acc.Stake != nil {
		out.Stake = &StakeView{
			Amount:          (*math.HexOrDecimal256)(acc.Stake.Amount),
			StartTime:       acc.Stake.StartTime,
			LockDuration:    acc.Stake.LockDuration,
			LastRewardClaim: acc.Stake.LastRewardClaim,
			Validator:       uint64(acc.Stake.Validator),
		}
	}
	return out
}

// Validator is the JSON view of a cached validator snapshot.
type Validator struct {
	ID            uint64                `json:"id"`
	CommissionBps uint64                `json:"commissionBps"`
	TotalStaked   *math.HexOrDecimal256 `json:"totalStaked"`
	Active        bool                  `json:"active"`
	AddedAt       uint64                `json:"addedAt"`
}

func convertValidator(v *registry.Validator) *Validator {
	return &Validator{
		ID:            uint64(v.ID),
		CommissionBps: v.CommissionBps,
		TotalStaked:   (*math.HexOrDecimal256)(v.TotalStaked),
		Active:        v.Active,
		AddedAt:       v.AddedAt,
	}
}

// Request is the JSON view of a withdrawal request.
type Request struct {
	ID               uint64                `json:"id"`
	User             string                `json:"user"`
	Validator        uint64                `json:"validator"`
	Amount           *math.HexOrDecimal256 `json:"amount"`
	PenaltyRemaining *math.HexOrDecimal256 `json:"penaltyRemaining"`
	RequestedAt      uint64                `json:"requestedAt"`
	ReadyTime        uint64                `json:"readyTime"`
	BucketIndex      uint32                `json:"bucketIndex"`
	Fulfilled        bool                  `json:"fulfilled"`
}

func convertRequest(r *fulfill.Request) *Request {
	return &Request{
		ID:               r.ID,
		User:             r.User.String(),
		Validator:        uint64(r.Validator),
		Amount:           (*math.HexOrDecimal256)(r.Amount),
		PenaltyRemaining: (*math.HexOrDecimal256)(r.PenaltyRemaining),
		RequestedAt:      r.RequestedAt,
		ReadyTime:        r.ReadyTime,
		BucketIndex:      r.BucketIndex,
		Fulfilled:        r.Fulfilled,
	}
}

// BucketSummary is the JSON view of one validator's bucket availability.
type BucketSummary struct {
	TotalBuckets   int                   `json:"totalBuckets"`
	MaturedUnswept int                   `json:"maturedUnswept"`
	AmountLocked   *math.HexOrDecimal256 `json:"amountLocked"`
}

func convertSummary(s *buckets.Summary) *BucketSummary {
	return &BucketSummary{
		TotalBuckets:   s.TotalBuckets,
		MaturedUnswept: s.MaturedUnswept,
		AmountLocked:   (*math.HexOrDecimal256)(s.AmountLocked),
	}
}

// BufferState is the JSON view of the liquidity buffer.
type BufferState struct {
	Available        *math.HexOrDecimal256 `json:"available"`
	TotalOutstanding *math.HexOrDecimal256 `json:"totalOutstanding"`
	InstantUnstaked  *math.HexOrDecimal256 `json:"instantUnstaked"`
}

// StakeRequest opens a locked position.
type StakeRequest struct {
	User               string                `json:"user"`
	Validator          uint64                `json:"validator"`
	Amount             *math.HexOrDecimal256 `json:"amount"`
	LockDuration       uint64                `json:"lockDuration"`
	AutoCompoundPeriod uint64                `json:"autoCompoundPeriod"`
}

// AmountRequest carries a user plus an amount, used by park, withdraw,
// unstake-request and instant-unstake bodies.
type AmountRequest struct {
	User   string                `json:"user"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// UserRequest carries just the acting user.
type UserRequest struct {
	User string `json:"user"`
}

// SweepRequest triggers an operator bucket sweep.
type SweepRequest struct {
	Caller    string `json:"caller"`
	Validator uint64 `json:"validator"`
	MaxSweep  int    `json:"maxSweep"`
}

// FulfillRequest triggers operator fulfillment over the given request IDs.
type FulfillRequest struct {
	Caller string   `json:"caller"`
	IDs    []uint64 `json:"ids"`
}

// AddBucketsRequest provisions empty bucket slots.
type AddBucketsRequest struct {
	Caller    string `json:"caller"`
	Validator uint64 `json:"validator"`
	Count     int    `json:"count"`
}

func parseAddr(s string) (plume.Address, error) {
	return plume.ParseAddress(s)
}

func amountOf(a *math.HexOrDecimal256) *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return (*big.Int)(a)
}
