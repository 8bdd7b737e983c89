// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/registry"
)

// Event is implemented by every staking notification delivered through
// SubscribeEvents.
type Event interface {
	eventName() string
}

// Notification boxes an Event for feed delivery. event.Feed carries exactly
// one concrete element type per feed, so every event kind travels wrapped.
type Notification struct {
	Event Event
}

// Name returns the wrapped event's kind.
func (n Notification) Name() string {
	return n.Event.eventName()
}

// StakedEvent fires when a user opens or extends a locked position.
type StakedEvent struct {
	User      plume.Address
	Validator registry.ID
	Amount    *big.Int
	Lock      uint64
	Time      uint64
}

// ParkedEvent fires when funds land in a user's parked balance from
// outside the queue.
type ParkedEvent struct {
	User   plume.Address
	Amount *big.Int
}

// ParkedWithdrawnEvent fires when parked funds leave custody.
type ParkedWithdrawnEvent struct {
	User   plume.Address
	Amount *big.Int
}

// UnstakeRequestedEvent fires when an unstake lands in a maturity bucket.
type UnstakeRequestedEvent struct {
	User      plume.Address
	Validator registry.ID
	RequestID uint64
	Amount    *big.Int
	Penalty   *big.Int
	ReadyTime uint64
}

// InstantUnstakedEvent fires when the buffer serves an immediate exit.
type InstantUnstakedEvent struct {
	User      plume.Address
	Validator registry.ID
	Amount    *big.Int
	Fee       *big.Int
	Penalty   *big.Int
	Net       *big.Int
}

// UnstakedEvent fires when a matured request settles through the
// self-service path.
type UnstakedEvent struct {
	User      plume.Address
	RequestID uint64
	Amount    *big.Int
	Net       *big.Int
}

// RequestFulfilledEvent fires per fill during operator fulfillment.
// Remaining is the gross amount still owed after the fill.
type RequestFulfilledEvent struct {
	User      plume.Address
	RequestID uint64
	Gross     *big.Int
	Net       *big.Int
	Remaining *big.Int
}

// BucketSweptEvent fires when an operator sweep releases matured buckets
// into the buffer.
type BucketSweptEvent struct {
	Validator registry.ID
	Swept     int
	Amount    *big.Int
}

// RewardsClaimedEvent fires when accrued rewards pay out. PaidPUSD and
// PaidPLUME sum to Amount.
type RewardsClaimedEvent struct {
	User      plume.Address
	Amount    *big.Int
	PaidPUSD  *big.Int
	PaidPLUME *big.Int
}

// RewardsCompoundedEvent fires when rewards fold into principal, either
// explicitly or through an auto-compound checkpoint.
type RewardsCompoundedEvent struct {
	User   plume.Address
	Amount *big.Int
}

func (StakedEvent) eventName() string            { return "staked" }
func (ParkedEvent) eventName() string            { return "parked" }
func (ParkedWithdrawnEvent) eventName() string   { return "parked-withdrawn" }
func (UnstakeRequestedEvent) eventName() string  { return "unstake-requested" }
func (InstantUnstakedEvent) eventName() string   { return "instant-unstaked" }
func (UnstakedEvent) eventName() string          { return "unstaked" }
func (RequestFulfilledEvent) eventName() string  { return "request-fulfilled" }
func (BucketSweptEvent) eventName() string       { return "bucket-swept" }
func (RewardsClaimedEvent) eventName() string    { return "rewards-claimed" }
func (RewardsCompoundedEvent) eventName() string { return "rewards-compounded" }
