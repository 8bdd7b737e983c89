// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token is the ledger primitive for the two pooled assets: the
// native staking token (PLUME) and the reward token (pUSD). Transfers are
// atomic balance moves; there is no allowance or callback surface.
package token

import (
	"math/big"

	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking/reverts"
	"github.com/plumenetwork/plume/staking/storage"
)

// Token selects one of the pooled assets.
type Token uint8

const (
	PLUME Token = iota // native staking token
	PUSD               // reward payout token
)

func (t Token) String() string {
	switch t {
	case PLUME:
		return "PLUME"
	case PUSD:
		return "pUSD"
	default:
		return "unknown"
	}
}

var (
	slotPlumeBalances = plume.BytesToBytes32([]byte("token-plume-balances"))
	slotPusdBalances  = plume.BytesToBytes32([]byte("token-pusd-balances"))
)

// Ledger tracks per-address balances of both tokens.
type Ledger struct {
	plumeBalances *storage.Mapping[plume.Address, *big.Int]
	pusdBalances  *storage.Mapping[plume.Address, *big.Int]
}

// NewLedger creates the token ledger over the given storage context.
func NewLedger(sctx *storage.Context) *Ledger {
	return &Ledger{
		plumeBalances: storage.NewMapping[plume.Address, *big.Int](sctx, slotPlumeBalances),
		pusdBalances:  storage.NewMapping[plume.Address, *big.Int](sctx, slotPusdBalances),
	}
}

func (l *Ledger) balances(t Token) *storage.Mapping[plume.Address, *big.Int] {
	if t == PUSD {
		return l.pusdBalances
	}
	return l.plumeBalances
}

// Balance returns the balance of addr, never nil.
func (l *Ledger) Balance(t Token, addr plume.Address) (*big.Int, error) {
	bal, err := l.balances(t).Get(addr)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return new(big.Int), nil
	}
	return bal, nil
}

// Mint credits newly issued tokens to addr. Used for genesis funding and
// reward-pool top-ups.
func (l *Ledger) Mint(t Token, addr plume.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	bal, err := l.Balance(t, addr)
	if err != nil {
		return err
	}
	return l.balances(t).Set(addr, new(big.Int).Add(bal, amount))
}

// Transfer moves amount from one address to another. The move is atomic: on
// any failure neither balance changes.
func (l *Ledger) Transfer(t Token, from, to plume.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	fromBal, err := l.Balance(t, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	toBal, err := l.Balance(t, to)
	if err != nil {
		return err
	}
	if err := l.balances(t).Set(from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.balances(t).Set(to, new(big.Int).Add(toBal, amount))
}
