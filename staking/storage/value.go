// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/plumenetwork/plume/plume"
)

// Value is a single typed slot in the backing store.
type Value[V any] struct {
	context *Context
	slot    plume.Bytes32
}

// NewValue creates a value container at the given slot.
func NewValue[V any](context *Context, slot plume.Bytes32) *Value[V] {
	return &Value[V]{context: context, slot: slot}
}

// Get returns the stored value, or the zero value if the slot is empty.
func (v *Value[V]) Get() (value V, err error) {
	raw, err := v.context.store.Get(v.slot.Bytes())
	if err != nil {
		if v.context.store.IsNotFound(err) {
			if reflect.ValueOf(value).Kind() == reflect.Ptr {
				value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
			}
			return value, nil
		}
		return value, errors.Wrap(err, "value get")
	}
	if reflect.ValueOf(value).Kind() == reflect.Ptr {
		value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, errors.Wrap(err, "value decode")
	}
	return value, nil
}

// Set stores the value.
func (v *Value[V]) Set(value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "value encode")
	}
	return v.context.store.Put(v.slot.Bytes(), raw)
}

// BigInt is a convenience container for amount slots. A missing slot reads
// as zero.
type BigInt struct {
	inner *Value[*big.Int]
}

// NewBigInt creates a big integer container at the given slot.
func NewBigInt(context *Context, slot plume.Bytes32) *BigInt {
	return &BigInt{inner: NewValue[*big.Int](context, slot)}
}

// Get returns the stored amount, never nil.
func (b *BigInt) Get() (*big.Int, error) {
	val, err := b.inner.Get()
	if err != nil {
		return nil, err
	}
	if val == nil {
		return new(big.Int), nil
	}
	return val, nil
}

// Set stores the amount.
func (b *BigInt) Set(val *big.Int) error {
	return b.inner.Set(val)
}

// Uint64 is a convenience container for counter slots.
type Uint64 struct {
	inner *Value[uint64]
}

// NewUint64 creates a counter container at the given slot.
func NewUint64(context *Context, slot plume.Bytes32) *Uint64 {
	return &Uint64{inner: NewValue[uint64](context, slot)}
}

// Get returns the stored counter.
func (u *Uint64) Get() (uint64, error) {
	return u.inner.Get()
}

// Set stores the counter.
func (u *Uint64) Set(val uint64) error {
	return u.inner.Set(val)
}
