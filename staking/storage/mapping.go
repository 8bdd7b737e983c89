// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/plumenetwork/plume/kv"
	"github.com/plumenetwork/plume/plume"
)

// Key is anything usable as a mapping key.
type Key interface {
	Bytes() []byte
}

// Mapping is a typed key/value container over the backing store, similar to a
// mapping in Solidity. Entry positions are blake2b(key, slot) so distinct
// mappings never collide regardless of key contents.
type Mapping[K Key, V any] struct {
	context *Context
	slot    plume.Bytes32
}

// NewMapping creates a mapping rooted at the given slot.
func NewMapping[K Key, V any](context *Context, slot plume.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, slot: slot}
}

func (m *Mapping[K, V]) position(key K) []byte {
	pos := plume.Blake2b(key.Bytes(), m.slot.Bytes())
	return pos.Bytes()
}

// Get returns the value stored for the key, or the zero value if absent.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	raw, err := m.context.store.Get(m.position(key))
	if err != nil {
		if m.context.store.IsNotFound(err) {
			if reflect.ValueOf(value).Kind() == reflect.Ptr {
				value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
			}
			return value, nil
		}
		return value, errors.Wrap(err, "mapping get")
	}
	if reflect.ValueOf(value).Kind() == reflect.Ptr {
		value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, errors.Wrap(err, "mapping decode")
	}
	return value, nil
}

// Has returns whether the key has a stored value.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	return m.context.store.Has(m.position(key))
}

// Set stores the value for the key.
func (m *Mapping[K, V]) Set(key K, value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "mapping encode")
	}
	return m.context.store.Put(m.position(key), raw)
}

// SetBatched stores the value for the key into the given batch.
func (m *Mapping[K, V]) SetBatched(batch kv.Putter, key K, value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "mapping encode")
	}
	return batch.Put(m.position(key), raw)
}

// Delete removes the stored value for the key.
func (m *Mapping[K, V]) Delete(key K) error {
	return m.context.store.Delete(m.position(key))
}
