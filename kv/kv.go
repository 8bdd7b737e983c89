// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv defines the key-value store abstraction the engine persists
// through, with leveldb-backed and in-memory implementations.
package kv

// Getter reads keys from a store.
type Getter interface {
	// Get returns the value for key. The error for a missing key is
	// recognized by IsNotFound.
	Get(key []byte) (value []byte, err error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool

	NewIterator(r Range) Iterator
}

// Putter writes keys to a store.
type Putter interface {
	Put(key, value []byte) error
	Delete(key []byte) error

	NewBatch() Batch
}

// GetPutter combines reads and writes.
type GetPutter interface {
	Getter
	Putter
}

// GetPutCloser is a GetPutter owning its backing resources.
type GetPutCloser interface {
	GetPutter
	Close() error
}

// Batch buffers writes until Write, which applies them atomically.
type Batch interface {
	Putter

	Len() int
	Write() error
}

// Iterator walks keys in ascending order.
type Iterator interface {
	Next() bool
	Release()
	Error() error

	Key() []byte
	Value() []byte
}

// Range bounds an iteration: Start inclusive, Limit exclusive. Zero values
// leave the corresponding side unbounded.
type Range struct {
	Start []byte
	Limit []byte
}
