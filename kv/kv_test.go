// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	store := NewMem()
	defer store.Close()

	_, err := store.Get([]byte("missing"))
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))

	require.NoError(t, store.Put([]byte("k"), []byte("v")))
	v, err := store.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	has, err := store.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, store.Delete([]byte("k")))
	has, err = store.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBatchWrite(t *testing.T) {
	store := NewMem()
	defer store.Close()

	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Put([]byte("b"), []byte("2")))
	assert.Equal(t, 2, batch.Len())

	// Nothing lands until Write.
	has, err := store.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, batch.Write())
	v, err := store.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}

func TestBucketNamespacing(t *testing.T) {
	store := NewMem()
	defer store.Close()

	a := Bucket("a:").NewGetPutter(store)
	b := Bucket("b:").NewGetPutter(store)

	require.NoError(t, a.Put([]byte("k"), []byte("va")))
	require.NoError(t, b.Put([]byte("k"), []byte("vb")))

	v, err := a.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("va"), v)

	v, err = b.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("vb"), v)

	// The raw store sees prefixed keys only.
	has, err := store.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBucketIterator(t *testing.T) {
	store := NewMem()
	defer store.Close()

	a := Bucket("a:").NewGetPutter(store)
	require.NoError(t, a.Put([]byte("x"), []byte("1")))
	require.NoError(t, a.Put([]byte("y"), []byte("2")))
	require.NoError(t, store.Put([]byte("b:z"), []byte("3")))

	it := a.NewIterator(Range{})
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"x", "y"}, keys)
}
