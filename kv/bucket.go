// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket provides a logical key namespace over a kv store.
type Bucket string

// NewGetPutter creates a namespaced GetPutter from the source store.
func (b Bucket) NewGetPutter(src GetPutter) GetPutter {
	return &bucketStore{prefix: string(b), src: src}
}

type bucketStore struct {
	prefix string
	src    GetPutter
}

func (s *bucketStore) makeKey(key []byte) []byte {
	return append([]byte(s.prefix), key...)
}

func (s *bucketStore) Get(key []byte) ([]byte, error) {
	return s.src.Get(s.makeKey(key))
}

func (s *bucketStore) Has(key []byte) (bool, error) {
	return s.src.Has(s.makeKey(key))
}

func (s *bucketStore) IsNotFound(err error) bool {
	return s.src.IsNotFound(err)
}

func (s *bucketStore) Put(key, value []byte) error {
	return s.src.Put(s.makeKey(key), value)
}

func (s *bucketStore) Delete(key []byte) error {
	return s.src.Delete(s.makeKey(key))
}

func (s *bucketStore) NewBatch() Batch {
	return &bucketBatch{prefix: s.prefix, src: s.src.NewBatch()}
}

func (s *bucketStore) NewIterator(r Range) Iterator {
	bucketRange := Range{
		Start: append([]byte(s.prefix), r.Start...),
	}
	if len(r.Limit) > 0 {
		bucketRange.Limit = append([]byte(s.prefix), r.Limit...)
	} else {
		bucketRange.Limit = upperBound([]byte(s.prefix))
	}
	return &bucketIterator{prefixLen: len(s.prefix), src: s.src.NewIterator(bucketRange)}
}

// upperBound returns the smallest key greater than every key with the prefix,
// or nil if no such key exists.
func upperBound(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] < 0xff {
			limit := make([]byte, i+1)
			copy(limit, prefix)
			limit[i]++
			return limit
		}
	}
	return nil
}

type bucketBatch struct {
	prefix string
	src    Batch
}

func (b *bucketBatch) Put(key, value []byte) error {
	return b.src.Put(append([]byte(b.prefix), key...), value)
}

func (b *bucketBatch) Delete(key []byte) error {
	return b.src.Delete(append([]byte(b.prefix), key...))
}

func (b *bucketBatch) NewBatch() Batch {
	return &bucketBatch{prefix: b.prefix, src: b.src.NewBatch()}
}

func (b *bucketBatch) Len() int {
	return b.src.Len()
}

func (b *bucketBatch) Write() error {
	return b.src.Write()
}

type bucketIterator struct {
	prefixLen int
	src       Iterator
}

func (i *bucketIterator) Next() bool    { return i.src.Next() }
func (i *bucketIterator) Release()      { i.src.Release() }
func (i *bucketIterator) Error() error  { return i.src.Error() }
func (i *bucketIterator) Key() []byte   { return i.src.Key()[i.prefixLen:] }
func (i *bucketIterator) Value() []byte { return i.src.Value() }
