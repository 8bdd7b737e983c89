// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	writeOpt = &opt.WriteOptions{}
	readOpt  = &opt.ReadOptions{}
)

// levelDB implements the GetPutCloser interface backed by goleveldb.
type levelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) a persistent leveldb store at path.
func OpenLevelDB(path string, cacheSizeMB, openFilesCacheCapacity int) (GetPutCloser, error) {
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "open leveldb file storage")
	}
	return openLevelDB(stg, cacheSizeMB, openFilesCacheCapacity)
}

// NewMem creates an in-memory store, for tests and ephemeral runs.
func NewMem() GetPutCloser {
	db, err := openLevelDB(storage.NewMemStorage(), 0, 0)
	if err != nil {
		// memory storage never fails to open
		panic(errors.Wrap(err, "open in-memory leveldb"))
	}
	return db
}

func openLevelDB(stg storage.Storage, cacheSizeMB, openFilesCacheCapacity int) (*levelDB, error) {
	if cacheSizeMB < 16 {
		cacheSizeMB = 16
	}
	if openFilesCacheCapacity < 64 {
		openFilesCacheCapacity = 64
	}
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: openFilesCacheCapacity,
		BlockCacheCapacity:     cacheSizeMB / 2 * opt.MiB,
		WriteBuffer:            cacheSizeMB / 4 * opt.MiB, // two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open leveldb")
	}
	return &levelDB{db: db}, nil
}

func (l *levelDB) Get(key []byte) ([]byte, error) {
	return l.db.Get(key, readOpt)
}

func (l *levelDB) Has(key []byte) (bool, error) {
	return l.db.Has(key, readOpt)
}

func (l *levelDB) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

func (l *levelDB) Put(key, value []byte) error {
	return l.db.Put(key, value, writeOpt)
}

func (l *levelDB) Delete(key []byte) error {
	return l.db.Delete(key, writeOpt)
}

func (l *levelDB) Close() error {
	return l.db.Close()
}

func (l *levelDB) NewBatch() Batch {
	return &levelDBBatch{
		db:    l.db,
		batch: &leveldb.Batch{},
	}
}

func (l *levelDB) NewIterator(r Range) Iterator {
	return l.db.NewIterator(&util.Range{
		Start: r.Start,
		Limit: r.Limit,
	}, readOpt)
}

// levelDBBatch implements the Batch interface.
type levelDBBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelDBBatch) Put(key, value []byte) error {
	b.batch.Put(key, value)
	return nil
}

func (b *levelDBBatch) Delete(key []byte) error {
	b.batch.Delete(key)
	return nil
}

func (b *levelDBBatch) NewBatch() Batch {
	return &levelDBBatch{
		db:    b.db,
		batch: &leveldb.Batch{},
	}
}

func (b *levelDBBatch) Len() int {
	return b.batch.Len()
}

func (b *levelDBBatch) Write() error {
	return b.db.Write(b.batch, writeOpt)
}
