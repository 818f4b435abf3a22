package storage

import (
	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("stakedrop")

// BoltDB is a persistent key-value store backed by a single-file bbolt
// database. It trades goleveldb's write throughput for crash-safe single-file
// operation, which suits small operator deployments.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB creates or opens a bbolt database at the specified path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Put(key []byte, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

func (b *BoltDB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		stored := tx.Bucket(boltBucket).Get(key)
		if stored == nil {
			return ErrKeyNotFound
		}
		value = make([]byte, len(stored))
		copy(value, stored)
		return nil
	})
	return value, err
}

func (b *BoltDB) Has(key []byte) (bool, error) {
	var ok bool
	err := b.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(boltBucket).Get(key) != nil
		return nil
	})
	return ok, err
}

func (b *BoltDB) Delete(key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete(key)
	})
}

func (b *BoltDB) Close() {
	b.db.Close()
}
