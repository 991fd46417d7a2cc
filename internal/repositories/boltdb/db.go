// Package boltdb stores sessions and users in a single bbolt file. It backs the offline
// lotteryctl tool and single-node deployments that run without MongoDB.
package boltdb

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	sessionsBucket   = []byte("lotteries")
	usersBucket      = []byte("users")
	userEmailsBucket = []byte("users_by_email")
	allBuckets       = [][]byte{sessionsBucket, usersBucket, userEmailsBucket}
	openTimeout      = time.Second
)

// Open opens or creates the database file and its buckets
func Open(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// documents are stored in BSON so both stores share the same field names
func encode(v interface{}) ([]byte, error) {
	return bson.Marshal(v)
}

func decode(data []byte, v interface{}) error {
	return bson.Unmarshal(data, v)
}
