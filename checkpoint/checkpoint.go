// Package checkpoint stores finished computations in a bolt database,
// so that an interrupted run can be resumed without repeating them.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket name for all the values.
var MAIN = []byte("main")

// Store saves JSON encoded values in a bolt database. A nil *Store
// is valid and stores nothing.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database file.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0666, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening checkpoint %s", path)
	}
	log.Infof("Using checkpoint file %s", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores v under the key.
func (s *Store) Save(key []byte, v interface{}) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "serializing checkpoint")
	}
	if err := SaveData(s.db, key, data); err != nil {
		return errors.Wrap(err, "saving checkpoint")
	}
	return nil
}

// Load reads the value stored under the key into v. It returns false
// if there is no such key.
func (s *Store) Load(key []byte, v interface{}) (bool, error) {
	if s == nil {
		return false, nil
	}
	data, err := LoadData(s.db, key)
	if err != nil || data == nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "reading checkpoint %s", key)
	}
	return true, nil
}

// Len returns the number of stored values.
func (s *Store) Len() (n int, err error) {
	if s == nil {
		return 0, nil
	}
	err = s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(MAIN); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return
}

// SaveData saves values in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(MAIN)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads data from bolt database. The result is nil if the
// key is missing.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(MAIN)
		if b == nil {
			return nil
		}
		// the value is only valid during the transaction
		if v := b.Get(key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
