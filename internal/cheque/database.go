package cheque

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "cheques"

// DB defines the interface for database operations
type DB interface {
	// SaveCheque saves a cheque to the database
	SaveCheque(cheque *Cheque) error

	// GetCheque retrieves a cheque by ID
	GetCheque(id string) (*Cheque, error)

	// ListCheques returns all cheques, newest first
	ListCheques() ([]*Cheque, error)

	// DeleteCheque removes a cheque from the database
	DeleteCheque(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveCheque saves a cheque to the database
func (b *BoltDB) SaveCheque(cheque *Cheque) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(cheque)
		if err != nil {
			return fmt.Errorf("marshaling cheque: %w", err)
		}
		return bucket.Put([]byte(cheque.ID), data)
	})
}

// GetCheque retrieves a cheque by ID
func (b *BoltDB) GetCheque(id string) (*Cheque, error) {
	var cheque *Cheque
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("cheque not found: %s", id)
		}
		return json.Unmarshal(data, &cheque)
	})
	if err != nil {
		return nil, err
	}
	return cheque, nil
}

// ListCheques returns all cheques, newest first
func (b *BoltDB) ListCheques() ([]*Cheque, error) {
	cheques := make([]*Cheque, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var cheque Cheque
			if err := json.Unmarshal(v, &cheque); err != nil {
				return fmt.Errorf("unmarshaling cheque: %w", err)
			}
			cheques = append(cheques, &cheque)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(cheques, func(i, j int) bool {
		return cheques[i].CreatedAt.After(cheques[j].CreatedAt)
	})
	return cheques, nil
}

// DeleteCheque removes a cheque from the database
func (b *BoltDB) DeleteCheque(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
