// Package storage provides the persistent artifact registry for the exam score service.
// It uses BoltDB as the underlying storage engine to keep every imported
// artifact bundle by version together with the pointer to the active one.
//
// Only bundles are stored. Student records and predictions never reach disk.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bundlesBucket = "bundles" // Bucket name for packaged artifact bundles keyed by version
	metaBucket    = "meta"    // Bucket name for registry metadata

	activeKey = "active"
	dbFile    = "exam-score.db"
)

// ErrNotFound is returned when a requested version is not stored.
var ErrNotFound = errors.New("not found")

// Store is a BoltDB backed bundle registry. It satisfies ml.BundleStore.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens (or creates) the registry database inside dataPath.
// Returns an error if the database cannot be opened or buckets cannot be created.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bundlesBucket)); err != nil {
			return fmt.Errorf("create bundles bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucket)); err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Path returns the database file path used for dataPath.
func Path(dataPath string) string {
	return filepath.Join(dataPath, dbFile)
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// PutBundle stores a packaged bundle under version, replacing any previous value.
func (s *Store) PutBundle(version string, data []byte) error {
	if version == "" {
		return errors.New("empty version")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bundlesBucket)).Put([]byte(version), data)
	})
}

// GetBundle returns a copy of the bundle stored under version.
func (s *Store) GetBundle(version string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bundlesBucket)).Get([]byte(version))
		if v == nil {
			return fmt.Errorf("bundle %s: %w", version, ErrNotFound)
		}
		// values are only valid for the life of the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// ListVersions returns every stored version in ascending key order.
func (s *Store) ListVersions() ([]string, error) {
	var versions []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bundlesBucket)).ForEach(func(k, _ []byte) error {
			versions = append(versions, string(k))
			return nil
		})
	})
	return versions, err
}

// SetActive records version as the active bundle. The version must be stored.
func (s *Store) SetActive(version string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(bundlesBucket)).Get([]byte(version)) == nil {
			return fmt.Errorf("bundle %s: %w", version, ErrNotFound)
		}
		return tx.Bucket([]byte(metaBucket)).Put([]byte(activeKey), []byte(version))
	})
}

// ActiveVersion returns the active version, or "" when none has been set.
func (s *Store) ActiveVersion() (string, error) {
	var version string
	err := s.db.View(func(tx *bbolt.Tx) error {
		version = string(tx.Bucket([]byte(metaBucket)).Get([]byte(activeKey)))
		return nil
	})
	return version, err
}
