// Package history keeps a record of finished downloads in a bbolt file.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	recordsBucket  = "downloads"
	metadataBucket = "metadata"
	schemaVersion  = 1
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var ErrRecordNotFound = errors.New("history record not found")

type Record struct {
	ID         uuid.UUID     `json:"id"`
	URL        string        `json:"url"`
	Output     string        `json:"output"`
	Size       int64         `json:"size"`
	Elapsed    time.Duration `json:"elapsed"`
	Mode       string        `json:"mode"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
}

type Store struct {
	db *bbolt.DB
}

// DefaultPath is the history file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "rangedl", "history.db"), nil
}

// Open opens or creates the store at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initialize() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(recordsBucket)); err != nil {
			return fmt.Errorf("failed to create downloads bucket: %w", err)
		}
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}
		if err := meta.Put([]byte("schema_version"), fmt.Appendf(nil, "%d", schemaVersion)); err != nil {
			return fmt.Errorf("failed to store schema version: %w", err)
		}
		return nil
	})
}

// Put stores rec, assigning an ID and finish time when they are unset.
func (s *Store) Put(rec *Record) error {
	if rec == nil {
		return errors.New("cannot save nil record")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", recordsBucket)
		}
		if err := bucket.Put([]byte(rec.ID.String()), data); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		return nil
	})
}

func (s *Store) Get(id uuid.UUID) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", recordsBucket)
		}
		data := bucket.Get([]byte(id.String()))
		if data == nil {
			return ErrRecordNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns records newest first. limit <= 0 returns all of them.
func (s *Store) List(limit int) ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordsBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", recordsBucket)
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record %s: %w", k, err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(records, func(a, b Record) int {
		return b.FinishedAt.Compare(a.FinishedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
