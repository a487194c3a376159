package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.etcd.io/bbolt"
)

const (
	journalBucket  = "journal"
	requestsBucket = "requests"
	metadataBucket = "metadata"
	schemaVersion  = 1
)

var (
	// ErrEntryNotFound is returned when an entry cannot be found
	ErrEntryNotFound = errors.New("journal entry not found")
	// ErrInvalidID is returned for ids that are not ULIDs
	ErrInvalidID = errors.New("invalid journal entry id")
)

// BboltRepository stores journal entries in a bbolt file, keyed by ULID so a
// cursor walks them in the order they finished.
type BboltRepository struct {
	db *bbolt.DB
}

// NewBboltRepository creates a new bbolt repository
func NewBboltRepository(dbPath string) (*BboltRepository, error) {
	options := &bbolt.Options{
		Timeout: 1 * time.Second,
	}

	db, err := bbolt.Open(dbPath, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &BboltRepository{
		db: db,
	}

	if err := repo.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// initialize sets up buckets and schema
func (r *BboltRepository) initialize() error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{journalBucket, requestsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}

		metadataBucket, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		versionBytes := []byte(fmt.Sprintf("%d", schemaVersion))
		err = metadataBucket.Put([]byte("schema_version"), versionBytes)
		if err != nil {
			return fmt.Errorf("failed to store schema version: %w", err)
		}

		return nil
	})
}

// requestKey indexes an entry under its request id.
func requestKey(requestID string, id ulid.ULID) []byte {
	key := make([]byte, 0, len(requestID)+1+ulid.EncodedSize)
	key = append(key, requestID...)
	key = append(key, 0)

	return append(key, id.String()...)
}

// Save persists an entry to storage
func (r *BboltRepository) Save(entry *Entry) error {
	if entry == nil {
		return errors.New("cannot save nil entry")
	}

	if entry.ID == (ulid.ULID{}) {
		return ErrInvalidID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		journal := tx.Bucket([]byte(journalBucket))
		requests := tx.Bucket([]byte(requestsBucket))
		if journal == nil || requests == nil {
			return fmt.Errorf("bucket not found: %s", journalBucket)
		}

		if err := journal.Put([]byte(entry.ID.String()), data); err != nil {
			return fmt.Errorf("failed to save entry: %w", err)
		}

		if err := requests.Put(requestKey(entry.RequestID, entry.ID), nil); err != nil {
			return fmt.Errorf("failed to index entry: %w", err)
		}

		return nil
	})
}

// Find retrieves an entry by its ULID string
func (r *BboltRepository) Find(id string) (*Entry, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	var data []byte
	err = r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(journalBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", journalBucket)
		}

		v := bucket.Get([]byte(parsed.String()))
		if v == nil {
			return ErrEntryNotFound
		}

		// bbolt values are only valid inside the transaction.
		data = append([]byte(nil), v...)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return decodeEntry(data)
}

// FindByRequest returns every entry recorded for requestID, oldest first.
func (r *BboltRepository) FindByRequest(requestID string) ([]*Entry, error) {
	var entries []*Entry

	err := r.db.View(func(tx *bbolt.Tx) error {
		journal := tx.Bucket([]byte(journalBucket))
		requests := tx.Bucket([]byte(requestsBucket))
		if journal == nil || requests == nil {
			return fmt.Errorf("bucket not found: %s", requestsBucket)
		}

		prefix := append([]byte(requestID), 0)

		c := requests.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			v := journal.Get(k[len(prefix):])
			if v == nil {
				continue
			}

			entry, err := decodeEntry(v)
			if err != nil {
				return err
			}

			entries = append(entries, entry)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// FindAll retrieves all entries in the order they finished
func (r *BboltRepository) FindAll() ([]*Entry, error) {
	var entries []*Entry

	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(journalBucket))
		if bucket == nil {
			return fmt.Errorf("bucket not found: %s", journalBucket)
		}

		return bucket.ForEach(func(k, v []byte) error {
			entry, err := decodeEntry(v)
			if err != nil {
				return err
			}

			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Delete removes an entry
func (r *BboltRepository) Delete(id string) error {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		journal := tx.Bucket([]byte(journalBucket))
		requests := tx.Bucket([]byte(requestsBucket))
		if journal == nil || requests == nil {
			return fmt.Errorf("bucket not found: %s", journalBucket)
		}

		key := []byte(parsed.String())

		v := journal.Get(key)
		if v == nil {
			return ErrEntryNotFound
		}

		entry, err := decodeEntry(v)
		if err != nil {
			return err
		}

		if err := requests.Delete(requestKey(entry.RequestID, entry.ID)); err != nil {
			return fmt.Errorf("failed to delete index: %w", err)
		}

		return journal.Delete(key)
	})
}

// Close closes the database
func (r *BboltRepository) Close() error {
	return r.db.Close()
}

func decodeEntry(data []byte) (*Entry, error) {
	entry := &Entry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return entry, nil
}
