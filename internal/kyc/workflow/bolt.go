package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.etcd.io/bbolt"
)

var bucketEntries = []byte("workflows")

// ErrEntryNotFound is returned by BoltJournal.Get for unknown ids.
var ErrEntryNotFound = errors.New("workflow entry not found")

// BoltJournal keeps the latest entry per workflow id in a bbolt file.
type BoltJournal struct {
	db *bbolt.DB
}

// OpenBoltJournal opens or creates the database at path, creating the parent
// directory if needed.
func OpenBoltJournal(path string) (*BoltJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("journal: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create bucket: %w", err)
	}
	return &BoltJournal{db: db}, nil
}

func (j *BoltJournal) Close() error { return j.db.Close() }

// Record upserts e. CreatedAt of an existing entry is kept.
func (j *BoltJournal) Record(_ context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("journal: entry id is required")
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if prev := b.Get([]byte(e.ID)); prev != nil {
			var old Entry
			if err := json.Unmarshal(prev, &old); err == nil && !old.CreatedAt.IsZero() {
				e.CreatedAt = old.CreatedAt
			}
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("journal: encode entry: %w", err)
		}
		return b.Put([]byte(e.ID), data)
	})
}

func (j *BoltJournal) Get(_ context.Context, id string) (*Entry, error) {
	var e Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntries).Get([]byte(id))
		if data == nil {
			return ErrEntryNotFound
		}
		return json.Unmarshal(data, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns entries in state (all states when empty), most recently
// updated first, at most limit entries (no limit when limit <= 0).
func (j *BoltJournal) List(_ context.Context, state State, limit int) ([]Entry, error) {
	var out []Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("journal: decode entry: %w", err)
			}
			if state == "" || e.State == state {
				out = append(out, e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].UpdatedAt.After(out[b].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Journal = (*BoltJournal)(nil)
