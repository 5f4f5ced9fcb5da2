// Package history persists completed transcriptions in an embedded
// Badger database so past dictations survive restarts.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/voicedrop/voicedrop/internal/types"
)

// keyPrefix namespaces transcription records inside the database.
const keyPrefix = "t:"

// Store is a transcription history backed by a Badger database.
type Store struct {
	db *badger.DB
}

// Open opens the history database in dir, creating it if needed.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores one completed transcription. A missing ID or creation
// time is filled in.
func (s *Store) Append(ctx context.Context, rec types.Transcription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal transcription: %w", err)
	}

	key := recordKey(rec.CreatedAt, rec.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
	if err != nil {
		return fmt.Errorf("store transcription: %w", err)
	}
	return nil
}

// Recent returns up to n transcriptions, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]types.Transcription, error) {
	if n <= 0 {
		return nil, nil
	}

	var records []types.Transcription
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(records) < n; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var rec types.Transcription
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("unmarshal transcription: %w", err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// recordKey embeds the creation time inverted so Badger's ascending
// iteration yields records newest first.
func recordKey(at time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", keyPrefix, math.MaxInt64-at.UnixNano(), id)
}
