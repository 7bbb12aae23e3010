package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type Repository interface {
	ListAll(ctx context.Context) ([]Record, error)
	// Upsert updates the record for (date, subject) if it exists, or inserts a new one.
	Upsert(ctx context.Context, date Date, subject string, status Status) (Record, error)
	DeleteOne(ctx context.Context, date Date, subject string) error
	DeleteAllForDate(ctx context.Context, date Date) error
}

var _ Repository = &Store{}

// KeyPrefix is the prefix of every attendance key in badger.
const KeyPrefix = "attendance/"

type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) ListAll(_ context.Context) ([]Record, error) {
	records := make([]Record, 0)
	if err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(KeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record Record
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &record)
			}); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	}); err != nil {
		return nil, OperationFailed("list attendance", err)
	}
	return records, nil
}

func (s *Store) FindByDateSubject(_ context.Context, date Date, subject string) (*Record, error) {
	var record Record
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(Key(date, subject))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		})
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, OperationFailed("find attendance", err)
	}
	return &record, nil
}

func (s *Store) Upsert(_ context.Context, date Date, subject string, status Status) (Record, error) {
	var record Record
	if err := s.db.Update(func(txn *badger.Txn) error {
		key := Key(date, subject)
		now := time.Now().UTC()
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			record = Record{
				ID:        NewID(),
				Date:      date,
				Subject:   subject,
				CreatedAt: now,
			}
		case err != nil:
			return err
		default:
			if err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &record)
			}); err != nil {
				return err
			}
		}
		record.Status = status
		record.UpdatedAt = now
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	}); err != nil {
		return Record{}, OperationFailed("upsert attendance", err)
	}
	return record, nil
}

func (s *Store) DeleteOne(_ context.Context, date Date, subject string) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(Key(date, subject))
	}); err != nil {
		return OperationFailed("delete attendance", err)
	}
	return nil
}

func (s *Store) DeleteAllForDate(_ context.Context, date Date) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := datePrefix(date)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return OperationFailed("delete attendance for date", err)
	}
	return nil
}

func Key(date Date, subject string) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", KeyPrefix, date, subject))
}

func datePrefix(date Date) []byte {
	return []byte(fmt.Sprintf("%s%s/", KeyPrefix, date))
}
