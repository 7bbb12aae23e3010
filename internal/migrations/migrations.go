package migrations

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/attendancetracker/internal/attendance"
)

// VersionKey holds the number of migrations applied to the database.
const VersionKey = "migrations/version"

// LegacyPrefix is the prefix of records keyed by id, the first layout of the
// attendance store, before records were keyed by date and subject.
const LegacyPrefix = "records/"

type migration struct {
	name string
	run  func(*badger.DB) error
}

// migrations are applied in order, each exactly once. Append only.
var migrations = []migration{
	{name: "move records to date keys", run: moveRecordsToDateKeys},
}

func Run(db *badger.DB) error {
	version, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("current version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		m := migrations[i]
		if err := m.run(db); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
		if err := setVersion(db, i+1); err != nil {
			return fmt.Errorf("set version: %w", err)
		}
		slog.Info("migration applied", "name", m.name, "version", i+1)
	}
	return nil
}

func currentVersion(db *badger.DB) (int, error) {
	version := 0
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(VersionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			version, err = strconv.Atoi(string(value))
			return err
		})
	})
	return version, err
}

func setVersion(db *badger.DB, version int) error {
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(VersionKey), []byte(strconv.Itoa(version)))
	})
}

// moveRecordsToDateKeys rewrites records/<id> into attendance/<date>/<subject>.
// When a date and subject already has a record, the most recently updated one wins.
func moveRecordsToDateKeys(db *badger.DB) error {
	return db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(LegacyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			oldKey := it.Item().KeyCopy(nil)
			var legacy attendance.Record
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &legacy)
			}); err != nil {
				return fmt.Errorf("decode %q: %w", oldKey, err)
			}
			if legacy.Date.IsZero() || legacy.Subject == "" {
				return fmt.Errorf("%q: record without date or subject", oldKey)
			}

			newKey := attendance.Key(legacy.Date, legacy.Subject)
			keep, err := isNewer(txn, newKey, legacy)
			if err != nil {
				return err
			}
			if keep {
				data, err := json.Marshal(legacy)
				if err != nil {
					return err
				}
				if err := txn.Set(newKey, data); err != nil {
					return fmt.Errorf("failed to set new key: %w", err)
				}
			}
			if err := txn.Delete(oldKey); err != nil {
				return fmt.Errorf("delete old key: %w", err)
			}
			slog.Info(
				"attendance record migrated",
				"old_key", string(oldKey),
				"new_key", string(newKey),
				"kept", keep)
		}
		return nil
	})
}

func isNewer(txn *badger.Txn, key []byte, record attendance.Record) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	var existing attendance.Record
	if err := item.Value(func(value []byte) error {
		return json.Unmarshal(value, &existing)
	}); err != nil {
		return false, err
	}
	return record.UpdatedAt.After(existing.UpdatedAt), nil
}
