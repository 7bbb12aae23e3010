package keys

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func TestParseKey(t *testing.T) {
	key, err := NewKey()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseKey(key.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.String() != key.String() {
		t.Fatal("expected encoded key to round trip")
	}

	if _, err := ParseKey("0123456789abcdef"); err != nil {
		t.Fatalf("expected raw 16 byte key to be valid, got %v", err)
	}
	if _, err := ParseKey("please-change-me!"); err == nil {
		t.Fatal("expected error for 17 byte key")
	}
}

func TestApply(t *testing.T) {
	key, err := NewKey()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	db, err := badger.Open(key.Apply(badger.DefaultOptions(dir).WithLogger(nil)))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("hello"), []byte("world"))
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	other, err := NewKey()
	if err != nil {
		t.Fatal(err)
	}
	if db, err := badger.Open(other.Apply(badger.DefaultOptions(dir).WithLogger(nil))); err == nil {
		db.Close()
		t.Fatal("expected error opening with a different key")
	}

	db, err = badger.Open(key.Apply(badger.DefaultOptions(dir).WithLogger(nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("hello"))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			if string(value) != "world" {
				t.Fatalf("unexpected value %q", value)
			}
			return nil
		})
	}); err != nil {
		t.Fatal(err)
	}

	if opts := Key(nil).Apply(badger.DefaultOptions(dir)); len(opts.EncryptionKey) != 0 {
		t.Fatal("expected empty key to leave options unchanged")
	}
}
