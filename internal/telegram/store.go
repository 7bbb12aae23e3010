package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	chatsPrefix      = "telegram/chats/"
	updatesOffsetKey = "telegram/updates/offset"
)

type Store struct {
	db *badger.DB
}

func NewStore(
	db *badger.DB,
) *Store {
	return &Store{
		db: db,
	}
}

func chatKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%d", chatsPrefix, id))
}

func (s *Store) InsertChat(_ context.Context, chat *Chat) error {
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(chat)
		if err != nil {
			return err
		}
		return txn.Set(chatKey(chat.ID), data)
	})
}

// DeleteChat unsubscribes a chat. Deleting an unknown chat is not an error.
func (s *Store) DeleteChat(_ context.Context, id int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chatKey(id))
	})
}

func (s *Store) ListChats(_ context.Context) ([]Chat, error) {
	chats := make([]Chat, 0)
	if err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(chatsPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var chat Chat
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &chat)
			}); err != nil {
				return err
			}
			chats = append(chats, chat)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *Store) SetUpdatesOffset(_ context.Context, offset int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(updatesOffsetKey), []byte(fmt.Sprintf("%d", offset)))
	})
}

func (s *Store) GetUpdatesOffset(_ context.Context) (int, error) {
	var offset int
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(updatesOffsetKey))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			_, err := fmt.Sscanf(string(value), "%d", &offset)
			return err
		})
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return offset, nil
}
