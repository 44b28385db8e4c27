package repositories

import (
	"fmt"

	"skillxchange/domain"
	"skillxchange/errors"

	"github.com/dgraph-io/badger/v4"
)

const messagePrefix = "msg:"

// Messages walks every stored message record in key order. A record that
// cannot be decoded is handed to fn with its error instead of stopping the walk.
func Messages(db *badger.DB, fn func(key string, message domain.Message, err error) error) error {
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(messagePrefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var message domain.Message
			var decodeErr error
			if err := item.Value(func(value []byte) error {
				message, decodeErr = decodeMessage(value)
				return nil
			}); err != nil {
				return err
			}
			if err := fn(string(item.KeyCopy(nil)), message, decodeErr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return nil
}
