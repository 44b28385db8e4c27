package repositories

import (
	"testing"

	"skillxchange/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func Test_Messages_Walks_Every_Record(t *testing.T) {
	req := require.New(t)
	repository := newRepository(t, 0)

	first, err := repository.Save(send("alice", "bob", "hi"))
	req.NoError(err)
	second, err := repository.Save(send("bob", "alice", "hello"))
	req.NoError(err)

	// A corrupted record does not stop the walk
	req.NoError(repository.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("msg:broken"), []byte{0xFF, 0xFF})
	}))

	seen := map[string]domain.Message{}
	var broken []string
	req.NoError(Messages(repository.db, func(key string, message domain.Message, err error) error {
		if err != nil {
			broken = append(broken, key)
			return nil
		}
		seen[key] = message
		return nil
	}))

	req.Equal([]string{"msg:broken"}, broken)
	req.Equal(map[string]domain.Message{
		"msg:" + first.ID.String():  first,
		"msg:" + second.ID.String(): second,
	}, seen)
}
