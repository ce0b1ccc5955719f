package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/domain"
)

const keyPrefix = "msg:"

// seekSuffix sorts after every zero-padded nanosecond timestamp, so a
// reverse iterator lands on the newest stored message first.
const seekSuffix = "9999999999999999999"

// HistoryRepository persists accepted messages in BadgerDB. Values are the
// message's wire encoding, the same line that traveled over the network.
type HistoryRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewHistoryRepository(db *badger.DB, log *slog.Logger) HistoryRepository {
	return HistoryRepository{db: db, log: log}
}

// Append stores one message.
// The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func (r HistoryRepository) Append(message domain.Message) error {
	key := fmt.Sprintf("%s%019d:%s", keyPrefix, message.SentAt.UnixNano(), uuid.NewString())
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(message.Encode()))
	})
}

// Recent returns up to limit stored messages, newest first; limit <= 0 means
// no limit. A stored line that no longer decodes is logged and skipped, it
// never fails the whole read.
func (r HistoryRepository) Recent(limit int) ([]domain.Message, error) {
	var lines []string
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append([]byte(keyPrefix), []byte(seekSuffix)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(lines) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				lines = append(lines, string(value))
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

	messages := lo.FilterMap(lines, func(line string, _ int) (domain.Message, bool) {
		message, err := domain.Decode(line)
		if err != nil {
			r.log.Warn("Skipping undecodable history entry", "error", err)
			return domain.Message{}, false
		}
		return message, true
	})
	return messages, nil
}
