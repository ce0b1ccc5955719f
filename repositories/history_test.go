package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Append_And_Recent_Round_Trip(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openTestDB(t), slog.Default())

	at := time.Date(2025, 4, 16, 10, 0, 0, 0, time.Local)
	stored := []domain.Message{
		{Sender: "alice", Body: "first", SentAt: at},
		{Sender: "bob", Body: "second", SentAt: at.Add(1 * time.Minute)},
		{Sender: "clara", Body: "third", SentAt: at.Add(2 * time.Minute)},
	}
	for _, message := range stored {
		req.NoError(repository.Append(message))
	}

	fetched, err := repository.Recent(0)
	req.NoError(err)
	req.Len(fetched, len(stored))

	// Newest first
	req.Equal("third", fetched[0].Body)
	req.Equal("second", fetched[1].Body)
	req.Equal("first", fetched[2].Body)
	req.True(stored[2].SentAt.Equal(fetched[0].SentAt))
}

func Test_Recent_Honors_Limit(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openTestDB(t), slog.Default())

	at := time.Date(2025, 4, 16, 10, 0, 0, 0, time.Local)
	for i, sender := range []string{"alice", "bob", "clara"} {
		message := domain.Message{Sender: sender, Body: "same old story", SentAt: at.Add(time.Duration(i) * time.Minute)}
		req.NoError(repository.Append(message))
	}

	fetched, err := repository.Recent(2)
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal("clara", fetched[0].Sender)
	req.Equal("bob", fetched[1].Sender)
}

func Test_Recent_Skips_Undecodable_Entries(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewHistoryRepository(db, slog.Default())

	req.NoError(repository.Append(domain.NewMessage("alice", "kept")))

	// Given a stored line that no longer parses as a message
	err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("msg:0000000000000000001:corrupt"), []byte("garbage"))
	})
	req.NoError(err)

	fetched, err := repository.Recent(0)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("kept", fetched[0].Body)
}

func Test_Recent_On_Empty_Store(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openTestDB(t), slog.Default())

	fetched, err := repository.Recent(10)
	req.NoError(err)
	req.Empty(fetched)
}
