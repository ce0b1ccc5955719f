package storage

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

type fakeRepository struct {
	appended []domain.Message
	fail     error
}

func (r *fakeRepository) Append(message domain.Message) error {
	if r.fail != nil {
		return r.fail
	}
	r.appended = append(r.appended, message)
	return nil
}

func (r *fakeRepository) Recent(limit int) ([]domain.Message, error) {
	return r.appended, nil
}

func TestHistorySink_Persists_Accepted_Messages(t *testing.T) {
	req := require.New(t)
	repository := &fakeRepository{}
	sink := NewHistorySink(repository, slog.Default())

	sink.Consume(domain.NewMessage("alice", "for the record"))

	req.Len(repository.appended, 1)
	req.Equal("for the record", repository.appended[0].Body)
}

func TestHistorySink_Swallows_Store_Failures(t *testing.T) {
	req := require.New(t)
	repository := &fakeRepository{fail: fmt.Errorf("disk full")}
	sink := NewHistorySink(repository, slog.Default())

	// Persistence is best-effort, a failing store must never panic or block
	req.NotPanics(func() { sink.Consume(domain.NewMessage("alice", "lost")) })
}
