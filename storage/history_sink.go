package storage

import (
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
)

// HistorySink hands every accepted message to the history repository.
// Persistence is best-effort: a store failure is logged and the message is
// still relayed, the broadcast path never waits on storage semantics.
type HistorySink struct {
	repository contract.HistoryRepository
	log        *slog.Logger
}

func NewHistorySink(repository contract.HistoryRepository, log *slog.Logger) HistorySink {
	return HistorySink{repository: repository, log: log}
}

func (s HistorySink) Consume(message domain.Message) {
	if err := s.repository.Append(message); err != nil {
		s.log.Error("History append failed", "error", err)
	}
}
