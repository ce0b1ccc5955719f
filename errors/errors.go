package errors

import "fmt"

var (
	ErrMalformedMessage = fmt.Errorf("malformed message")
	ErrNotConnected     = fmt.Errorf("not connected")
	ErrOutboxFull       = fmt.Errorf("peer outbox full")
)
