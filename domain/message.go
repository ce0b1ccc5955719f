// Package domain contains core concepts of the chat system.
// This file defines the chat Message and its wire codec.
// Messages are immutable values; every decoded frame yields a fresh one.
package domain

import (
	"fmt"
	"strings"
	"time"

	"chat-relay/errors"
)

// TimeLayout is the timestamp format carried on the wire, second resolution,
// interpreted in local time.
const TimeLayout = "2006-01-02 15:04:05"

// Message represents one chat message.
type Message struct {
	Sender string
	Body   string
	SentAt time.Time
}

// NewMessage builds a message stamped with the current local time.
func NewMessage(sender, body string) Message {
	return Message{
		Sender: sender,
		Body:   body,
		SentAt: time.Now(),
	}
}

// SetBody replaces the content and refreshes the timestamp.
// Used only by local editing flows, never on the network path.
func (m *Message) SetBody(body string) {
	m.Body = body
	m.SentAt = time.Now()
}

// Encode renders the single-line wire representation:
//
//	sender @ body | YYYY-MM-DD HH:MM:SS
//
// Fields are not escaped: '@' and '|' are structurally reserved and callers
// must keep them out of sender and body (known protocol limitation).
func (m Message) Encode() string {
	return fmt.Sprintf("%s @ %s | %s", m.Sender, m.Body, m.SentAt.Format(TimeLayout))
}

// Decode parses a wire frame back into a Message.
//
// The sender is everything before the first '@', the body everything between
// that '@' and the first following '|', the timestamp the remainder.
// Whitespace adjacent to the delimiters is trimmed. Decode is the exact left
// inverse of Encode for any message whose fields contain no '@' or '|'.
func Decode(frame string) (Message, error) {
	if frame == "" {
		return Message{}, fmt.Errorf("%w: empty frame", errors.ErrMalformedMessage)
	}

	at := strings.Index(frame, "@")
	if at < 0 {
		return Message{}, fmt.Errorf("%w: missing '@' separator", errors.ErrMalformedMessage)
	}
	rest := frame[at+1:]

	pipe := strings.Index(rest, "|")
	if pipe < 0 {
		return Message{}, fmt.Errorf("%w: missing '|' separator", errors.ErrMalformedMessage)
	}

	sender := strings.TrimSpace(frame[:at])
	if sender == "" {
		return Message{}, fmt.Errorf("%w: empty sender", errors.ErrMalformedMessage)
	}

	body := strings.TrimSpace(rest[:pipe])
	if body == "" {
		return Message{}, fmt.Errorf("%w: empty body", errors.ErrMalformedMessage)
	}

	stamp := strings.TrimSpace(rest[pipe+1:])
	if stamp == "" {
		return Message{}, fmt.Errorf("%w: empty timestamp", errors.ErrMalformedMessage)
	}

	sentAt, err := time.ParseInLocation(TimeLayout, stamp, time.Local)
	if err != nil {
		return Message{}, fmt.Errorf("%w: bad timestamp %q", errors.ErrMalformedMessage, stamp)
	}

	return Message{Sender: sender, Body: body, SentAt: sentAt}, nil
}
