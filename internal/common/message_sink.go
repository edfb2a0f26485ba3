package common

import (
	"errors"
	"sync/atomic"
)

// ErrSinkSealed is returned by MessageSink.Send once the sink has been
// sealed, i.e. the owner has indicated that no more messages are accepted.
var ErrSinkSealed = errors.New("message sink is sealed")

// ErrSinkFull is returned by TrySend when the underlying channel has no
// spare capacity and the caller asked not to block.
var ErrSinkFull = errors.New("message sink is full")

// MessageSink tags every message it forwards with a fixed sender identity,
// so that N producers (e.g. N endpoints) can share one consumer channel (the
// Engine's mailbox) without being able to forge each other's identity.
type MessageSink[SenderType comparable, MessageType any] struct {
	sender      SenderType
	messageSink chan<- Message[SenderType, MessageType]
	sealed      atomic.Bool
}

func NewMessageSink[S comparable, M any](sender S, messageSink chan<- Message[S, M]) *MessageSink[S, M] {
	return &MessageSink[S, M]{sender: sender, messageSink: messageSink}
}

// Send blocks if the sink is full.
func (s *MessageSink[S, M]) Send(message M) error {
	return s.send(message, false)
}

// TrySend never blocks; it returns ErrSinkFull instead.
func (s *MessageSink[S, M]) TrySend(message M) error {
	return s.send(message, true)
}

func (s *MessageSink[S, M]) send(message M, nonBlocking bool) error {
	if s.sealed.Load() {
		return ErrSinkSealed
	}

	wrapped := Message[S, M]{Sender: s.sender, Content: message}

	if nonBlocking {
		select {
		case s.messageSink <- wrapped:
			return nil
		default:
			return ErrSinkFull
		}
	}

	s.messageSink <- wrapped
	return nil
}

// Seal prevents any further sends over this sink. The underlying channel is
// left open since other senders may still be using it.
func (s *MessageSink[S, M]) Seal() {
	s.sealed.Store(true)
}

// Message wraps a payload with the identity of whoever produced it.
type Message[SenderType comparable, MessageType any] struct {
	Sender  SenderType
	Content MessageType
}
