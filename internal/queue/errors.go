package queue

import "errors"

// Domain errors for the queue package.
var (
	// ErrFull is returned when a push finds every slot in use.
	ErrFull = errors.New("queue: full")

	// ErrEmpty is returned by Pop and Peek on an empty queue.
	ErrEmpty = errors.New("queue: empty")

	// ErrEmptyMessage is returned when pushing a zero-length message.
	ErrEmptyMessage = errors.New("queue: empty message")
)
