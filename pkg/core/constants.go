package core

import "errors"

// Errors
var (
	// ErrInvalidOrder rejects a single event with an unknown type or side,
	// a non-positive id, or an unusable price.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidQuantity rejects an event whose volume is not positive.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrNotFound is returned when a cancel target is not live in any queue.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyQueue is returned by peek/pop on a queue without live entries.
	// The engine never expects it and panics when it surfaces during matching.
	ErrEmptyQueue = errors.New("queue is empty")
)
