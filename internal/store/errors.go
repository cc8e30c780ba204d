package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidTransition = errors.New("invalid state transition")

	ErrNameTaken    = fmt.Errorf("name %w", ErrAlreadyExists)
	ErrTriggerTaken = fmt.Errorf("trigger word %w", ErrAlreadyExists)

	ErrTooManyImages      = errors.New("too many images")
	ErrInsufficientImages = errors.New("insufficient images")
	ErrNoImages           = errors.New("complete requires at least one image")
	ErrActive             = errors.New("lora is active")
)

// StateError reports the state an entity was in when an operation was
// refused. It matches ErrInvalidTransition.
type StateError struct {
	Op     string
	Status string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed from %q state", e.Op, e.Status)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidTransition
}

// LimitError carries the counts behind an image limit violation.
type LimitError struct {
	Err     error
	Current int
	Adding  int
	Limit   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v (current: %d, adding: %d, limit: %d)", e.Err, e.Current, e.Adding, e.Limit)
}

func (e *LimitError) Unwrap() error {
	return e.Err
}
