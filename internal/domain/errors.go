package domain

import "errors"

// Store-boundary errors shared by every task store implementation.
var (
	ErrTaskNotFound = errors.New("task not found")
	ErrForbidden    = errors.New("task belongs to another owner")
)
