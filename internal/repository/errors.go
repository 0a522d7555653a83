package repository

import "errors"

// Common repository errors
var (
	// ErrTaskNotFound is returned when a task is not found
	ErrTaskNotFound = errors.New("task not found")

	// ErrShareNotFound is returned when a task share is not found
	ErrShareNotFound = errors.New("task share not found")

	// ErrShareExists is returned when a task is already shared with an email
	ErrShareExists = errors.New("task is already shared with this email")
)
