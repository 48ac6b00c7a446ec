package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or missing.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyMessage is returned when a notification has no message text.
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrInvalidNotificationType is returned when a notification type is not
	// one of the closed enumeration values.
	ErrInvalidNotificationType = errors.New("invalid notification type")

	// ErrInvalidAction is returned when an activity action is not valid.
	ErrInvalidAction = errors.New("invalid activity action")

	// ErrInconsistentReadState is returned when a notification's read flag
	// and read timestamp disagree.
	ErrInconsistentReadState = errors.New("read flag and read_at timestamp are inconsistent")
)
