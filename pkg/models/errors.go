package models

import "errors"

var (
	// ErrNotFound is returned when no article, author or keyword matches.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks a missing or malformed request field.
	ErrValidation = errors.New("validation failed")
	// ErrTransport marks a failed call to the completion service.
	ErrTransport = errors.New("completion service error")
	// ErrParse marks input or model output that could not be parsed.
	ErrParse = errors.New("parse error")
)
