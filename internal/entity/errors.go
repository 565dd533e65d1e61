package entity

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden: access denied")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUserExists        = errors.New("user with this email already exists")

	ErrTaskNotFound         = wrapNotFound("task")
	ErrUserNotFound         = wrapNotFound("user")
	ErrNotificationNotFound = wrapNotFound("notification")
)

type notFoundError struct {
	what string
}

func wrapNotFound(what string) error {
	return &notFoundError{what: what}
}

func (e *notFoundError) Error() string {
	return e.what + " not found"
}

func (e *notFoundError) Unwrap() error {
	return ErrNotFound
}

// ValidationError - ошибки валидации по полям
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// Err возвращает nil, если ошибок нет
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
