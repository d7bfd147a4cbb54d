package domain

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrUnsupportedService = errors.New("unsupported school service")
	ErrUnsupportedDomain  = errors.New("refresh domain not supported by service")
	ErrSessionExpired     = errors.New("school service session expired")
	ErrTaskNotRegistered  = errors.New("task not registered")
	ErrTaskNotDefined     = errors.New("task not defined")
	ErrCycleInProgress    = errors.New("refresh cycle already in progress")
)
