package model

import "errors"

// Common errors used across the application
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyCatalog       = errors.New("item catalog is empty")
)
