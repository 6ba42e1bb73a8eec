package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNetwork             = errors.New("network failure")
	ErrServer              = errors.New("server failure")
	ErrNotAuthenticated    = errors.New("must be authenticated")
	ErrNoRefreshCredential = errors.New("no refresh token available")
)
