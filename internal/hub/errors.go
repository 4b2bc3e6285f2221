package hub

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrInvalidRoom       = errors.New("invalid room")
	ErrConnClosed        = errors.New("connection closed")
	ErrHubClosed         = errors.New("hub closed")
	ErrNoVerifier        = errors.New("no token verifier configured")
)
