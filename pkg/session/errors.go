package session

import "github.com/pkg/errors"

var (
	ErrSessionLimit  = errors.New("session limit reached")
	ErrSessionClosed = errors.New("session is closed")
	ErrConnClosed    = errors.New("connection is closed")
)
