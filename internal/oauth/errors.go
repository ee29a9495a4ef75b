package oauth

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExchange = errors.New("withings token exchange failed")
	ErrNoToken       = errors.New("no token found - please authenticate first")
	ErrTokenExpired  = errors.New("token expired and no refresh token available")
)

type Op string

const (
	OpAuthorizationCode Op = "authorization_code"
	OpRefresh           Op = "refresh_token"
)

// StatusError is a non-zero Withings status (or unexpected HTTP status) from the token endpoint.
type StatusError struct {
	Op      Op
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: Received error code: %d", e.Op, e.Status)
	if e.Message != "" {
		msg += " (" + e.Message + ")"
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return ErrTokenExchange
}

const (
	HelpStatusURL   = "http://developer.withings.com/api-reference#section/Response-status"
	HelpInvalidCode = "If it's regarding an invalid code, try to start the script again to obtain a new link."
)
