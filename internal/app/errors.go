package app

import "errors"

var (
	// ErrUnauthenticated indicates that no usable bearer token was presented.
	ErrUnauthenticated = errors.New("authentication token required")
	// ErrInvalidCredential indicates a token with a bad signature or shape.
	ErrInvalidCredential = errors.New("invalid token")
	// ErrExpiredCredential indicates a correctly signed token past its expiry.
	ErrExpiredCredential = errors.New("token expired")
	// ErrNotFoundOrForbidden is returned both for missing stories and for
	// stories owned by someone else.
	ErrNotFoundOrForbidden = errors.New("travel story not found")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUpstream indicates a store or media host failure.
	ErrUpstream = errors.New("upstream service failure")
	// ErrInvalidLogin indicates that the provided email or password was incorrect.
	ErrInvalidLogin = errors.New("invalid email or password")
	// ErrUserExists indicates that the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnverifiedEmail indicates an SSO login whose email the provider has
	// not verified.
	ErrUnverifiedEmail = errors.New("email not verified by identity provider")
	// ErrMediaNotFound indicates that the media host has no such object.
	ErrMediaNotFound = errors.New("image not found")
)

// ValidationError carries a message that is safe to show to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}
