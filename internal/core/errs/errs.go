package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure talking to a remote provider
type Kind string

const (
	KindUnauthorized  Kind = "unauthorized"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindProviderError Kind = "provider_error"
	KindNetworkError  Kind = "network_error"
)

// Sentinel errors, one per kind. Match with errors.Is.
var (
	// ErrUnauthorized indicates a missing or invalid session or token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates a path, branch or repository does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a failed hash precondition or a branch name collision.
	ErrConflict = errors.New("conflict")

	// ErrProviderError indicates an upstream non-success status not covered above.
	ErrProviderError = errors.New("provider error")

	// ErrNetworkError indicates the request could not complete.
	ErrNetworkError = errors.New("network error")
)

var sentinels = map[Kind]error{
	KindUnauthorized:  ErrUnauthorized,
	KindNotFound:      ErrNotFound,
	KindConflict:      ErrConflict,
	KindProviderError: ErrProviderError,
	KindNetworkError:  ErrNetworkError,
}

// Error is a provider failure with the upstream status and message kept verbatim
type Error struct {
	Kind    Kind
	Op      string // e.g. "github.write_file"
	Status  int    // upstream HTTP status, 0 for network failures
	Message string // upstream message
	Err     error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Is lets errors.Is(err, errs.ErrConflict) match any *Error of that kind
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error
func New(kind Kind, op string, status int, message string) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Message: message}
}

// Network wraps a transport failure
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetworkError, Op: op, Message: err.Error(), Err: err}
}

// FromStatus maps an HTTP status to a kind. Callers refine 422s themselves.
func FromStatus(op string, status int, message string) *Error {
	kind := KindProviderError
	switch status {
	case http.StatusUnauthorized:
		kind = KindUnauthorized
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusConflict:
		kind = KindConflict
	}
	return New(kind, op, status, message)
}

// KindOf returns the kind of err, or "" if err carries none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}

// HTTPStatus maps err to the status the API answers with
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindProviderError, KindNetworkError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
