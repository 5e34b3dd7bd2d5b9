package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies every failure the registry can report.
type Kind string

const (
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindAlreadyExists   Kind = "already_exists"
	KindUnauthorized    Kind = "unauthorized"
	KindForbiddenRemote Kind = "forbidden_remote"
	KindUnavailable     Kind = "unavailable"
	KindInvalidArgument Kind = "invalid_argument"
	KindInternal        Kind = "internal"
)

// Sentinels for errors.Is. Matching is done on Kind, so any *Error with the
// same kind satisfies errors.Is(err, ErrNotFound).
var (
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "Forbidden"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "Not found"}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists, Message: "Already exists"}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrForbiddenRemote = &Error{Kind: KindForbiddenRemote, Message: "Forbidden"}
	ErrUnavailable     = &Error{Kind: KindUnavailable, Message: "Unavailable"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Message: "Invalid argument"}
	ErrInternal        = &Error{Kind: KindInternal, Message: "Internal Server Error"}
)

// Error is the tagged failure returned by every registry operation.
type Error struct {
	Kind Kind
	// Safe message for the client
	Message string
	// Original error for internal logging
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a tagged error with a client safe message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError tags err with kind, keeping err for logging and errors.Is.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ForbiddenError() *Error {
	return NewError(KindForbidden, "Forbidden")
}

func NotFoundError(msg string) *Error {
	return NewError(KindNotFound, msg)
}

func AlreadyExistsError(msg string) *Error {
	return NewError(KindAlreadyExists, msg)
}

func InvalidArgumentError(msg string) *Error {
	return NewError(KindInvalidArgument, msg)
}

func UnavailableError(msg string, err error) *Error {
	return WrapError(KindUnavailable, msg, err)
}

func InternalError(msg string, err error) *Error {
	return WrapError(KindInternal, msg, err)
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal Server Error"
}

// HTTPStatus maps a kind to the status code used by the admin API.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindForbidden, KindForbiddenRemote:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists, KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Problem implements RFC 9457
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`

	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	type Alias Problem

	data := make(map[string]interface{})

	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, _ := json.Marshal(Alias(*p))
	_ = json.Unmarshal(stdJSON, &data)

	return json.Marshal(data)
}

type ProblemOption func(*Problem)

// NewProblem creates a generic Problem
func NewProblem(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank",
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtension adds a custom key-value pair to the response
func WithExtension(key string, value interface{}) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// ProblemFrom renders any error as a problem document. The detail carries the
// client safe message only; the full chain is kept in Log.
func ProblemFrom(err error) *Problem {
	var p *Problem
	if errors.As(err, &p) {
		return p
	}

	kind := KindOf(err)
	status := kind.HTTPStatus()

	var log error
	if kind == KindInternal || kind == KindUnavailable {
		log = err
	}

	return NewProblem(
		status,
		http.StatusText(status),
		MessageOf(err),
		WithExtension("kind", string(kind)),
		WithLog(log),
	)
}

// ValidationError creates a rich validation error
func ValidationError(validationErrors map[string]string) *Problem {
	return NewProblem(
		http.StatusBadRequest,
		"Validation Error",
		"One or more fields failed validation",
		WithExtension("kind", string(KindInvalidArgument)),
		WithExtension("errors", validationErrors),
	)
}
