package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind - тег категории ошибки. Значения совпадают с кодами в JSON-ответах
// и в журнале ошибок генерации.
type ErrorKind string

const (
	KindConfiguration      ErrorKind = "CONFIGURATION_ERROR"
	KindMissingToken       ErrorKind = "MISSING_TOKEN"
	KindInvalidAuthHeader  ErrorKind = "INVALID_AUTHORIZATION_HEADER"
	KindInvalidToken       ErrorKind = "INVALID_TOKEN"
	KindAuth               ErrorKind = "AUTH_ERROR"
	KindRateLimit          ErrorKind = "RATE_LIMIT"
	KindServer             ErrorKind = "SERVER_ERROR"
	KindTimeout            ErrorKind = "TIMEOUT"
	KindResponseValidation ErrorKind = "VALIDATION_ERROR"
	KindUpstream           ErrorKind = "UPSTREAM_ERROR"
)

// Причины (подвиды) для INVALID_TOKEN и VALIDATION_ERROR.
const (
	ReasonExpired        = "expired"
	ReasonEmptyContent   = "empty_content"
	ReasonMalformedJSON  = "malformed_json"
	ReasonSchemaMismatch = "schema_mismatch"
)

// Violation описывает одно нарушение схемы ответа.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Error - единый тип ошибки подсистемы авторизации и клиента LLM.
// errors.Is сравнивает только Kind, поэтому достаточно сравнить с сентинелом:
//
//	if errors.Is(err, models.ErrRateLimit) { ... }
type Error struct {
	Kind       ErrorKind
	Reason     string
	Message    string
	StatusCode int
	Violations []Violation
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(e.Reason)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is сопоставляет ошибки по Kind. Если у цели задан Reason, он тоже должен совпасть.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Сентинелы для errors.Is.
var (
	ErrConfiguration      = &Error{Kind: KindConfiguration}
	ErrMissingToken       = &Error{Kind: KindMissingToken}
	ErrInvalidAuthHeader  = &Error{Kind: KindInvalidAuthHeader}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
	ErrTokenExpired       = &Error{Kind: KindInvalidToken, Reason: ReasonExpired}
	ErrAuth               = &Error{Kind: KindAuth}
	ErrRateLimit          = &Error{Kind: KindRateLimit}
	ErrServer             = &Error{Kind: KindServer}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrResponseValidation = &Error{Kind: KindResponseValidation}
	ErrUpstream           = &Error{Kind: KindUpstream}
)

// Ошибки пользователей и запросов.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrBadRequest         = errors.New("bad request")
	ErrInvalidInput       = errors.New("invalid input data")
)

// NewError создает ошибку указанного вида.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError создает ошибку указанного вида с исходной причиной.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf возвращает Kind первой *Error в цепочке.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsAuthorizationError - true для семейства ошибок авторизации запроса.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidAuthHeader) ||
		errors.Is(err, ErrInvalidToken)
}

// IsRetryable - true для видов ошибок, при которых запрос к LLM повторяется.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrServer)
}
