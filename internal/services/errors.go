package services

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorUnavailable  ErrorCode = "unavailable"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewUnavailableError(msg string) error {
	return &ServiceError{Code: ErrorUnavailable, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrCatalogUnavailable means the news catalog source is unreachable or malformed.
	// Fatal to starting a session; nothing is partially started.
	ErrCatalogUnavailable = errors.New("news catalog unavailable")
	// ErrInvalidCount means the requested item count is not divisible across the
	// categories or a category lacks inventory.
	ErrInvalidCount = errors.New("news count not satisfiable")
	// ErrDuplicateAnswer means the current item already has a recorded answer.
	ErrDuplicateAnswer = errors.New("answer already recorded for this item")
	// ErrIncompleteAnswer means the supplied answer does not cover every model, or a
	// score is outside the accepted range.
	ErrIncompleteAnswer = errors.New("incomplete answer")
	// ErrInvalidDemographics means the demographic fields fail validation.
	ErrInvalidDemographics = errors.New("invalid demographics")
	// ErrMissingSessionID indicates a state-machine precondition violation; it should
	// never occur when transitions are enforced.
	ErrMissingSessionID = errors.New("session id missing")
)

// Stages of the two-step persistence write.
const (
	StageSessionRecord = "session-record"
	StageAnswerRows    = "answer-rows"
)

// PersistenceError reports which stage of the two-step write failed. The session keeps
// its answers so the respondent can retry.
type PersistenceError struct {
	Stage string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed at %s: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
