package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates that the caller lacks the role required for the operation.
var ErrForbidden = errors.New("access forbidden")

// ErrInvalidState indicates that the aggregate does not permit the requested
// transition (e.g. paying an invoice that is already PAID).
var ErrInvalidState = errors.New("invalid state")

// ErrConflict indicates a lost update: the stored version of the aggregate no
// longer matches the version the mutation was computed against.
var ErrConflict = errors.New("concurrent modification")

// NotFoundError carries the lookup diagnostics (the id or the original search
// criteria) alongside ErrNotFound.
type NotFoundError struct {
	ID       string
	Criteria map[string][]string
	Reason   string
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.ID != "":
		return fmt.Sprintf("no invoice found with id %s", e.ID)
	case len(e.Criteria) > 0:
		keys := make([]string, 0, len(e.Criteria))
		for k := range e.Criteria {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("no invoices found for criteria [%s]", strings.Join(keys, ", "))
	}
	return ErrNotFound.Error()
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundByID builds a NotFoundError for a single-id lookup.
func NewNotFoundByID(id string) *NotFoundError {
	return &NotFoundError{ID: id}
}

// NewNotFoundByCriteria builds a NotFoundError for a filtered query, keeping
// the original criteria for diagnostics.
func NewNotFoundByCriteria(criteria map[string][]string) *NotFoundError {
	return &NotFoundError{Criteria: criteria}
}

// NewNotFoundWithReason builds a NotFoundError with a fixed message, used when
// a collaborator failure is folded into a not-found outcome.
func NewNotFoundWithReason(reason string) *NotFoundError {
	return &NotFoundError{Reason: reason}
}

// ForbiddenError carries the caller identity and the roles it actually holds.
type ForbiddenError struct {
	Username string
	Roles    []string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("user %s with roles [%s] is not permitted", e.Username, strings.Join(e.Roles, ", "))
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// ParseError reports a single search criterion that could not be parsed. It is
// internal to the query-building layer: it is folded into a not-found at the
// strict build boundary and skipped at the soft build boundary, never returned
// to callers directly.
type ParseError struct {
	Key   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value %q for criterion %q: %v", e.Value, e.Key, e.Err)
	}
	return fmt.Sprintf("invalid value %q for criterion %q", e.Value, e.Key)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AppError wraps a lower-level error with a status code and message. Used by
// the repository layer so services log a single meaningful string.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
