package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/ballot-consensus-backend/internal/domain/aggregates"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
)

const (
	CodeNoElectionConfig    = "NO_ELECTION_CONFIG"
	CodeOutsideVotingHours  = "OUTSIDE_VOTING_HOURS"
	CodeResultsNotAvailable = "RESULTS_NOT_AVAILABLE"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From classifies err for an HTTP response. An *Error anywhere in the chain wins.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return New(http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, pkgerrors.ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, pkgerrors.ErrNoActiveWindow):
		return New(http.StatusForbidden, CodeNoElectionConfig, err)
	case errors.Is(err, pkgerrors.ErrOutsideWindow):
		return New(http.StatusForbidden, CodeOutsideVotingHours, err)
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation, domainagg.CodeInvariantViolation:
		return New(http.StatusUnprocessableEntity, string(domainagg.CodeOf(err)), err)
	case domainagg.CodeNotFound:
		return New(http.StatusNotFound, "not_found", err)
	case domainagg.CodeConflict:
		return New(http.StatusConflict, "conflict", err)
	case domainagg.CodeRetryable:
		return New(http.StatusServiceUnavailable, "retryable", err)
	}
	return New(http.StatusInternalServerError, "internal", err)
}
