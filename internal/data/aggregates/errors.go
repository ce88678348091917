package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/ballot-consensus-backend/internal/domain/aggregates"
)

var (
	ErrValidation = errors.New("aggregate validation")
	ErrInvariant  = errors.New("aggregate invariant violation")
	ErrConflict   = errors.New("aggregate conflict")
	ErrRetryable  = errors.New("aggregate retryable")
)

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func InvariantError(msg string) error {
	return errors.Join(ErrInvariant, errors.New(strings.TrimSpace(msg)))
}

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// MapError classifies store and domain failures into aggregate error codes. Postgres
// SQLSTATEs are checked first, then gorm's translated errors, then driver message text
// for dialects that do not translate.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrInvariant):
		return domainagg.Wrap(domainagg.CodeInvariantViolation, op, err)
	case errors.Is(err, ErrConflict):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, ErrRetryable):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			return domainagg.Wrap(domainagg.CodeConflict, op, err)
		case "23503": // foreign_key_violation
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err)
		case "40001", "40P01", "55P03": // serialization, deadlock, lock_not_available
			return domainagg.Wrap(domainagg.CodeRetryable, op, err)
		case "57014": // query_canceled (statement_timeout)
			return domainagg.Wrap(domainagg.CodeRetryable, op, err)
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err)
	case errors.Is(err, gorm.ErrInvalidData):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "already exists"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "temporar"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}
