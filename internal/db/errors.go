package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
)

// Classify maps Postgres failures that callers can act on to apperr kinds.
// Anything else is wrapped as an opaque storage error.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("db: %s: %w", op, err)
	}

	switch pgErr.Code {
	case pgerrcode.LockNotAvailable, pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		// lock_timeout expiry surfaces as lock_not_available.
		return apperr.Wrap(apperr.KindConcurrencyConflict, err, "concurrent update conflict, retry the operation")
	}

	return fmt.Errorf("db: %s: %w", op, err)
}

func IsUniqueViolation(err error, constraint string) bool {
	return hasCode(err, pgerrcode.UniqueViolation, constraint)
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, pgerrcode.ForeignKeyViolation, "")
}

func IsCheckViolation(err error, constraint string) bool {
	return hasCode(err, pgerrcode.CheckViolation, constraint)
}

func hasCode(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
