package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolationSQLState is the Postgres SQLSTATE for unique_violation.
const uniqueViolationSQLState = "23505"

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. When constraintName is non-empty, the violated constraint must
// match it exactly; otherwise any unique violation counts.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != uniqueViolationSQLState {
		return false
	}
	if constraintName != "" {
		return pgErr.ConstraintName == constraintName
	}
	return true
}
