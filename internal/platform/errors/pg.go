package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgClass is how one SQLSTATE surfaces to callers
type pgClass struct {
	code  ErrorCode
	retry bool
}

// sqlStates maps the SQLSTATEs the lease and window tables can raise
// Anything else is ErrorCodeDB and not retried
var sqlStates = map[string]pgClass{
	"23505": {ErrorCodeDuplicateKey, false},    // unique_violation
	"23503": {ErrorCodeInvalidArgument, false}, // foreign_key_violation
	"23502": {ErrorCodeValidation, false},      // not_null_violation
	"23514": {ErrorCodeValidation, false},      // check_violation
	"22001": {ErrorCodeInvalidArgument, false}, // string_data_right_truncation
	"22P02": {ErrorCodeInvalidArgument, false}, // invalid_text_representation
	"40001": {ErrorCodeDB, true},               // serialization_failure
	"40P01": {ErrorCodeDB, true},               // deadlock_detected
	"55P03": {ErrorCodeDB, true},               // lock_not_available
	"57014": {ErrorCodeTimeout, false},         // query_canceled, incl. statement_timeout
	"25006": {ErrorCodeUnavailable, false},     // read_only_sql_transaction
	"57P03": {ErrorCodeUnavailable, true},      // cannot_connect_now
}

// pgRetryText catches failures pgx reports as plain text, mostly on commit and dial
var pgRetryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"could not obtain lock on row",
	"terminating connection due to administrator command",
	"connection refused",
	"failed to connect",
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	ok := stderrs.As(err, &pe)
	return pe, ok
}

// DBErrorCode maps a Postgres error to an ErrorCode; ok is false when err carries no PgError
func DBErrorCode(err error) (ErrorCode, bool) {
	pe, ok := asPgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	if c, known := sqlStates[pe.Code]; known {
		return c.code, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err under the code its SQLSTATE maps to; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresf is FromPostgres with a formatted message
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// IsRetryable reports whether a Postgres failure is transient
// Local cancellation never is; the caller owns that decision
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	if pe, ok := asPgError(err); ok {
		return sqlStates[pe.Code].retry
	}
	msg := strings.ToLower(Root(err).Error())
	for _, s := range pgRetryText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
