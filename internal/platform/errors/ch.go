package errors

// ClickHouse-specific helpers: server exception codes mapped to ErrorCode plus retry semantics

import (
	"context"
	stderrs "errors"
	"fmt"
	"io"
	"net"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouse server exception codes we care about
const (
	chErrUnknownIdentifier   int32 = 47
	chErrUnknownTable        int32 = 60
	chErrSyntaxError         int32 = 62
	chErrTimeoutExceeded     int32 = 159
	chErrTooManyQueries      int32 = 202
	chErrSocketTimeout       int32 = 209
	chErrNetworkError        int32 = 210
	chErrTooManyParts        int32 = 252
	chErrMemoryLimitExceeded int32 = 241
	chErrAuthFailed          int32 = 516
)

// ExtractCHException returns the server exception if the root cause is one
func ExtractCHException(err error) (*clickhouse.Exception, bool) {
	var ex *clickhouse.Exception
	if stderrs.As(err, &ex) {
		return ex, true
	}
	return nil, false
}

// CHErrorCode maps a ClickHouse exception to an ErrorCode with an ok flag
// !ok means err wasn't a server exception
func CHErrorCode(err error) (ErrorCode, bool) {
	ex, ok := ExtractCHException(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	switch ex.Code {
	case chErrUnknownIdentifier, chErrSyntaxError:
		return ErrorCodeInvalidArgument, true
	case chErrUnknownTable:
		return ErrorCodeNotFound, true
	case chErrTimeoutExceeded, chErrSocketTimeout:
		return ErrorCodeTimeout, true
	case chErrTooManyQueries, chErrNetworkError, chErrTooManyParts, chErrMemoryLimitExceeded:
		return ErrorCodeUnavailable, true
	case chErrAuthFailed:
		return ErrorCodeDB, true
	}
	return ErrorCodeDB, true
}

// FromClickHouse wraps a clickhouse error with a mapped ErrorCode and message
// If err is nil, returns nil
func FromClickHouse(err error, msg string) error {
	if err == nil {
		return nil
	}
	if code, ok := CHErrorCode(err); ok {
		return Wrap(err, code, msg)
	}
	if IsRetryableCH(err) {
		return Wrap(err, ErrorCodeUnavailable, msg)
	}
	return Wrap(err, ErrorCodeDB, msg)
}

// FromClickHousef is the formatted variant of FromClickHouse
func FromClickHousef(err error, format string, a ...any) error {
	return FromClickHouse(err, fmt.Sprintf(format, a...))
}

// IsRetryableCH reports whether a clickhouse error is transient
// server overload, socket timeouts and dropped connections qualify
func IsRetryableCH(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if ex, ok := ExtractCHException(err); ok {
		switch ex.Code {
		case chErrTimeoutExceeded, chErrTooManyQueries, chErrSocketTimeout,
			chErrNetworkError, chErrTooManyParts, chErrMemoryLimitExceeded:
			return true
		default:
			return false
		}
	}
	if stderrs.Is(err, clickhouse.ErrAcquireConnTimeout) || stderrs.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ne net.Error
	return stderrs.As(err, &ne) && ne.Timeout()
}
