package uow

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies a failure kind with a stable machine-readable value.
// Callers branch on codes (or concrete error types), never on message text.
type ErrorCode string

// Error codes
const (
	// CodeTransactionFailed is a generic transaction failure
	CodeTransactionFailed ErrorCode = "transaction_failed"
	// CodeCommitFailed indicates the underlying commit did not complete
	CodeCommitFailed ErrorCode = "commit_failed"
	// CodeRollbackFailed indicates the underlying rollback did not complete
	CodeRollbackFailed ErrorCode = "rollback_failed"
	// CodeTransactionTimeout indicates the transaction exceeded its lifetime bound
	CodeTransactionTimeout ErrorCode = "transaction_timeout"
	// CodeTransactionAlreadyActive indicates Start was called outside the inactive state
	CodeTransactionAlreadyActive ErrorCode = "transaction_already_active"
	// CodeNoActiveTransaction indicates an operation that requires an open transaction
	CodeNoActiveTransaction ErrorCode = "no_active_transaction"
	// CodeRepositoryNotRegistered indicates an unknown repository token
	CodeRepositoryNotRegistered ErrorCode = "repository_not_registered"
	// CodeSavepointFailed is a generic savepoint failure
	CodeSavepointFailed ErrorCode = "savepoint_failed"
	// CodeSavepointExists indicates a duplicate savepoint name in one transaction
	CodeSavepointExists ErrorCode = "savepoint_exists"
	// CodeSavepointNotFound indicates an unknown savepoint name
	CodeSavepointNotFound ErrorCode = "savepoint_not_found"
	// CodeSavepointsDisabled indicates savepoint support is turned off
	CodeSavepointsDisabled ErrorCode = "savepoints_disabled"
	// CodeInvalidSavepointName indicates a name outside the allowed identifier set
	CodeInvalidSavepointName ErrorCode = "invalid_savepoint_name"
	// CodeConnectionFailed wraps a connectivity failure
	CodeConnectionFailed ErrorCode = "connection_failed"
	// CodeDisposed indicates any operation on a disposed unit of work
	CodeDisposed ErrorCode = "unit_of_work_disposed"
)

type coder interface {
	ErrorCode() ErrorCode
}

// CodeOf returns the error code carried by err, or an empty code when err is
// not one of the library's typed errors.
func CodeOf(err error) ErrorCode {
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

func correlation(unitOfWorkID, traceID string) string {
	if traceID == "" {
		return fmt.Sprintf("unit_of_work_id=%s", unitOfWorkID)
	}
	return fmt.Sprintf("unit_of_work_id=%s trace_id=%s", unitOfWorkID, traceID)
}

// TransactionError is a generic transaction failure. The Code field narrows it
// to commit, rollback, or start failures.
type TransactionError struct {
	Code         ErrorCode
	Op           string
	UnitOfWorkID string
	TraceID      string
	cause        error
}

func (e *TransactionError) Error() string {
	msg := fmt.Sprintf("transaction %s failed (%s)", e.Op, correlation(e.UnitOfWorkID, e.TraceID))
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *TransactionError) Unwrap() error { return e.cause }

// ErrorCode implements the code accessor used by CodeOf.
func (e *TransactionError) ErrorCode() ErrorCode { return e.Code }

// TransactionTimeoutError indicates the transaction exceeded its lifetime
// bound. Timeout is the bound that was exceeded.
type TransactionTimeoutError struct {
	Timeout      time.Duration
	UnitOfWorkID string
	TraceID      string
	cause        error
}

func (e *TransactionTimeoutError) Error() string {
	return fmt.Sprintf("transaction timed out after %s (%s)", e.Timeout, correlation(e.UnitOfWorkID, e.TraceID))
}

func (e *TransactionTimeoutError) Unwrap() error { return e.cause }

// ErrorCode implements the code accessor used by CodeOf.
func (e *TransactionTimeoutError) ErrorCode() ErrorCode { return CodeTransactionTimeout }

// TransactionAlreadyActiveError indicates Start was called while a previous
// transaction cycle is still in progress or already finished.
type TransactionAlreadyActiveError struct {
	State        State
	UnitOfWorkID string
	TraceID      string
}

func (e *TransactionAlreadyActiveError) Error() string {
	return fmt.Sprintf("cannot start: unit of work is %s (%s)", e.State, correlation(e.UnitOfWorkID, e.TraceID))
}

// ErrorCode implements the code accessor used by CodeOf.
func (e *TransactionAlreadyActiveError) ErrorCode() ErrorCode { return CodeTransactionAlreadyActive }

// NoActiveTransactionError indicates an operation that requires an open
// transaction was called outside the active state.
type NoActiveTransactionError struct {
	Op           string
	State        State
	UnitOfWorkID string
	TraceID      string
}

func (e *NoActiveTransactionError) Error() string {
	return fmt.Sprintf("%s requires an active transaction, unit of work is %s (%s)",
		e.Op, e.State, correlation(e.UnitOfWorkID, e.TraceID))
}

// ErrorCode implements the code accessor used by CodeOf.
func (e *NoActiveTransactionError) ErrorCode() ErrorCode { return CodeNoActiveTransaction }

// RepositoryNotRegisteredError indicates no factory is registered for the
// requested token.
type RepositoryNotRegisteredError struct {
	Token        string
	UnitOfWorkID string
	TraceID      string
}

func (e *RepositoryNotRegisteredError) Error() string {
	return fmt.Sprintf("repository %q is not registered (%s)", e.Token, correlation(e.UnitOfWorkID, e.TraceID))
}

// ErrorCode implements the code accessor used by CodeOf.
func (e *RepositoryNotRegisteredError) ErrorCode() ErrorCode { return CodeRepositoryNotRegistered }

// SavepointError is a generic savepoint failure. The Code field narrows it to
// disabled support, invalid or duplicate names, or a failed native statement.
type SavepointError struct {
	Code         ErrorCode
	Name         string
	UnitOfWorkID string
	TraceID      string
	cause        error
}

func (e *SavepointError) Error() string {
	var msg string
	switch e.Code {
	case CodeSavepointsDisabled:
		msg = "savepoints are disabled by configuration"
	case CodeInvalidSavepointName:
		msg = fmt.Sprintf("invalid savepoint name %q", e.Name)
	case CodeSavepointExists:
		msg = fmt.Sprintf("savepoint %q already exists", e.Name)
	default:
		msg = fmt.Sprintf("savepoint %q operation failed", e.Name)
	}
	msg += " (" + correlation(e.UnitOfWorkID, e.TraceID) + ")"
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *SavepointError) Unwrap() error { return e.cause }

// ErrorCode implements the code accessor used by CodeOf.
func (e *SavepointError) ErrorCode() ErrorCode { return e.Code }

// SavepointNotFoundError indicates the named savepoint does not exist in the
// current transaction.
type SavepointNotFoundError struct {
	Name         string
	UnitOfWorkID string
	TraceID      string
}

func (e *SavepointNotFoundError) Error() string {
	return fmt.Sprintf("savepoint %q not found (%s)", e.Name, correlation(e.UnitOfWorkID, e.TraceID))
}

// ErrorCode implements the code accessor used by CodeOf.
func (e *SavepointNotFoundError) ErrorCode() ErrorCode { return CodeSavepointNotFound }

// ConnectionError wraps a connectivity failure from the underlying client.
type ConnectionError struct {
	UnitOfWorkID string
	TraceID      string
	cause        error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("database connection failed (%s)", correlation(e.UnitOfWorkID, e.TraceID))
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.cause }

// ErrorCode implements the code accessor used by CodeOf.
func (e *ConnectionError) ErrorCode() ErrorCode { return CodeConnectionFailed }

// DisposedError indicates any operation on a disposed unit of work.
type DisposedError struct {
	Op           string
	UnitOfWorkID string
}

func (e *DisposedError) Error() string {
	return fmt.Sprintf("%s called on disposed unit of work (%s)", e.Op, correlation(e.UnitOfWorkID, ""))
}

// ErrorCode implements the code accessor used by CodeOf.
func (e *DisposedError) ErrorCode() ErrorCode { return CodeDisposed }
