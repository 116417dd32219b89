package uow

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"transaction error", &TransactionError{Code: CodeCommitFailed}, CodeCommitFailed},
		{"timeout", &TransactionTimeoutError{}, CodeTransactionTimeout},
		{"already active", &TransactionAlreadyActiveError{}, CodeTransactionAlreadyActive},
		{"no active", &NoActiveTransactionError{}, CodeNoActiveTransaction},
		{"not registered", &RepositoryNotRegisteredError{}, CodeRepositoryNotRegistered},
		{"savepoint", &SavepointError{Code: CodeSavepointExists}, CodeSavepointExists},
		{"savepoint not found", &SavepointNotFoundError{}, CodeSavepointNotFound},
		{"connection", &ConnectionError{}, CodeConnectionFailed},
		{"disposed", &DisposedError{}, CodeDisposed},
		{"wrapped", fmt.Errorf("outer: %w", &ConnectionError{}), CodeConnectionFailed},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")

	wrapped := []error{
		&TransactionError{Code: CodeTransactionFailed, cause: cause},
		&TransactionTimeoutError{cause: cause},
		&SavepointError{Code: CodeSavepointFailed, cause: cause},
		&ConnectionError{cause: cause},
	}
	for _, err := range wrapped {
		if !errors.Is(err, cause) {
			t.Errorf("%T must unwrap to its cause", err)
		}
	}
}

func TestErrorMessagesCarryCorrelation(t *testing.T) {
	err := &TransactionError{
		Code:         CodeCommitFailed,
		Op:           "commit",
		UnitOfWorkID: "uow-123",
		TraceID:      "trace-abc",
		cause:        errors.New("deadlock"),
	}
	msg := err.Error()
	for _, part := range []string{"uow-123", "trace-abc", "commit", "deadlock"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q missing %q", msg, part)
		}
	}

	timeoutErr := &TransactionTimeoutError{Timeout: 5 * time.Second, UnitOfWorkID: "uow-1"}
	if !strings.Contains(timeoutErr.Error(), "5s") {
		t.Errorf("timeout message %q missing bound", timeoutErr.Error())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateInactive, "inactive"},
		{StateActive, "active"},
		{StateCommitting, "committing"},
		{StateCommitted, "committed"},
		{StateRollingBack, "rolling_back"},
		{StateRolledBack, "rolled_back"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	terminal := []State{StateCommitted, StateRolledBack, StateFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	open := []State{StateInactive, StateActive, StateCommitting, StateRollingBack}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}
