package store

import (
	"context"
	"strings"
	"testing"

	"github.com/struktos/unitofwork/pkg/config"
	"github.com/struktos/unitofwork/pkg/observability/logger"
)

type mockLogger struct{}

func (m *mockLogger) Debug(string, ...any)                      {}
func (m *mockLogger) Info(string, ...any)                       {}
func (m *mockLogger) Warn(string, ...any)                       {}
func (m *mockLogger) Error(string, ...any)                      {}
func (m *mockLogger) With(...any) logger.Logger                 { return m }
func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

func TestNewTransactor_EmptyType(t *testing.T) {
	adapter, err := NewTransactor(config.DatabaseConfig{Type: ""}, &mockLogger{})
	if err == nil {
		t.Fatal("expected error for empty type")
	}
	if adapter != nil {
		t.Fatal("expected nil adapter")
	}
}

func TestNewTransactor_UnsupportedType(t *testing.T) {
	_, err := NewTransactor(config.DatabaseConfig{
		Type: "unknown",
	}, &mockLogger{})
	if err == nil {
		t.Fatal("expected unsupported type error")
	}
	if !strings.Contains(err.Error(), "unsupported database.type") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewTransactor_MissingURL(t *testing.T) {
	for _, typ := range []string{"postgres", "mysql", "mongodb"} {
		t.Run(typ, func(t *testing.T) {
			_, err := NewTransactor(config.DatabaseConfig{Type: typ}, &mockLogger{})
			if err == nil {
				t.Fatal("expected error for missing URL")
			}
		})
	}
}
