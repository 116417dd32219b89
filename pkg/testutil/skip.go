// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"os"
	"testing"
)

// SkipIfShort skips the test when running in short mode. Integration tests
// that start database containers use it so `go test -short ./...` stays fast.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// RequireDocker skips the test unless container-based integration tests are
// explicitly enabled. CI environments without a Docker daemon set neither
// variable and skip cleanly.
func RequireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("INTEGRATION_TESTS") == "" && os.Getenv("CI") != "" {
		t.Skip("skipping container-based test (set INTEGRATION_TESTS=1 to run)")
	}
}
