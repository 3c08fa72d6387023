package testutil

import (
	"net/url"
	"os"
	"testing"
)

// RequireTestEnvironment fails the test unless GO_ENV is "test",
// so suites never touch a development or production database.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: tests must run with GO_ENV=test. Current GO_ENV=%q", env)
	}
}

// RequireTestEnvironmentOrSkip skips instead of failing when GO_ENV is not "test"
func RequireTestEnvironmentOrSkip(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Skipf("Skipping test: GO_ENV must be 'test' (current: %q)", env)
	}
}

// MustSetTestEnvironment sets GO_ENV=test for the rest of the test binary.
// Use it in top-level test functions or suite setup.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	LogEnvironment(t)
}

// LogEnvironment logs the settings a suite runs with; database passwords are redacted
func LogEnvironment(t *testing.T) {
	t.Helper()
	t.Logf("GO_ENV=%s DATABASE_URL=%s", os.Getenv("GO_ENV"), redactDatabaseURL(os.Getenv("DATABASE_URL")))
}

func redactDatabaseURL(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}
	return u.Redacted()
}
