// Package testing prepares the process environment for package tests.
// Import it for side effects from _test.go files.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

const testJWTSecret = "test-secret-with-enough-entropy-0123456789"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		if os.Getenv("JWT_SECRET") == "" {
			_ = os.Setenv("JWT_SECRET", testJWTSecret)
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be delegated to from a package TestMain.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
