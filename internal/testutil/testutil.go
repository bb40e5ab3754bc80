// Package testutil provides shared helpers for generating synthetic photos
// and temporary directories in tests.
package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTempDir creates a temporary directory that is removed when the
// test finishes.
func CreateTempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// EnsureDir creates a directory (and parents) if it does not exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o750)
}

// WriteFile writes data to path, failing the test on error.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o600))
}
