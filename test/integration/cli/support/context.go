package support

import (
	"fmt"
	"os"
	"path/filepath"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastOutput string
	LastError  error

	// Test environment
	TempDir   string
	InputDir  string
	OutputDir string
}

// NewTestContext creates a new test context with fresh input and output
// directories inside a scenario-scoped temp directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "longimg-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ctx := &TestContext{
		TempDir:   tempDir,
		InputDir:  filepath.Join(tempDir, "input"),
		OutputDir: filepath.Join(tempDir, "output"),
	}

	if err := os.MkdirAll(ctx.InputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create input directory: %w", err)
	}

	return ctx, nil
}

// Cleanup removes all temporary files and directories created during tests.
func (testCtx *TestContext) Cleanup() error {
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}
