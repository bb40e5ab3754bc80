package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
)

// RegisterCleanSteps registers the step definitions for cleaning scenarios.
func (testCtx *TestContext) RegisterCleanSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a file "([^"]*)" in the output directory$`, testCtx.aFileInTheOutputDirectory)
	sc.Step(`^I clean the output directory$`, testCtx.iCleanTheOutputDirectory)
	sc.Step(`^the output directory is empty$`, testCtx.theOutputDirectoryIsEmpty)
}

func (testCtx *TestContext) aFileInTheOutputDirectory(name string) error {
	if err := os.MkdirAll(testCtx.OutputDir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(testCtx.OutputDir, name), []byte("stale"), 0o600)
}

func (testCtx *TestContext) iCleanTheOutputDirectory() error {
	testCtx.runCLI("clean", testCtx.OutputDir, "--yes")
	return nil
}

func (testCtx *TestContext) theOutputDirectoryIsEmpty() error {
	entries, err := os.ReadDir(testCtx.OutputDir)
	if err != nil {
		return fmt.Errorf("cannot read output directory: %w", err)
	}
	if len(entries) != 0 {
		return fmt.Errorf("expected empty output directory, found %d entries", len(entries))
	}
	return nil
}
