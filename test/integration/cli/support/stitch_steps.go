package support

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/longimg/cmd/longimg/cmd"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// RegisterStitchSteps registers the step definitions for stitching scenarios.
func (testCtx *TestContext) RegisterStitchSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a gallery with (\d+) images (\d+) pixels wide and (\d+) pixels tall$`, testCtx.aGalleryWithImages)
	sc.Step(`^the gallery contains an image "([^"]*)" that is (\d+)x(\d+)$`, testCtx.theGalleryContainsAnImage)
	sc.Step(`^the gallery contains a corrupt image "([^"]*)"$`, testCtx.theGalleryContainsACorruptImage)
	sc.Step(`^I stitch the gallery with group size (\d+)$`, testCtx.iStitchTheGallery)
	sc.Step(`^the command succeeds$`, testCtx.theCommandSucceeds)
	sc.Step(`^the command fails$`, testCtx.theCommandFails)
	sc.Step(`^the output contains "([^"]*)"$`, testCtx.theOutputContains)
	sc.Step(`^the output directory contains (\d+) artifacts?$`, testCtx.theOutputDirectoryContainsArtifacts)
	sc.Step(`^the artifact "([^"]*)" exists$`, testCtx.theArtifactExists)
	sc.Step(`^the artifact "([^"]*)" is (\d+) pixels wide and (\d+) pixels tall$`, testCtx.theArtifactHasSize)
}

// runCLI executes the root command in-process and records output and error.
func (testCtx *TestContext) runCLI(args ...string) {
	root := cmd.GetRootCommand()

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	testCtx.LastError = root.Execute()
	testCtx.LastOutput = buf.String()
}

// writeImage writes a uniform-color PNG test image into the input directory.
func (testCtx *TestContext) writeImage(name string, width, height int) error {
	img := imaging.New(width, height, color.NRGBA{R: 90, G: 140, B: 200, A: 255})
	return imaging.Save(img, filepath.Join(testCtx.InputDir, name))
}

func (testCtx *TestContext) aGalleryWithImages(count, width, height int) error {
	for i := 0; i < count; i++ {
		if err := testCtx.writeImage(fmt.Sprintf("img_%02d.png", i+1), width, height); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) theGalleryContainsAnImage(name string, width, height int) error {
	return testCtx.writeImage(name, width, height)
}

func (testCtx *TestContext) theGalleryContainsACorruptImage(name string) error {
	path := filepath.Join(testCtx.InputDir, name)
	return os.WriteFile(path, []byte("this is not image data"), 0o600)
}

func (testCtx *TestContext) iStitchTheGallery(groupSize int) error {
	testCtx.runCLI("run", testCtx.InputDir,
		"--output", testCtx.OutputDir,
		"--group-size", fmt.Sprintf("%d", groupSize))
	return nil
}

func (testCtx *TestContext) theCommandSucceeds() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("expected success, got error: %v\noutput:\n%s", testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandFails() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("expected failure, command succeeded\noutput:\n%s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputContains(text string) error {
	if !strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output does not contain %q:\n%s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputDirectoryContainsArtifacts(count int) error {
	entries, err := os.ReadDir(testCtx.OutputDir)
	if err != nil {
		return fmt.Errorf("cannot read output directory: %w", err)
	}
	if len(entries) != count {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		return fmt.Errorf("expected %d artifacts, found %d: %v", count, len(entries), names)
	}
	return nil
}

func (testCtx *TestContext) theArtifactExists(name string) error {
	if _, err := os.Stat(filepath.Join(testCtx.OutputDir, name)); err != nil {
		return fmt.Errorf("artifact %s not found: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theArtifactHasSize(name string, width, height int) error {
	img, err := imaging.Open(filepath.Join(testCtx.OutputDir, name))
	if err != nil {
		return fmt.Errorf("cannot open artifact %s: %w", name, err)
	}

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("artifact %s is %dx%d, expected %dx%d", name, b.Dx(), b.Dy(), width, height)
	}
	return nil
}
