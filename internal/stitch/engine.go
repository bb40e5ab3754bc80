package stitch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/longimg/internal/common"
	"github.com/MeKo-Tech/longimg/internal/utils"
)

// Config controls how the engine encodes and schedules work.
type Config struct {
	// BaseName is the artifact file name without extension. A job with
	// exactly one valid group produces "<BaseName>.jpg"; multi-group jobs
	// produce "<BaseName>_partN.jpg".
	BaseName string

	// Quality is the JPEG quality setting for written artifacts (1-100).
	Quality int

	// Workers bounds concurrent group processing. Values below 2 keep the
	// reference sequential behavior.
	Workers int
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		BaseName: "stitched_long_image",
		Quality:  95,
		Workers:  1,
	}
}

// Engine stitches the groups of a Job into long images.
type Engine struct {
	cfg  Config
	sink EventSink
}

// NewEngine creates an engine with the given configuration and event sink.
// A nil sink disables event reporting; zero config fields fall back to the
// reference defaults.
func NewEngine(cfg Config, sink EventSink) *Engine {
	def := DefaultConfig()
	if cfg.BaseName == "" {
		cfg.BaseName = def.BaseName
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		cfg.Quality = def.Quality
	}
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	return &Engine{cfg: cfg, sink: sink}
}

// Process runs the job to completion, cancellation or failure. The result
// is never nil; the error is non-nil only for job-level failures (empty
// job, uncreatable output directory, unrecoverable write errors).
// Per-image and per-group problems are reported as log events and skipped.
func (e *Engine) Process(ctx context.Context, job Job) (*Result, error) {
	timer := common.NewNamedTimer("stitch job")
	res, err := e.run(ctx, job)
	res.Duration = timer.Stop()
	e.sink.OnDone(*res)
	return res, err
}

func (e *Engine) run(ctx context.Context, job Job) (*Result, error) {
	if len(job.Groups) == 0 {
		err := errors.New("job has no groups")
		return &Result{Status: StatusFailed, Message: err.Error()}, err
	}
	if err := os.MkdirAll(job.OutputDir, 0o750); err != nil {
		err = fmt.Errorf("cannot create output directory %s: %w", job.OutputDir, err)
		return &Result{Status: StatusFailed, Message: err.Error()}, err
	}

	e.sink.OnLog(fmt.Sprintf("stitching %d group(s) into %s", len(job.Groups), job.OutputDir))

	t := newTracker(&job, e.sink)
	valid := job.validGroups()

	if e.cfg.Workers > 1 {
		return e.runParallel(ctx, job, t, valid)
	}
	return e.runSequential(ctx, job, t, valid)
}

func (e *Engine) runSequential(ctx context.Context, job Job, t *tracker, valid int) (*Result, error) {
	res := &Result{Status: StatusCompleted}

	for i, group := range job.Groups {
		if ctx.Err() != nil {
			return e.cancelled(res, valid), nil
		}
		if len(group) < minGroupSize {
			e.sink.OnLog(fmt.Sprintf("group %d has %d image(s), need at least %d, skipping",
				i+1, len(group), minGroupSize))
			res.SkippedGroups++
			continue
		}

		artifact, failed, err := e.processGroup(ctx, t, job.OutputDir, i, group, e.artifactName(valid, i))
		res.FailedImages += failed
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return e.cancelled(res, valid), nil
		case err != nil:
			res.Status = StatusFailed
			res.Message = err.Error()
			return res, err
		case artifact == nil:
			res.SkippedGroups++
		default:
			res.Artifacts = append(res.Artifacts, *artifact)
		}
	}

	t.complete()
	res.Message = fmt.Sprintf("stitched %d long image(s)", len(res.Artifacts))
	e.sink.OnLog(res.Message)
	return res, nil
}

// cancelled finalizes the result after a context cancellation. The message
// counts stitched groups against the stitchable ones, matching what is on
// disk; skipped undersized groups are not counted as work done.
func (e *Engine) cancelled(res *Result, valid int) *Result {
	res.Status = StatusCancelled
	res.Message = fmt.Sprintf("cancelled after stitching %d of %d group(s)", len(res.Artifacts), valid)
	e.sink.OnLog(res.Message)
	return res
}

// artifactName assigns the output file name for the group at idx (0-based).
// Numbering follows the original group index among all supplied groups;
// skipped groups keep their slot instead of shifting later artifacts.
func (e *Engine) artifactName(validGroups, idx int) string {
	if validGroups == 1 {
		return e.cfg.BaseName + ".jpg"
	}
	return fmt.Sprintf("%s_part%d.jpg", e.cfg.BaseName, idx+1)
}

// processGroup normalizes, rescales, composites and writes one group.
// A nil artifact with nil error means the group lost every member and was
// skipped. The returned error is fatal for the job (write failure) or a
// context error.
func (e *Engine) processGroup(ctx context.Context, t *tracker, outputDir string,
	idx int, group Group, name string,
) (*Artifact, int, error) {
	e.sink.OnLog(fmt.Sprintf("group %d: processing %d image(s)", idx+1, len(group)))

	members, failed, err := e.normalizeMembers(ctx, t, idx, group)
	if err != nil {
		return nil, failed, err
	}
	if len(members) == 0 {
		e.sink.OnLog(fmt.Sprintf("group %d: no readable images, skipping", idx+1))
		t.advance(2) // composite and write steps never happen
		return nil, failed, nil
	}

	targetWidth := minWidth(members)
	e.sink.OnLog(fmt.Sprintf("group %d: target width %d px", idx+1, targetWidth))

	scaled, totalHeight, err := e.rescaleMembers(ctx, t, members, targetWidth)
	if err != nil {
		return nil, failed, err
	}

	canvas := compositeColumn(scaled, targetWidth, totalHeight)
	t.advance(1)

	outPath := filepath.Join(outputDir, name)
	if err := imaging.Save(canvas, outPath, imaging.JPEGQuality(e.cfg.Quality)); err != nil {
		return nil, failed, fmt.Errorf("cannot write %s: %w", outPath, err)
	}
	t.advance(1)

	e.sink.OnLog(fmt.Sprintf("wrote %s (%d image(s), %dx%d)", name, len(members), targetWidth, totalHeight))

	return &Artifact{
		Name:       name,
		Path:       outPath,
		GroupIndex: idx + 1,
		Width:      targetWidth,
		Height:     totalHeight,
		Members:    len(members),
	}, failed, nil
}

// normalizeMembers loads every member into canonical form, dropping the
// ones that fail. Failed members consume both their load and rescale steps
// so the job percentage still lands on 100.
func (e *Engine) normalizeMembers(ctx context.Context, t *tracker, idx int, group Group,
) ([]*image.NRGBA, int, error) {
	members := make([]*image.NRGBA, 0, len(group))
	failed := 0

	for _, ref := range group {
		if err := ctx.Err(); err != nil {
			return nil, failed, err
		}
		img, _, err := utils.LoadNormalized(ref.Path)
		if err != nil {
			failed++
			e.sink.OnLog(fmt.Sprintf("group %d: skipping %s: %v", idx+1, filepath.Base(ref.Path), err))
			t.advance(2)
			continue
		}
		members = append(members, img)
		t.advance(1)
	}

	return members, failed, nil
}

// rescaleMembers resamples every member to the target width with Lanczos,
// preserving each member's aspect ratio independently.
func (e *Engine) rescaleMembers(ctx context.Context, t *tracker, members []*image.NRGBA,
	targetWidth int,
) ([]*image.NRGBA, int, error) {
	scaled := make([]*image.NRGBA, 0, len(members))
	totalHeight := 0

	for _, img := range members {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w != targetWidth {
			newHeight := int(math.Round(float64(h) * float64(targetWidth) / float64(w)))
			img = imaging.Resize(img, targetWidth, newHeight, imaging.Lanczos)
		}
		scaled = append(scaled, img)
		totalHeight += img.Bounds().Dy()
		t.advance(1)
	}

	return scaled, totalHeight, nil
}

// minWidth returns the smallest member width. Scaling everything down to
// the minimum guarantees no member is ever upscaled.
func minWidth(members []*image.NRGBA) int {
	w := members[0].Bounds().Dx()
	for _, img := range members[1:] {
		if d := img.Bounds().Dx(); d < w {
			w = d
		}
	}
	return w
}

// compositeColumn pastes the scaled members onto a white canvas at
// increasing vertical offsets, in member order, with no gaps or overlap.
func compositeColumn(scaled []*image.NRGBA, width, height int) *image.NRGBA {
	canvas := imaging.New(width, height, color.White)
	y := 0
	for _, img := range scaled {
		h := img.Bounds().Dy()
		draw.Draw(canvas, image.Rect(0, y, width, y+h), img, img.Bounds().Min, draw.Src)
		y += h
	}
	return canvas
}
