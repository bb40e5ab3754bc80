// Package stitch composites ordered groups of images into vertically
// stacked long images and reports progress incrementally.
package stitch

import (
	"time"

	"github.com/MeKo-Tech/longimg/internal/gallery"
)

// Group is an ordered run of source images that becomes one output raster.
// Groups with fewer than two members are skipped, not errored.
type Group []gallery.Ref

// Job is the full unit of work: an output directory plus an ordered list of
// groups. It is an immutable snapshot; the engine never reads caller-side
// state after Process starts.
type Job struct {
	OutputDir string
	Groups    []Group
}

// validGroups counts groups with enough members to stitch. The count is
// known before any decoding happens, which keeps artifact naming
// deterministic in the parallel mode.
func (j *Job) validGroups() int {
	n := 0
	for _, g := range j.Groups {
		if len(g) >= minGroupSize {
			n++
		}
	}
	return n
}

// minGroupSize is the smallest group worth stitching.
const minGroupSize = 2

// Status is the terminal state of a job run.
type Status int

const (
	StatusCompleted Status = iota
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Artifact describes one long image written to the output directory.
type Artifact struct {
	Name       string
	Path       string
	GroupIndex int // 1-based index among all supplied groups
	Width      int
	Height     int
	Members    int // images composited into the artifact
}

// Result is the terminal outcome of a job run. Per-image and per-group
// problems degrade gracefully and only show up in the counters; Failed is
// reserved for job-level conditions.
type Result struct {
	Status        Status
	Message       string
	Artifacts     []Artifact
	SkippedGroups int
	FailedImages  int
	Duration      time.Duration
}

// Success reports whether the job ran to completion.
func (r *Result) Success() bool {
	return r.Status == StatusCompleted
}
