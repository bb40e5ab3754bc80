package stitch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// groupJob is one valid group dispatched to a worker. The artifact name is
// assigned before dispatch so completion order cannot change naming.
type groupJob struct {
	index int
	name  string
	group Group
}

// groupResult is the outcome of processing a single group.
type groupResult struct {
	index    int
	artifact *Artifact
	failed   int
	err      error
}

// runParallel processes valid groups on a bounded worker pool. Groups are
// independent after validation; the shared tracker keeps the aggregate
// percentage monotonic and artifact names are fixed up front, so output is
// deterministic regardless of completion order.
func (e *Engine) runParallel(ctx context.Context, job Job, t *tracker, valid int) (*Result, error) {
	res := &Result{Status: StatusCompleted}

	var pending []groupJob
	for i, group := range job.Groups {
		if len(group) < minGroupSize {
			e.sink.OnLog(fmt.Sprintf("group %d has %d image(s), need at least %d, skipping",
				i+1, len(group), minGroupSize))
			res.SkippedGroups++
			continue
		}
		pending = append(pending, groupJob{index: i, name: e.artifactName(valid, i), group: group})
	}

	workers := e.cfg.Workers
	if workers > len(pending) {
		workers = len(pending)
	}

	jobs := make(chan groupJob, len(pending))
	results := make(chan groupResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go e.worker(ctx, job.OutputDir, t, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for _, gj := range pending {
			select {
			case jobs <- gj:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var artifacts []Artifact
	var fatal error
	processed := 0

	for r := range results {
		processed++
		res.FailedImages += r.failed
		switch {
		case r.err != nil && !errors.Is(r.err, context.Canceled) && !errors.Is(r.err, context.DeadlineExceeded):
			if fatal == nil {
				fatal = r.err
			}
		case r.artifact != nil:
			artifacts = append(artifacts, *r.artifact)
		case r.err == nil:
			res.SkippedGroups++
		}
	}

	// Artifacts keep ascending group order no matter which worker finished
	// first.
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].GroupIndex < artifacts[j].GroupIndex })
	res.Artifacts = artifacts

	if fatal != nil {
		res.Status = StatusFailed
		res.Message = fatal.Error()
		return res, fatal
	}
	if ctx.Err() != nil || processed < len(pending) {
		return e.cancelled(res, valid), nil
	}

	t.complete()
	res.Message = fmt.Sprintf("stitched %d long image(s)", len(res.Artifacts))
	e.sink.OnLog(res.Message)
	return res, nil
}

// worker drains the job channel until it closes or the context is done.
func (e *Engine) worker(ctx context.Context, outputDir string, t *tracker,
	jobs <-chan groupJob, results chan<- groupResult, wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case gj, ok := <-jobs:
			if !ok {
				return
			}
			artifact, failed, err := e.processGroup(ctx, t, outputDir, gj.index, gj.group, gj.name)
			results <- groupResult{index: gj.index, artifact: artifact, failed: failed, err: err}
		case <-ctx.Done():
			return
		}
	}
}
