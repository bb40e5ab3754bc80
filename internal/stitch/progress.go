package stitch

import "sync"

// Step budget per valid group: one step per member load, one per member
// rescale, one for compositing and one for the encoded write. Steps of
// members that fail to decode, and the tail of groups that lose every
// member, are consumed when the skip is observed so the counter still
// reaches exactly 100 on the last group.
func groupSteps(members int) int64 {
	return int64(2*members + 2)
}

// tracker converts per-step completion into a monotonic job percentage.
// It is shared across workers in the parallel mode; the mutex covers both
// the percentage derivation and the sink call, so emissions leave the
// tracker in the order they were computed and the sink never observes a
// regression no matter which worker reports first.
type tracker struct {
	total int64
	sink  EventSink

	mu   sync.Mutex
	done int64
	last int64
}

func newTracker(job *Job, sink EventSink) *tracker {
	t := &tracker{sink: sink}
	for _, g := range job.Groups {
		if len(g) >= minGroupSize {
			t.total += groupSteps(len(g))
		}
	}
	return t
}

// advance records completed steps and emits the resulting percentage.
func (t *tracker) advance(steps int64) {
	if t.total == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.done += steps
	pct := t.done * 100 / t.total
	if pct > 100 {
		pct = 100
	}
	if pct < t.last {
		pct = t.last
	}
	t.last = pct
	t.sink.OnProgress(int(pct))
}

// complete forces the final 100% emission. A job whose steps were all
// consumed is already there; a job with zero valid groups never advanced.
func (t *tracker) complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last >= 100 {
		return
	}
	t.last = 100
	t.sink.OnProgress(100)
}
