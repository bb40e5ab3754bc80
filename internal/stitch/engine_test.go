package stitch

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MeKo-Tech/longimg/internal/gallery"
	"github.com/MeKo-Tech/longimg/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects every event for later assertions.
type recordingSink struct {
	mu       sync.Mutex
	percents []int
	logs     []string
	results  []Result
}

func (s *recordingSink) OnProgress(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percents = append(s.percents, percent)
}

func (s *recordingSink) OnLog(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, message)
}

func (s *recordingSink) OnDone(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
}

func (s *recordingSink) logCount(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.logs {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

func refsFor(t *testing.T, dir string, sizes [][2]int) []gallery.Ref {
	t.Helper()
	refs := make([]gallery.Ref, 0, len(sizes))
	for i, wh := range sizes {
		path := testutil.WritePhotoPNG(t, dir, fmt.Sprintf("img_%02d.png", i), wh[0], wh[1])
		ref, err := gallery.Resolve(path)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	return refs
}

func TestProcess_SingleGroupGeometry(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	// Nine images, widths 600..680, constant source height 400.
	sizes := make([][2]int, 9)
	for i := range sizes {
		sizes[i] = [2]int{600 + i*10, 400}
	}
	refs := refsFor(t, dir, sizes)

	sink := &recordingSink{}
	engine := NewEngine(DefaultConfig(), sink)
	res, err := engine.Process(context.Background(), Job{OutputDir: outDir, Groups: []Group{refs}})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Artifacts, 1)

	art := res.Artifacts[0]
	assert.Equal(t, "stitched_long_image.jpg", art.Name)
	assert.Equal(t, 600, art.Width)
	assert.Equal(t, 9, art.Members)

	wantHeight := 0
	for _, wh := range sizes {
		wantHeight += int(math.Round(400 * 600 / float64(wh[0])))
	}
	assert.Equal(t, wantHeight, art.Height)

	// The written file matches the reported geometry.
	img := testutil.LoadImage(t, art.Path)
	assert.Equal(t, art.Width, img.Bounds().Dx())
	assert.Equal(t, art.Height, img.Bounds().Dy())
}

func TestProcess_MultiGroupNamingSkipsKeepOriginalIndex(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	g1 := refsFor(t, filepath.Join(dir, "g1"), [][2]int{{100, 60}, {120, 60}})
	g2 := refsFor(t, filepath.Join(dir, "g2"), [][2]int{{100, 60}}) // too small, skipped
	g3 := refsFor(t, filepath.Join(dir, "g3"), [][2]int{{80, 40}, {90, 40}})

	sink := &recordingSink{}
	engine := NewEngine(DefaultConfig(), sink)
	res, err := engine.Process(context.Background(), Job{OutputDir: outDir, Groups: []Group{g1, g2, g3}})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Artifacts, 2)

	assert.Equal(t, "stitched_long_image_part1.jpg", res.Artifacts[0].Name)
	assert.Equal(t, "stitched_long_image_part3.jpg", res.Artifacts[1].Name)
	assert.Equal(t, 1, res.SkippedGroups)
	assert.Equal(t, 1, sink.logCount("need at least 2"))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestProcess_SingleValidGroupAmongManyUsesBaseName(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	tiny := refsFor(t, filepath.Join(dir, "tiny"), [][2]int{{50, 50}})
	valid := refsFor(t, filepath.Join(dir, "valid"), [][2]int{{100, 60}, {110, 60}})

	engine := NewEngine(DefaultConfig(), nil)
	res, err := engine.Process(context.Background(), Job{OutputDir: outDir, Groups: []Group{tiny, valid}})
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "stitched_long_image.jpg", res.Artifacts[0].Name)
	assert.Equal(t, 2, res.Artifacts[0].GroupIndex)
}

func TestProcess_FailedMemberIsSkippedNotFatal(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	refs := refsFor(t, dir, [][2]int{{100, 50}, {120, 50}, {140, 50}})
	broken, err := gallery.Resolve(testutil.WriteCorruptImage(t, dir, "broken.jpg"))
	require.NoError(t, err)
	group := Group{refs[0], broken, refs[1], refs[2]}

	sink := &recordingSink{}
	engine := NewEngine(DefaultConfig(), sink)
	res, err := engine.Process(context.Background(), Job{OutputDir: outDir, Groups: []Group{group}})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)
	require.Len(t, res.Artifacts, 1)

	assert.Equal(t, 1, res.FailedImages)
	assert.Equal(t, 3, res.Artifacts[0].Members)
	assert.Equal(t, 100, res.Artifacts[0].Width)
	assert.Equal(t, 1, sink.logCount("broken.jpg"))
}

func TestProcess_AllMembersFailSkipsGroup(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	b1, err := gallery.Resolve(testutil.WriteCorruptImage(t, dir, "b1.png"))
	require.NoError(t, err)
	b2, err := gallery.Resolve(testutil.WriteCorruptImage(t, dir, "b2.png"))
	require.NoError(t, err)

	sink := &recordingSink{}
	engine := NewEngine(DefaultConfig(), sink)
	res, err := engine.Process(context.Background(), Job{OutputDir: outDir, Groups: []Group{{b1, b2}}})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Empty(t, res.Artifacts)
	assert.Equal(t, 1, res.SkippedGroups)
	assert.Equal(t, 2, res.FailedImages)
	assert.Equal(t, 2, sink.logCount("skipping b"))
	assert.Equal(t, 1, sink.logCount("no readable images"))
}

func TestProcess_SizeOneGroupProducesNoArtifact(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")
	refs := refsFor(t, dir, [][2]int{{100, 100}})

	sink := &recordingSink{}
	engine := NewEngine(DefaultConfig(), sink)
	res, err := engine.Process(context.Background(), Job{OutputDir: outDir, Groups: []Group{refs}})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Empty(t, res.Artifacts)
	assert.Equal(t, 1, res.SkippedGroups)
	assert.Equal(t, 1, sink.logCount("need at least 2"))
}

func TestProcess_EmptyJobFails(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngine(DefaultConfig(), sink)
	res, err := engine.Process(context.Background(), Job{OutputDir: testutil.CreateTempDir(t)})

	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	require.Len(t, sink.results, 1)
	assert.Equal(t, StatusFailed, sink.results[0].Status)
}

func TestProcess_UncreatableOutputDirFails(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	refs := refsFor(t, dir, [][2]int{{60, 40}, {70, 40}})

	// A regular file blocks directory creation at the same path.
	blocked := filepath.Join(dir, "blocked")
	testutil.WriteFile(t, blocked, []byte("file"))

	engine := NewEngine(DefaultConfig(), nil)
	res, err := engine.Process(context.Background(), Job{OutputDir: blocked, Groups: []Group{refs}})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)
}

func TestProcess_ProgressMonotonicEndsAt100(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	g1 := refsFor(t, filepath.Join(dir, "g1"), [][2]int{{100, 50}, {110, 50}, {120, 50}})
	g2 := refsFor(t, filepath.Join(dir, "g2"), [][2]int{{90, 50}, {95, 50}})

	sink := &recordingSink{}
	engine := NewEngine(DefaultConfig(), sink)
	_, err := engine.Process(context.Background(), Job{OutputDir: outDir, Groups: []Group{g1, g2}})
	require.NoError(t, err)

	require.NotEmpty(t, sink.percents)
	prev := 0
	for _, p := range sink.percents {
		assert.GreaterOrEqual(t, p, prev)
		assert.LessOrEqual(t, p, 100)
		prev = p
	}
	assert.Equal(t, 100, sink.percents[len(sink.percents)-1])

	// Step budget: (2*3+2) + (2*2+2) events.
	assert.Len(t, sink.percents, 14)
}

func TestProcess_ProgressReaches100WithFailedMembers(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	refs := refsFor(t, dir, [][2]int{{100, 50}, {110, 50}})
	broken, err := gallery.Resolve(testutil.WriteCorruptImage(t, dir, "broken.png"))
	require.NoError(t, err)

	sink := &recordingSink{}
	engine := NewEngine(DefaultConfig(), sink)
	_, err = engine.Process(context.Background(),
		Job{OutputDir: outDir, Groups: []Group{{refs[0], broken, refs[1]}}})
	require.NoError(t, err)

	require.NotEmpty(t, sink.percents)
	assert.Equal(t, 100, sink.percents[len(sink.percents)-1])
}

// cancellingSink cancels the run after a fixed number of artifacts were
// written.
type cancellingSink struct {
	recordingSink
	cancel     context.CancelFunc
	afterWrite int
	writes     int
}

func (s *cancellingSink) OnLog(message string) {
	s.recordingSink.OnLog(message)
	if strings.HasPrefix(message, "wrote ") {
		s.writes++
		if s.writes == s.afterWrite {
			s.cancel()
		}
	}
}

func TestProcess_CancellationAtGroupBoundary(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	groups := make([]Group, 5)
	for i := range groups {
		groups[i] = refsFor(t, filepath.Join(dir, fmt.Sprintf("g%d", i)),
			[][2]int{{60, 40}, {70, 40}})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &cancellingSink{cancel: cancel, afterWrite: 2}

	engine := NewEngine(DefaultConfig(), sink)
	res, err := engine.Process(ctx, Job{OutputDir: outDir, Groups: groups})
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, res.Status)
	assert.Len(t, res.Artifacts, 2)

	// Already-written artifacts stay on disk; nothing exists for the rest.
	entries, readErr := os.ReadDir(outDir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 2)
	assert.Equal(t, "cancelled after stitching 2 of 5 group(s)", res.Message)
}

func TestProcess_CancelledMessageCountsStitchedGroups(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	// An undersized group ahead of the cancellation point must not inflate
	// the reported count; the message reflects what is on disk.
	tiny := refsFor(t, filepath.Join(dir, "tiny"), [][2]int{{50, 50}})
	groups := []Group{tiny}
	for i := 0; i < 3; i++ {
		groups = append(groups, refsFor(t, filepath.Join(dir, fmt.Sprintf("g%d", i)),
			[][2]int{{60, 40}, {70, 40}}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &cancellingSink{cancel: cancel, afterWrite: 1}

	engine := NewEngine(DefaultConfig(), sink)
	res, err := engine.Process(ctx, Job{OutputDir: outDir, Groups: groups})
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, res.Status)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, 1, res.SkippedGroups)
	assert.Equal(t, "cancelled after stitching 1 of 3 group(s)", res.Message)
}

func TestProcess_DuplicatePathsAllowed(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	outDir := filepath.Join(dir, "out")

	refs := refsFor(t, dir, [][2]int{{100, 50}})
	group := Group{refs[0], refs[0], refs[0]}

	engine := NewEngine(DefaultConfig(), nil)
	res, err := engine.Process(context.Background(), Job{OutputDir: outDir, Groups: []Group{group}})
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, 100, res.Artifacts[0].Width)
	assert.Equal(t, 150, res.Artifacts[0].Height)
}

func TestProcess_IdempotentGeometry(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	refs := refsFor(t, dir, [][2]int{{120, 80}, {150, 90}, {135, 70}})

	engine := NewEngine(DefaultConfig(), nil)

	out1 := filepath.Join(dir, "out1")
	res1, err := engine.Process(context.Background(), Job{OutputDir: out1, Groups: []Group{refs}})
	require.NoError(t, err)

	out2 := filepath.Join(dir, "out2")
	res2, err := engine.Process(context.Background(), Job{OutputDir: out2, Groups: []Group{refs}})
	require.NoError(t, err)

	require.Len(t, res1.Artifacts, 1)
	require.Len(t, res2.Artifacts, 1)
	assert.Equal(t, res1.Artifacts[0].Width, res2.Artifacts[0].Width)
	assert.Equal(t, res1.Artifacts[0].Height, res2.Artifacts[0].Height)
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(Config{}, nil)
	assert.Equal(t, "stitched_long_image", e.cfg.BaseName)
	assert.Equal(t, 95, e.cfg.Quality)
	assert.Equal(t, 1, e.cfg.Workers)
	assert.NotNil(t, e.sink)
}

func TestArtifactName(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	assert.Equal(t, "stitched_long_image.jpg", e.artifactName(1, 0))
	assert.Equal(t, "stitched_long_image_part1.jpg", e.artifactName(2, 0))
	assert.Equal(t, "stitched_long_image_part7.jpg", e.artifactName(3, 6))
}
