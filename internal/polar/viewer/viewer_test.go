package viewer

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/polarview/internal/fsutil"
	"github.com/banshee-data/polarview/internal/monitoring"
	"github.com/banshee-data/polarview/internal/polar/l2mosaic"
	"github.com/banshee-data/polarview/internal/polar/l3stokes"
	"github.com/banshee-data/polarview/internal/polar/l4visual"
	"github.com/banshee-data/polarview/internal/polar/pipeline"
	"github.com/banshee-data/polarview/internal/polar/results"
	"github.com/banshee-data/polarview/internal/testutil"
	"github.com/banshee-data/polarview/internal/timeutil"
)

type fakeSource struct {
	results   *results.Queue[*pipeline.ProcessingResult]
	failures  *results.Queue[*pipeline.Failure]
	submitted []string
	err       error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		results:  results.NewQueue[*pipeline.ProcessingResult](),
		failures: results.NewQueue[*pipeline.Failure](),
	}
}

func (s *fakeSource) Submit(path string) (pipeline.Ticket, error) {
	if s.err != nil {
		return pipeline.Ticket{}, s.err
	}
	s.submitted = append(s.submitted, path)
	return pipeline.Ticket{Seq: uint64(len(s.submitted)), Path: path}, nil
}

func (s *fakeSource) Results() *results.Queue[*pipeline.ProcessingResult] { return s.results }
func (s *fakeSource) Failures() *results.Queue[*pipeline.Failure]       { return s.failures }

type fakeRecorder struct {
	mu        sync.Mutex
	results   map[uint64]bool
	failures  []uint64
	failWrite bool
}

func (r *fakeRecorder) RecordResult(_ context.Context, res *pipeline.ProcessingResult, displayed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = make(map[uint64]bool)
	}
	r.results[res.Seq] = displayed
	if r.failWrite {
		return errors.New("disk full")
	}
	return nil
}

func (r *fakeRecorder) RecordFailure(_ context.Context, f *pipeline.Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f.Ticket.Seq)
	return nil
}

func makeResult(t *testing.T, seq uint64, path string, width, height int, pix []uint8) *pipeline.ProcessingResult {
	t.Helper()
	frame, err := l2mosaic.NewRawFrame(width, height, pix)
	require.NoError(t, err)
	field := l3stokes.BuildField(frame, l2mosaic.NewSampler(l2mosaic.DefaultLayout()))
	return &pipeline.ProcessingResult{
		Seq:       seq,
		Path:      path,
		Format:    "png",
		Dim:       pipeline.Dim{Width: uint32(width), Height: uint32(height)},
		Field:     field,
		Intensity: l4visual.IntensityBuffer(field, l4visual.DefaultIntensityPolicy()),
		Stats:     field.Stats(),
	}
}

func scenarioResult(t *testing.T, seq uint64, path string) *pipeline.ProcessingResult {
	return makeResult(t, seq, path, 4, 4, testutil.ScenarioPix())
}

func TestTickIdle(t *testing.T) {
	sink := &MemorySink{}
	v := New(newFakeSource(), sink, Options{})

	assert.Equal(t, TickStats{}, v.Tick(context.Background()))
	assert.Empty(t, sink.Calls())
	_, ok := v.Current()
	assert.False(t, ok)
}

func TestLoadSubmits(t *testing.T) {
	src := newFakeSource()
	v := New(src, &MemorySink{}, Options{})

	tk, err := v.Load("/in/a.png")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tk.Seq)
	assert.Equal(t, []string{"/in/a.png"}, src.submitted)

	src.err = pipeline.ErrClosed
	_, err = v.Load("/in/b.png")
	assert.ErrorIs(t, err, pipeline.ErrClosed)
}

func TestStaleResultsDiscarded(t *testing.T) {
	src := newFakeSource()
	sink := &MemorySink{}
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg)
	v := New(src, sink, Options{Policy: results.PolicyLatestSequence, Metrics: m})

	src.results.Push(scenarioResult(t, 2, "/in/new.png"))
	st := v.Tick(context.Background())
	assert.True(t, st.Shown)

	// Older request finishing late.
	src.results.Push(scenarioResult(t, 1, "/in/old.png"))
	st = v.Tick(context.Background())
	assert.Equal(t, TickStats{Results: 1, Stale: 1}, st)

	calls := sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/in/new.png", calls[0].Result.Path)
	cur, _ := v.Current()
	assert.Equal(t, "/in/new.png", cur.Path)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Stale))
}

func TestLastArrivalPolicy(t *testing.T) {
	src := newFakeSource()
	sink := &MemorySink{}
	v := New(src, sink, Options{Policy: results.PolicyLastArrival})

	src.results.Push(scenarioResult(t, 2, "/in/new.png"))
	src.results.Push(scenarioResult(t, 1, "/in/old.png"))
	st := v.Tick(context.Background())
	assert.Equal(t, 2, st.Results)
	assert.Equal(t, 0, st.Stale)

	// One display per tick, showing whatever arrived last.
	calls := sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/in/old.png", calls[0].Result.Path)
	assert.Equal(t, []uint8{130, 85, 130, 85}, calls[0].Buffer.Pix)

	v.Tick(context.Background())
	assert.Len(t, sink.Calls(), 1, "unchanged slot must not be redisplayed")
}

func TestFailureKeepsDisplayedResult(t *testing.T) {
	src := newFakeSource()
	sink := &MemorySink{}
	var failed []*pipeline.Failure
	rec := &fakeRecorder{}
	v := New(src, sink, Options{
		OnFailure: func(f *pipeline.Failure) { failed = append(failed, f) },
		Recorder:  rec,
	})

	src.results.Push(scenarioResult(t, 1, "/in/good.png"))
	v.Tick(context.Background())

	src.failures.Push(&pipeline.Failure{
		Ticket: pipeline.Ticket{Seq: 2, Path: "/in/bad.png"},
		State:  pipeline.StateDecoding,
		Err:    errors.New("corrupt"),
	})
	st := v.Tick(context.Background())
	assert.Equal(t, 1, st.Failures)
	assert.False(t, st.Shown)

	require.Len(t, failed, 1)
	assert.Equal(t, "/in/bad.png", failed[0].Ticket.Path)
	cur, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, "/in/good.png", cur.Path)

	assert.Equal(t, map[uint64]bool{1: true}, rec.results)
	assert.Equal(t, []uint64{2}, rec.failures)
}

func TestSinkErrorIsNotRetried(t *testing.T) {
	src := newFakeSource()
	sink := &MemorySink{Err: errors.New("display gone")}
	v := New(src, sink, Options{})

	src.results.Push(scenarioResult(t, 1, "/in/a.png"))
	st := v.Tick(context.Background())
	assert.False(t, st.Shown)
	v.Tick(context.Background())

	assert.Len(t, sink.Calls(), 1)
	_, ok := v.Current()
	assert.True(t, ok)
}

func TestRecorderMarksOnlyShownResultDisplayed(t *testing.T) {
	src := newFakeSource()
	sink := &MemorySink{}
	rec := &fakeRecorder{}
	v := New(src, sink, Options{Policy: results.PolicyLatestSequence, Recorder: rec})

	// 1 and 3 are accepted in turn, 2 is stale behind 3; only 3 reaches the sink.
	src.results.Push(scenarioResult(t, 1, "/in/a.png"))
	src.results.Push(scenarioResult(t, 3, "/in/c.png"))
	src.results.Push(scenarioResult(t, 2, "/in/b.png"))
	st := v.Tick(context.Background())
	require.True(t, st.Shown)
	require.Len(t, sink.Calls(), 1)

	assert.Equal(t, map[uint64]bool{1: false, 2: false, 3: true}, rec.results)
}

func TestRecorderAfterSinkFailure(t *testing.T) {
	src := newFakeSource()
	rec := &fakeRecorder{}
	v := New(src, &MemorySink{Err: errors.New("display gone")}, Options{Recorder: rec})

	src.results.Push(scenarioResult(t, 1, "/in/a.png"))
	v.Tick(context.Background())

	assert.Equal(t, map[uint64]bool{1: false}, rec.results)
}

func TestRecorderErrorsDoNotStopTick(t *testing.T) {
	src := newFakeSource()
	sink := &MemorySink{}
	v := New(src, sink, Options{Recorder: &fakeRecorder{failWrite: true}})

	src.results.Push(scenarioResult(t, 1, "/in/a.png"))
	st := v.Tick(context.Background())
	assert.True(t, st.Shown)
}

func TestRunWithOrchestrator(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	testutil.WriteGrayPNG(t, fsys, "/in/scenario.png", 4, 4, testutil.ScenarioPix())

	orch, err := pipeline.New(pipeline.DefaultConfig(), fsys)
	require.NoError(t, err)
	defer orch.Close()

	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := &MemorySink{}
	shown := make(chan *pipeline.ProcessingResult, 1)
	v := New(orch, sink, Options{
		Clock:     clock,
		OnDisplay: func(r *pipeline.ProcessingResult) { shown <- r },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx) }()

	require.Eventually(t, func() bool { return len(clock.Tickers()) == 1 }, 2*time.Second, time.Millisecond)

	_, err = v.Load("/in/scenario.png")
	require.NoError(t, err)
	orch.Wait()

	clock.Advance(DefaultTickInterval)
	select {
	case r := <-shown:
		assert.Equal(t, "/in/scenario.png", r.Path)
		assert.Equal(t, pipeline.Dim{Width: 4, Height: 4}, r.Dim)
	case <-time.After(2 * time.Second):
		t.Fatal("result never displayed")
	}

	calls := sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []uint8{130, 85, 130, 85}, calls[0].Buffer.Pix)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, clock.Tickers()[0].Stopped())
}

func TestPNGSink(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	sink := &PNGSink{FS: fsys, Dir: "/out", Upscale: 3, Heatmaps: true, Report: true}
	res := makeResult(t, 1, "/in/sky.tiff", 8, 6, testutil.GradientPix(8, 6))

	require.NoError(t, sink.Set(res.Intensity, res))

	assert.Equal(t, []string{
		"/out/sky.intensity.png",
		"/out/sky.report.html",
		"/out/sky.s1.png",
		"/out/sky.s2.png",
	}, fsys.Files())

	data, err := fsys.ReadFile("/out/sky.intensity.png")
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 9, img.Bounds().Dy())

	html, err := fsys.ReadFile("/out/sky.report.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "sky.tiff")
}

func TestPNGSinkSkipsEmptyBuffer(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	sink := &PNGSink{FS: fsys, Dir: "/out", Heatmaps: true}
	res := makeResult(t, 1, "/in/thin.png", 1, 3, []uint8{1, 2, 3})

	require.NoError(t, sink.Set(res.Intensity, res))
	assert.Empty(t, fsys.Files())
}

func TestOutputNameAndInfo(t *testing.T) {
	assert.Equal(t, "frame", OutputName("/data/run1/frame.png"))
	assert.Equal(t, "archive.tar", OutputName("archive.tar.gz"))
	assert.Equal(t, "left_cam_1", OutputName("/captures/left cam #1.tiff"))

	info := Info(scenarioResult(t, 1, "/in/s.png"))
	assert.Equal(t, "Path: /in/s.png | Dimensions: 4x4 | Stokes field: 2x2", info)
}
