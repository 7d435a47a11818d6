// Package viewer is the interactive side of polarview. It never waits on
// processing: each tick polls the result and failure queues without
// blocking, keeps the newest acceptable result in a display slot, and
// hands it to a DisplaySink.
package viewer

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/polarview/internal/monitoring"
	"github.com/banshee-data/polarview/internal/polar/pipeline"
	"github.com/banshee-data/polarview/internal/polar/results"
	"github.com/banshee-data/polarview/internal/timeutil"
)

// DefaultTickInterval paces the loop at roughly 60 polls per second.
const DefaultTickInterval = 16 * time.Millisecond

// Source is the processing side as seen by the viewer.
type Source interface {
	Submit(path string) (pipeline.Ticket, error)
	Results() *results.Queue[*pipeline.ProcessingResult]
	Failures() *results.Queue[*pipeline.Failure]
}

// Recorder receives every terminal request, displayed or not.
type Recorder interface {
	RecordResult(ctx context.Context, res *pipeline.ProcessingResult, displayed bool) error
	RecordFailure(ctx context.Context, f *pipeline.Failure) error
}

// Options configures a Viewer. The zero value is usable.
type Options struct {
	Policy       results.Policy
	TickInterval time.Duration
	Clock        timeutil.Clock

	// OnFailure is called for each failed request after it is logged.
	OnFailure func(*pipeline.Failure)
	// OnDisplay is called after the sink accepts a new result.
	OnDisplay func(*pipeline.ProcessingResult)

	Recorder Recorder
	Metrics  *monitoring.Metrics
}

// TickStats counts what one Tick did.
type TickStats struct {
	Results  int
	Stale    int
	Failures int
	Shown    bool
}

// Viewer is the consumer loop. Tick and Run must be called from one
// goroutine; Load and Current are safe from any.
type Viewer struct {
	src  Source
	sink DisplaySink
	opts Options
	slot *results.Slot[*pipeline.ProcessingResult]

	shown uint64 // sequence last handed to the sink
}

// New returns a Viewer polling src and displaying through sink.
func New(src Source, sink DisplaySink, opts Options) *Viewer {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Viewer{
		src:  src,
		sink: sink,
		opts: opts,
		slot: results.NewSlot[*pipeline.ProcessingResult](opts.Policy),
	}
}

// Load is the "Load" action: it submits path for background processing
// and returns at once.
func (v *Viewer) Load(path string) (pipeline.Ticket, error) {
	t, err := v.src.Submit(path)
	if err != nil {
		return t, err
	}
	diagf("Load %s as request %d", path, t.Seq)
	return t, nil
}

// Current returns the result on display.
func (v *Viewer) Current() (*pipeline.ProcessingResult, bool) {
	return v.slot.Load()
}

// Tick polls both queues once without blocking and updates the display.
func (v *Viewer) Tick(ctx context.Context) TickStats {
	var st TickStats

	// Recording waits until the sink has run, so displayed is only true
	// for the result the sink actually accepted.
	var batch []*pipeline.ProcessingResult
	for _, res := range v.src.Results().Drain() {
		st.Results++
		if !v.slot.Offer(res) {
			st.Stale++
			tracef("Discarding stale result %d (%s)", res.Seq, res.Path)
			if v.opts.Metrics != nil {
				v.opts.Metrics.Stale.Inc()
			}
		}
		batch = append(batch, res)
	}

	var shownSeq uint64
	if cur, ok := v.slot.Load(); ok && cur.Seq != v.shown {
		// Not retried on error; the next accepted result replaces it.
		v.shown = cur.Seq
		if err := v.sink.Set(cur.Intensity, cur); err != nil {
			opsf("Display of %s failed: %v", cur.Path, err)
		} else {
			st.Shown = true
			shownSeq = cur.Seq
			diagf("%s", Info(cur))
			if v.opts.OnDisplay != nil {
				v.opts.OnDisplay(cur)
			}
		}
	}

	if v.opts.Recorder != nil {
		for _, res := range batch {
			displayed := st.Shown && res.Seq == shownSeq
			if err := v.opts.Recorder.RecordResult(ctx, res, displayed); err != nil {
				opsf("Failed to record result %d: %v", res.Seq, err)
			}
		}
	}

	for _, f := range v.src.Failures().Drain() {
		st.Failures++
		opsf("Load failed: %v", f)
		if v.opts.Recorder != nil {
			if err := v.opts.Recorder.RecordFailure(ctx, f); err != nil {
				opsf("Failed to record failure %d: %v", f.Ticket.Seq, err)
			}
		}
		if v.opts.OnFailure != nil {
			v.opts.OnFailure(f)
		}
	}

	if st.Results > 0 || st.Failures > 0 {
		qs := v.src.Results().Stats()
		tracef("Tick: %d results (%d stale), %d failures, shown=%v; queue pushed=%d popped=%d pending=%d",
			st.Results, st.Stale, st.Failures, st.Shown, qs.Pushed, qs.Popped, qs.Pending)
	}
	return st
}

// Run ticks until ctx is done.
func (v *Viewer) Run(ctx context.Context) error {
	ticker := v.opts.Clock.NewTicker(v.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C():
			v.Tick(ctx)
		}
	}
}
