package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/banshee-data/polarview/internal/fsutil"
	"github.com/banshee-data/polarview/internal/monitoring"
	"github.com/banshee-data/polarview/internal/polar/l1decode"
	"github.com/banshee-data/polarview/internal/polar/l2mosaic"
	"github.com/banshee-data/polarview/internal/polar/l3stokes"
	"github.com/banshee-data/polarview/internal/polar/l4visual"
	"github.com/banshee-data/polarview/internal/polar/results"
	"github.com/banshee-data/polarview/internal/timeutil"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("pipeline: orchestrator closed")

// Config holds the processing parameters fixed for the orchestrator's
// lifetime.
type Config struct {
	// Workers bounds how many requests decode/compute at once. Zero means
	// runtime.NumCPU().
	Workers int

	Layout    l2mosaic.Layout
	Intensity l4visual.IntensityPolicy

	// StrictDimensions fails frames smaller than 2×2 instead of producing
	// an empty field.
	StrictDimensions bool

	// StateHistory is how many finished requests State still reports.
	// Older ones are forgotten. Zero means DefaultStateHistory.
	StateHistory int
}

// DefaultStateHistory bounds the per-request state table.
const DefaultStateHistory = 1024

// DefaultConfig returns the standard layout and intensity policy with one
// worker per CPU.
func DefaultConfig() Config {
	return Config{
		Layout:    l2mosaic.DefaultLayout(),
		Intensity: l4visual.DefaultIntensityPolicy(),
	}
}

// Validate checks the layout and intensity policy.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.StateHistory < 0 {
		return fmt.Errorf("state history must be >= 0, got %d", c.StateHistory)
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if err := c.Intensity.Validate(); err != nil {
		return fmt.Errorf("intensity: %w", err)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for request timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithMetrics records request counts and stage timings on m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithStateHook calls fn on every state transition, from the goroutine
// making it. fn must not block; it may call State.
func WithStateHook(fn func(t Ticket, s State)) Option {
	return func(o *Orchestrator) { o.hook = fn }
}

// Orchestrator runs load requests on a bounded background pool.
type Orchestrator struct {
	cfg     Config
	decoder *l1decode.Decoder
	sampler *l2mosaic.Sampler
	clock   timeutil.Clock
	metrics *monitoring.Metrics
	hook    func(Ticket, State)

	// compute is BuildField; replaced in tests to inject faults.
	compute func(*l2mosaic.RawFrame, *l2mosaic.Sampler) *l3stokes.Field

	sem      *semaphore.Weighted
	results  *results.Queue[*ProcessingResult]
	failures *results.Queue[*Failure]

	mu      sync.Mutex
	seq     uint64
	states  map[uint64]State
	retired []uint64 // finished requests, oldest first
	closed  bool
	pending sync.WaitGroup
}

// New returns an Orchestrator reading source files through fsys.
func New(cfg Config, fsys fsutil.FileSystem, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:      cfg,
		decoder:  l1decode.NewDecoder(fsys, cfg.StrictDimensions),
		sampler:  l2mosaic.NewSampler(cfg.Layout),
		clock:    timeutil.RealClock{},
		compute:  l3stokes.BuildField,
		sem:      semaphore.NewWeighted(int64(cfg.workers())),
		results:  results.NewQueue[*ProcessingResult](),
		failures: results.NewQueue[*Failure](),
		states:   make(map[uint64]State),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Results is the queue of delivered results.
func (o *Orchestrator) Results() *results.Queue[*ProcessingResult] { return o.results }

// Failures is the queue of failed requests.
func (o *Orchestrator) Failures() *results.Queue[*Failure] { return o.failures }

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Prepare registers a request for path without dispatching it, for callers
// that drive Run themselves.
func (o *Orchestrator) Prepare(path string) (Ticket, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Ticket{}, ErrClosed
	}
	t := o.newTicketLocked(path)
	o.mu.Unlock()

	o.notify(t, StateRequested)
	return t, nil
}

// Submit registers a request for path and dispatches it onto the pool.
// It never waits for a worker. The outcome arrives on Results or Failures.
func (o *Orchestrator) Submit(path string) (Ticket, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Ticket{}, ErrClosed
	}
	t := o.newTicketLocked(path)
	o.pending.Add(1)
	o.mu.Unlock()

	o.notify(t, StateRequested)
	if o.metrics != nil {
		o.metrics.InFlight.Inc()
	}
	go o.work(t)
	return t, nil
}

func (o *Orchestrator) newTicketLocked(path string) Ticket {
	o.seq++
	t := Ticket{
		ID:          uuid.New(),
		Seq:         o.seq,
		Path:        path,
		SubmittedAt: o.clock.Now(),
	}
	o.states[t.Seq] = StateRequested
	tracef("Request %d: %s → %s", t.Seq, StateIdle, StateRequested)
	if o.metrics != nil {
		o.metrics.Submitted.Inc()
	}
	return t
}

func (o *Orchestrator) work(t Ticket) {
	defer o.pending.Done()
	if o.metrics != nil {
		defer o.metrics.InFlight.Dec()
	}

	res, err := o.Run(context.Background(), t)
	if err != nil {
		var f *Failure
		if !errors.As(err, &f) {
			f = &Failure{Ticket: t, State: o.stateOf(t.Seq), Err: err, At: o.clock.Now()}
		}
		o.failures.Push(f)
		return
	}
	o.results.Push(res)
	o.transition(t, StateDelivered)
	if o.metrics != nil {
		o.metrics.Completed.WithLabelValues(monitoring.OutcomeDelivered).Inc()
	}
}

// Run processes t synchronously and returns its result in state Ready, or
// a *Failure. ctx bounds only the wait for a worker slot; once processing
// starts it runs to completion.
func (o *Orchestrator) Run(ctx context.Context, t Ticket) (res *ProcessingResult, err error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, o.fail(t, StateRequested, fmt.Errorf("waiting for worker: %w", err))
	}
	defer o.sem.Release(1)

	stage := StateRequested
	defer func() {
		if r := recover(); r != nil {
			opsf("Recovered panic in request %d (%s): %v", t.Seq, t.Path, r)
			res, err = nil, o.fail(t, stage, fmt.Errorf("panic: %v", r))
		}
	}()

	diagf("Processing %s", t.Path)
	start := o.clock.Now()

	data, err := o.decoder.Read(t.Path)
	if err != nil {
		return nil, o.fail(t, StateRequested, err)
	}

	stage = StateDecoding
	o.transition(t, stage)
	decoded, err := o.decoder.DecodeBytes(t.Path, data)
	if err != nil {
		return nil, o.fail(t, stage, err)
	}
	frame := decoded.Frame
	decodeDone := o.clock.Now()
	o.observe("decode", decodeDone.Sub(start))

	stage = StateComputing
	o.transition(t, stage)
	field := o.compute(frame, o.sampler)
	buf := l4visual.IntensityBuffer(field, o.cfg.Intensity)
	stats := field.Stats()
	done := o.clock.Now()
	o.observe("compute", done.Sub(decodeDone))

	res = &ProcessingResult{
		RequestID:   t.ID,
		Seq:         t.Seq,
		Path:        t.Path,
		Format:      decoded.Format,
		Dim:         Dim{Width: uint32(frame.Width), Height: uint32(frame.Height)},
		Field:       field,
		Intensity:   buf,
		Stats:       stats,
		SubmittedAt: t.SubmittedAt,
		CompletedAt: done,
	}
	stage = StateReady
	o.transition(t, stage)
	o.observe("total", done.Sub(start))

	diagf("Request %d %s: %s %s → %dx%d field, s0 mean %.4f, %v",
		t.Seq, t.Path, decoded.Format, res.Dim, field.Width, field.Height, stats.S0.Mean, done.Sub(start))
	return res, nil
}

func (o *Orchestrator) fail(t Ticket, at State, err error) *Failure {
	f := &Failure{Ticket: t, State: at, Err: err, At: o.clock.Now()}
	o.transition(t, StateFailed)
	opsf("%v", f)
	if o.metrics != nil {
		o.metrics.Completed.WithLabelValues(monitoring.OutcomeFailed).Inc()
		o.metrics.Failures.WithLabelValues(failureKind(err)).Inc()
	}
	return f
}

func failureKind(err error) string {
	if k := l1decode.KindOf(err); k != 0 {
		return k.String()
	}
	return "internal"
}

func (o *Orchestrator) observe(stage string, d time.Duration) {
	if o.metrics != nil {
		o.metrics.Duration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (o *Orchestrator) transition(t Ticket, to State) {
	o.mu.Lock()
	from := o.states[t.Seq]
	ok := CanTransition(from, to)
	if ok {
		o.states[t.Seq] = to
		if to.Terminal() {
			o.retireLocked(t.Seq)
		}
	}
	o.mu.Unlock()

	if !ok {
		opsf("Request %d: ignoring invalid transition %s → %s", t.Seq, from, to)
		return
	}
	tracef("Request %d: %s → %s", t.Seq, from, to)
	o.notify(t, to)
}

// retireLocked queues seq for eviction and forgets the oldest finished
// requests beyond the history limit.
func (o *Orchestrator) retireLocked(seq uint64) {
	limit := o.cfg.StateHistory
	if limit == 0 {
		limit = DefaultStateHistory
	}
	o.retired = append(o.retired, seq)
	for len(o.retired) > limit {
		delete(o.states, o.retired[0])
		o.retired = o.retired[1:]
	}
}

func (o *Orchestrator) notify(t Ticket, s State) {
	if o.hook != nil {
		o.hook(t, s)
	}
}

func (o *Orchestrator) stateOf(seq uint64) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[seq]
}

// State returns the last observed state of request seq. Finished
// requests are reported until StateHistory newer ones have finished.
func (o *Orchestrator) State(seq uint64) (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.states[seq]
	return s, ok
}

// Wait blocks until every submitted request has reached a terminal state.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

// Close stops accepting requests and waits for in-flight ones.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.pending.Wait()
	return nil
}
