package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/banshee-data/polarview/internal/api"
	"github.com/banshee-data/polarview/internal/config"
	"github.com/banshee-data/polarview/internal/fsutil"
	"github.com/banshee-data/polarview/internal/monitoring"
	"github.com/banshee-data/polarview/internal/polar/journal"
	"github.com/banshee-data/polarview/internal/polar/l2mosaic"
	"github.com/banshee-data/polarview/internal/polar/l4visual"
	"github.com/banshee-data/polarview/internal/polar/pipeline"
	"github.com/banshee-data/polarview/internal/polar/results"
	"github.com/banshee-data/polarview/internal/polar/viewer"
)

var errUsage = errors.New("usage")

// options are the flags shared by process and view. Flags left unset fall
// back to the config file, then to built-in defaults.
type options struct {
	configPath  string
	workers     int
	scale       float64
	strict      bool
	policy      string
	tick        time.Duration
	outDir      string
	upscale     int
	heatmaps    bool
	report      bool
	journalPath string
	metricsAddr string
	verbose     bool
	trace       bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *options) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "JSON config file")
	fs.IntVar(&o.workers, "workers", 0, "concurrent requests (0 = one per CPU)")
	fs.Float64Var(&o.scale, "scale", config.DefaultConfig().GetIntensityScale(), "S0 to display byte scale")
	fs.BoolVar(&o.strict, "strict", false, "fail frames smaller than 2x2")
	fs.StringVar(&o.policy, "policy", "sequence", "stale result policy: sequence or arrival")
	fs.DurationVar(&o.tick, "tick", viewer.DefaultTickInterval, "viewer poll interval")
	fs.StringVar(&o.outDir, "out", "out", "output directory")
	fs.IntVar(&o.upscale, "upscale", 4, "nearest-neighbour upscale factor for intensity images")
	fs.BoolVar(&o.heatmaps, "heatmaps", false, "write S1/S2 heatmaps")
	fs.BoolVar(&o.report, "report", false, "write an HTML histogram report")
	fs.StringVar(&o.journalPath, "journal", "", "SQLite journal path (empty disables)")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve /metrics and /api on this address")
	fs.BoolVar(&o.verbose, "v", false, "verbose diagnostics")
	fs.BoolVar(&o.trace, "trace", false, "log every request state transition")
	return fs, o
}

// resolve merges the config file under any explicitly set flags.
func (o *options) resolve(fs *flag.FlagSet) error {
	cfg := config.EmptyConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(o.configPath); err != nil {
			return err
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["workers"] {
		o.workers = cfg.GetWorkers()
	}
	if !set["scale"] {
		o.scale = cfg.GetIntensityScale()
	}
	if !set["strict"] {
		o.strict = cfg.GetStrictDimensions()
	}
	if !set["policy"] {
		o.policy = cfg.GetStalePolicy()
	}
	if !set["tick"] {
		o.tick = cfg.GetTickInterval()
	}
	if !set["out"] {
		o.outDir = cfg.GetOutputDir()
	}
	if !set["upscale"] {
		o.upscale = cfg.GetDisplayUpscale()
	}
	if !set["heatmaps"] {
		o.heatmaps = cfg.GetWriteHeatmaps()
	}
	if !set["report"] {
		o.report = cfg.GetWriteReport()
	}
	if !set["journal"] {
		o.journalPath = cfg.GetJournalPath()
	}
	if !set["metrics-addr"] {
		o.metricsAddr = cfg.GetMetricsAddr()
	}

	// Flags bypass the file's validation, so check the merged result.
	merged := &config.PolarConfig{
		Workers:        &o.workers,
		IntensityScale: &o.scale,
		StalePolicy:    &o.policy,
		DisplayUpscale: &o.upscale,
	}
	tick := o.tick.String()
	merged.TickInterval = &tick
	return merged.Validate()
}

func (o *options) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Workers:          o.workers,
		Layout:           l2mosaic.DefaultLayout(),
		Intensity:        l4visual.IntensityPolicy{Scale: o.scale},
		StrictDimensions: o.strict,
	}
}

func (o *options) stalePolicy() results.Policy {
	p, err := results.ParsePolicy(o.policy)
	if err != nil {
		return results.PolicyLatestSequence
	}
	return p
}

func (o *options) sink(fsys fsutil.FileSystem) *viewer.PNGSink {
	return &viewer.PNGSink{
		FS:       fsys,
		Dir:      o.outDir,
		Upscale:  o.upscale,
		Heatmaps: o.heatmaps,
		Report:   o.report,
	}
}

// configureLogging routes ops to stderr always, diag with -v, trace with
// -trace.
func (o *options) configureLogging(stderr io.Writer) {
	w := monitoring.LogWriters{Ops: stderr}
	switch {
	case o.trace:
		w = monitoring.Legacy(stderr)
	case o.verbose:
		w.Diag = stderr
	}
	pipeline.SetLogWriters(w)
	viewer.SetLogWriters(w)

	logger := log.New(stderr, "", log.LstdFlags)
	if o.verbose {
		monitoring.SetLogger(logger.Printf)
	} else {
		monitoring.SetLogger(nil)
	}
}

// services holds the optional journal and the HTTP endpoint serving
// /metrics and /api.
type services struct {
	metrics *monitoring.Metrics
	journal *journal.Store
	server  *http.Server
}

func (o *options) startServices(stderr io.Writer) (*services, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	s := &services{metrics: monitoring.NewMetrics(reg)}

	if o.journalPath != "" {
		j, err := journal.Open(o.journalPath)
		if err != nil {
			return nil, err
		}
		s.journal = j
	}

	if o.metricsAddr != "" {
		var jr api.JournalReader
		if s.journal != nil {
			jr = s.journal
		}
		srv := api.NewServer(jr, reg)
		s.server = &http.Server{Addr: o.metricsAddr, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(stderr, "metrics server: %v\n", err)
			}
		}()
	}
	return s, nil
}

// recorder returns the journal as a viewer.Recorder, or nil.
func (s *services) recorder() viewer.Recorder {
	if s.journal == nil {
		return nil
	}
	return s.journal
}

func (s *services) close() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = s.server.Shutdown(ctx)
		cancel()
	}
	if s.journal != nil {
		_ = s.journal.Close()
	}
}
