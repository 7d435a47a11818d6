package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/banshee-data/polarview/internal/fsutil"
	"github.com/banshee-data/polarview/internal/polar/pipeline"
	"github.com/banshee-data/polarview/internal/polar/viewer"
)

func runProcess(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, o := newFlagSet("process", stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "process: no input files")
		fs.Usage()
		return errUsage
	}
	if err := o.resolve(fs); err != nil {
		return err
	}
	o.configureLogging(stderr)

	svc, err := o.startServices(stderr)
	if err != nil {
		return err
	}
	defer svc.close()

	return processFiles(ctx, o, fsutil.OSFileSystem{}, svc, fs.Args(), stdout)
}

// processFiles runs every path through the pool, then writes each result
// through the PNG sink in submission order. Every file is written, not
// just the newest.
func processFiles(ctx context.Context, o *options, fsys fsutil.FileSystem, svc *services, paths []string, stdout io.Writer) error {
	orch, err := pipeline.New(o.pipelineConfig(), fsys, pipeline.WithMetrics(svc.metrics))
	if err != nil {
		return err
	}
	defer orch.Close()

	for _, p := range paths {
		if _, err := orch.Submit(p); err != nil {
			return err
		}
	}
	orch.Wait()

	delivered := orch.Results().Drain()
	sort.Slice(delivered, func(i, j int) bool { return delivered[i].Seq < delivered[j].Seq })
	failures := orch.Failures().Drain()
	sort.Slice(failures, func(i, j int) bool { return failures[i].Ticket.Seq < failures[j].Ticket.Seq })

	sink := o.sink(fsys)
	failed := len(failures)
	for _, res := range delivered {
		werr := sink.Set(res.Intensity, res)
		if werr != nil {
			failed++
			fmt.Fprintf(stdout, "FAIL %s: %v\n", res.Path, werr)
		} else {
			fmt.Fprintf(stdout, "ok   %s (s0 mean %.4f, %v)\n", viewer.Info(res), res.Stats.S0.Mean, res.Elapsed())
		}
		if svc.journal != nil {
			if err := svc.journal.RecordResult(ctx, res, werr == nil); err != nil {
				fmt.Fprintf(stdout, "journal: %v\n", err)
			}
		}
	}
	for _, f := range failures {
		fmt.Fprintf(stdout, "FAIL %s: %v\n", f.Ticket.Path, f.Err)
		if svc.journal != nil {
			if err := svc.journal.RecordFailure(ctx, f); err != nil {
				fmt.Fprintf(stdout, "journal: %v\n", err)
			}
		}
	}

	fmt.Fprintf(stdout, "%d processed, %d failed\n", len(paths)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
