package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/banshee-data/polarview/internal/fsutil"
	"github.com/banshee-data/polarview/internal/polar/pipeline"
	"github.com/banshee-data/polarview/internal/polar/viewer"
	"github.com/banshee-data/polarview/internal/timeutil"
)

func runView(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs, o := newFlagSet("view", stderr)
	if err := fs.Parse(args); err != nil {
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

	return viewLoop(ctx, o, fsutil.OSFileSystem{}, timeutil.RealClock{}, svc, stdin, stdout)
}

// viewLoop treats each stdin line as a Load action. The display loop keeps
// running while lines arrive; at end of input it lets in-flight requests
// finish and shows the final state.
func viewLoop(ctx context.Context, o *options, fsys fsutil.FileSystem, clock timeutil.Clock, svc *services, stdin io.Reader, stdout io.Writer) error {
	orch, err := pipeline.New(o.pipelineConfig(), fsys, pipeline.WithMetrics(svc.metrics), pipeline.WithClock(clock))
	if err != nil {
		return err
	}

	var outMu sync.Mutex
	printf := func(format string, args ...interface{}) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(stdout, format, args...)
	}

	v := viewer.New(orch, o.sink(fsys), viewer.Options{
		Policy:       o.stalePolicy(),
		TickInterval: o.tick,
		Clock:        clock,
		Recorder:     svc.recorder(),
		Metrics:      svc.metrics,
		OnDisplay: func(r *pipeline.ProcessingResult) {
			printf("displayed %s\n", viewer.Info(r))
		},
		OnFailure: func(f *pipeline.Failure) {
			printf("failed %s: %v\n", f.Ticket.Path, f.Err)
		},
	})

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan error, 1)
	go func() { loopDone <- v.Run(loopCtx) }()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

read:
	for {
		select {
		case <-ctx.Done():
			break read
		case line, ok := <-lines:
			if !ok {
				break read
			}
			path := strings.TrimSpace(line)
			if path == "" || strings.HasPrefix(path, "#") {
				continue
			}
			if t, err := v.Load(path); err != nil {
				printf("load %s: %v\n", path, err)
			} else {
				printf("loading %s (request %d)\n", path, t.Seq)
			}
		}
	}

	_ = orch.Close()
	stopLoop()
	loopErr := <-loopDone

	// Run has returned, so this goroutine may tick.
	v.Tick(context.Background())

	if loopErr != nil {
		return loopErr
	}
	select {
	case err := <-scanErr:
		return err
	default:
		return nil
	}
}
