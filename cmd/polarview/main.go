package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/polarview/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "process":
		err = runProcess(ctx, rest, stdout, stderr)
	case "view":
		err = runView(ctx, rest, stdin, stdout, stderr)
	case "journal":
		err = runJournal(ctx, rest, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String())
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 2
	}

	if err != nil {
		if err == errUsage {
			return 2
		}
		fmt.Fprintf(stderr, "polarview %s: %v\n", command, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `polarview - Stokes parameter extraction for 2x2 polarization mosaics

Usage: polarview <command> [options]

Commands:
  process    Process image files given as arguments and write the outputs
  view       Read paths from stdin, one per line, and keep the newest result on display
  journal    Show recent requests from the SQLite journal
  version    Show build information
  help       Show this help message

Common Flags (process, view):
  --config <file>       JSON config (see config/polarview.defaults.json)
  --workers <n>         Concurrent decode/compute requests (0 = one per CPU)
  --out <dir>           Output directory for intensity images
  --upscale <n>         Nearest-neighbour display upscale factor
  --heatmaps            Also write S1/S2 heatmaps
  --report              Also write an HTML histogram report
  --journal <file>      Record every request in a SQLite journal
  --metrics-addr <addr> Serve /metrics and the /api JSON endpoints on addr
  -v                    Verbose diagnostics
  --trace               Log every request state transition

Examples:
  polarview process --out results frame_0001.tiff frame_0002.tiff
  ls captures/*.png | polarview view --out live --heatmaps`)
}
