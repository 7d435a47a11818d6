package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/polarview/internal/config"
	"github.com/banshee-data/polarview/internal/polar/journal"
)

func runJournal(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSON config file (for journal_path)")
	path := fs.String("journal", "", "SQLite journal path")
	limit := fs.Int("limit", 20, "number of entries to show")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *path == "" && *configPath != "" {
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		*path = cfg.GetJournalPath()
	}
	if *path == "" {
		fmt.Fprintln(stderr, "journal: --journal or a config with journal_path is required")
		return errUsage
	}

	store, err := journal.Open(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	return printJournal(ctx, store, *limit, stdout)
}

func printJournal(ctx context.Context, store *journal.Store, limit int, stdout io.Writer) error {
	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tCOMPLETED\tOUTCOME\tSTATE\tSIZE\tPATH\tDETAIL")
	for _, e := range entries {
		size, detail := "-", e.Error
		if e.Outcome == journal.OutcomeDelivered {
			size = fmt.Sprintf("%dx%d", e.Width, e.Height)
			detail = fmt.Sprintf("%s s0=%.4f±%.4f displayed=%v", e.Format, e.S0Mean, e.S0StdDev, e.Displayed)
		} else if e.ErrorKind != "" {
			detail = e.ErrorKind + ": " + e.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Seq, e.CompletedAt.Local().Format(time.DateTime), e.Outcome, e.State, size, e.Path, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\n%d delivered, %d failed\n", counts[journal.OutcomeDelivered], counts[journal.OutcomeFailed])
	return nil
}
