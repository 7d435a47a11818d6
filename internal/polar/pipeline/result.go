package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/polarview/internal/polar/l3stokes"
	"github.com/banshee-data/polarview/internal/polar/l4visual"
)

// Dim is the size of the original frame, before even truncation.
type Dim struct {
	Width  uint32
	Height uint32
}

func (d Dim) String() string { return fmt.Sprintf("%dx%d", d.Width, d.Height) }

// Ticket identifies a submitted request.
type Ticket struct {
	ID          uuid.UUID
	Seq         uint64
	Path        string
	SubmittedAt time.Time
}

// ProcessingResult is the complete output of one request. It is built once
// and never mutated afterwards.
type ProcessingResult struct {
	RequestID   uuid.UUID
	Seq         uint64
	Path        string
	Format      string
	Dim         Dim
	Field       *l3stokes.Field
	Intensity   *l4visual.Buffer
	Stats       l3stokes.FieldStats
	SubmittedAt time.Time
	CompletedAt time.Time
}

// Sequence returns the submission sequence number.
func (r *ProcessingResult) Sequence() uint64 { return r.Seq }

// Elapsed is the time from submission to completion.
func (r *ProcessingResult) Elapsed() time.Duration { return r.CompletedAt.Sub(r.SubmittedAt) }

// Failure is the terminal value of a request that did not complete.
// State is where the request was when it failed.
type Failure struct {
	Ticket Ticket
	State  State
	Err    error
	At     time.Time
}

func (f *Failure) Error() string {
	return fmt.Sprintf("request %d (%s) failed while %s: %v", f.Ticket.Seq, f.Ticket.Path, f.State, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Sequence returns the submission sequence number.
func (f *Failure) Sequence() uint64 { return f.Ticket.Seq }
