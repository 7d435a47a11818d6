package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/polarview/internal/httputil"
	"github.com/banshee-data/polarview/internal/monitoring"
	"github.com/banshee-data/polarview/internal/polar/journal"
	"github.com/banshee-data/polarview/internal/version"
)

// maxLimit caps ?limit= on /api/requests.
const maxLimit = 1000

// JournalReader is the read side of the request journal.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	Counts(ctx context.Context) (map[string]int, error)
}

// Server exposes metrics and, when a journal is configured, the request
// history as JSON.
type Server struct {
	journal  JournalReader
	gatherer prometheus.Gatherer
}

// NewServer returns a Server. j may be nil, in which case the /api/requests
// and /api/counts endpoints answer 404.
func NewServer(j JournalReader, g prometheus.Gatherer) *Server {
	return &Server{journal: j, gatherer: g}
}

// RequestAPI is the JSON shape of one journal entry.
type RequestAPI struct {
	RequestID   string   `json:"request_id"`
	Seq         uint64   `json:"seq"`
	Path        string   `json:"path"`
	Outcome     string   `json:"outcome"`
	State       string   `json:"state"`
	Format      string   `json:"format,omitempty"`
	Dimensions  string   `json:"dimensions,omitempty"`
	Displayed   bool     `json:"displayed"`
	ErrorKind   string   `json:"error_kind,omitempty"`
	Error       string   `json:"error,omitempty"`
	SubmittedAt string   `json:"submitted_at"`
	CompletedAt string   `json:"completed_at"`
	ElapsedMs   float64  `json:"elapsed_ms"`
	S0Mean      *float64 `json:"s0_mean,omitempty"`
	S0StdDev    *float64 `json:"s0_std,omitempty"`
}

// EntryToAPI converts a journal entry for output. Stokes statistics are
// only present for delivered requests.
func EntryToAPI(e journal.Entry) RequestAPI {
	out := RequestAPI{
		RequestID:   e.RequestID,
		Seq:         e.Seq,
		Path:        e.Path,
		Outcome:     e.Outcome,
		State:       e.State,
		Format:      e.Format,
		Displayed:   e.Displayed,
		ErrorKind:   e.ErrorKind,
		Error:       e.Error,
		SubmittedAt: e.SubmittedAt.Format(time.RFC3339Nano),
		CompletedAt: e.CompletedAt.Format(time.RFC3339Nano),
		ElapsedMs:   float64(e.CompletedAt.Sub(e.SubmittedAt).Nanoseconds()) / 1e6,
	}
	if e.Outcome == journal.OutcomeDelivered {
		out.Dimensions = fmt.Sprintf("%dx%d", e.Width, e.Height)
		mean, std := e.S0Mean, e.S0StdDev
		out.S0Mean, out.S0StdDev = &mean, &std
	}
	return out
}

// ServeMux routes /metrics and the /api endpoints.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler(s.gatherer))
	mux.HandleFunc("/api/requests", s.listRequests)
	mux.HandleFunc("/api/counts", s.showCounts)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

// Handler is ServeMux wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return httputil.LogRequests(s.ServeMux())
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.journal == nil {
		httputil.NotFound(w, "journal disabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			httputil.BadRequest(w, fmt.Sprintf("limit must be between 1 and %d", maxLimit))
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to read journal: %v", err))
		return
	}
	out := make([]RequestAPI, len(entries))
	for i, e := range entries {
		out[i] = EntryToAPI(e)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) showCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.journal == nil {
		httputil.NotFound(w, "journal disabled")
		return
	}
	counts, err := s.journal.Counts(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to count journal: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		journal.OutcomeDelivered: counts[journal.OutcomeDelivered],
		journal.OutcomeFailed:    counts[journal.OutcomeFailed],
	})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
