package viewer

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/banshee-data/polarview/internal/fsutil"
	"github.com/banshee-data/polarview/internal/polar/l3stokes"
	"github.com/banshee-data/polarview/internal/polar/l4visual"
	"github.com/banshee-data/polarview/internal/polar/pipeline"
	"github.com/banshee-data/polarview/internal/security"
)

// DisplaySink receives each visualization buffer the viewer decides to
// show, together with the result it came from. Set is called from the
// viewer's loop goroutine only.
type DisplaySink interface {
	Set(buf *l4visual.Buffer, res *pipeline.ProcessingResult) error
}

// PNGSink writes displayed buffers to Dir as PNG files named after the
// source: <name>.intensity.png, plus <name>.s1.png / <name>.s2.png
// heatmaps and <name>.report.html when enabled.
type PNGSink struct {
	FS  fsutil.FileSystem
	Dir string

	// Upscale enlarges the intensity image by nearest-neighbour
	// replication so individual cells stay sharp. Values <= 1 write it
	// at field size.
	Upscale int

	Heatmaps bool
	Report   bool
}

// Set implements DisplaySink.
func (s *PNGSink) Set(buf *l4visual.Buffer, res *pipeline.ProcessingResult) error {
	if len(buf.Pix) == 0 {
		diagf("Nothing to write for %s: %s", res.Path, Info(res))
		return nil
	}
	if err := s.FS.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Join(s.Dir, OutputName(res.Path))

	data, err := buf.EncodePNG(s.Upscale)
	if err != nil {
		return fmt.Errorf("encode intensity for %s: %w", res.Path, err)
	}
	if err := s.FS.WriteFile(base+".intensity.png", data, 0644); err != nil {
		return fmt.Errorf("write intensity for %s: %w", res.Path, err)
	}

	if s.Heatmaps && res.Field.Len() > 0 {
		for _, c := range []l3stokes.Component{l3stokes.ComponentS1, l3stokes.ComponentS2} {
			img, err := l4visual.RenderHeatmap(res.Field, c, fmt.Sprintf("%s %s", filepath.Base(res.Path), c))
			if err != nil {
				return fmt.Errorf("render %s heatmap for %s: %w", c, res.Path, err)
			}
			if err := s.FS.WriteFile(base+"."+c.String()+".png", img, 0644); err != nil {
				return fmt.Errorf("write %s heatmap for %s: %w", c, res.Path, err)
			}
		}
	}

	if s.Report && res.Field.Len() > 0 {
		html, err := l4visual.RenderReport(res.Field, l4visual.ReportInfo{
			Title:    filepath.Base(res.Path),
			Subtitle: Info(res),
		})
		if err != nil {
			return fmt.Errorf("render report for %s: %w", res.Path, err)
		}
		if err := s.FS.WriteFile(base+".report.html", html, 0644); err != nil {
			return fmt.Errorf("write report for %s: %w", res.Path, err)
		}
	}
	return nil
}

// OutputName strips directory and extension from a source path and
// reduces the rest to a safe file name stem.
func OutputName(path string) string {
	name := filepath.Base(path)
	return security.SanitizeFilename(strings.TrimSuffix(name, filepath.Ext(name)))
}

// SetCall is one recorded MemorySink.Set.
type SetCall struct {
	Buffer *l4visual.Buffer
	Result *pipeline.ProcessingResult
}

// MemorySink records every Set call. Err, when non-nil, is returned from
// Set after recording.
type MemorySink struct {
	mu    sync.Mutex
	calls []SetCall
	Err   error
}

// Set implements DisplaySink.
func (s *MemorySink) Set(buf *l4visual.Buffer, res *pipeline.ProcessingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, SetCall{Buffer: buf, Result: res})
	return s.Err
}

// Calls returns the recorded calls in order.
func (s *MemorySink) Calls() []SetCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SetCall(nil), s.calls...)
}

// Info formats the image info line shown next to a displayed result.
func Info(res *pipeline.ProcessingResult) string {
	return fmt.Sprintf("Path: %s | Dimensions: %dx%d | Stokes field: %dx%d",
		res.Path, res.Dim.Width, res.Dim.Height, res.Field.Width, res.Field.Height)
}
