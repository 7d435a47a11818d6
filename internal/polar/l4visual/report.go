package l4visual

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/polarview/internal/polar/l3stokes"
)

// DefaultHistogramBins is the bin count used by RenderReport.
const DefaultHistogramBins = 32

// Histogram bins one component over its nominal range (S0 in [0,2], S1
// and S2 in [-1,1]). It returns the bin counts and the len(counts)+1 bin
// edges. Values outside the range are clamped into the end bins.
func Histogram(field *l3stokes.Field, comp l3stokes.Component, bins int) (counts, edges []float64) {
	if bins < 1 {
		bins = 1
	}
	lo, hi := componentRange(comp)

	values := field.Values(comp)
	for i, v := range values {
		values[i] = math.Min(math.Max(v, lo), hi)
	}
	sort.Float64s(values)

	edges = floats.Span(make([]float64, bins+1), lo, hi)
	// The top edge is exclusive; nudge it so hi itself lands in the last bin.
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts = stat.Histogram(nil, dividers, values, nil)
	return counts, edges
}

// ReportInfo labels an HTML report.
type ReportInfo struct {
	Title    string
	Subtitle string
}

// RenderReport renders an HTML page with one histogram per Stokes
// component and the field summary statistics in each chart subtitle.
func RenderReport(field *l3stokes.Field, info ReportInfo) ([]byte, error) {
	stats := field.Stats()
	page := components.NewPage()
	page.PageTitle = info.Title

	for _, comp := range l3stokes.Components {
		counts, edges := Histogram(field, comp, DefaultHistogramBins)

		labels := make([]string, len(counts))
		data := make([]opts.BarData, len(counts))
		for i, c := range counts {
			labels[i] = fmt.Sprintf("%.3f", (edges[i]+edges[i+1])/2)
			data[i] = opts.BarData{Value: c}
		}

		cs := stats.Component(comp)
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: info.Title, Width: "900px", Height: "360px"}),
			charts.WithTitleOpts(opts.Title{
				Title: fmt.Sprintf("%s histogram", comp),
				Subtitle: fmt.Sprintf("%s mean=%.4f std=%.4f min=%.4f max=%.4f n=%d",
					info.Subtitle, cs.Mean, cs.StdDev, cs.Min, cs.Max, stats.Samples),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: comp.String(), NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: "cells"}),
		)
		bar.SetXAxis(labels).AddSeries(comp.String(), data)
		page.AddCharts(bar)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}
