package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// renderLatencyChart plots mean per-operation latency (ns) as a
// grouped bar chart, one bar group per backend, one bar per operation.
// This is the first component in the tree that actually exercises the
// teacher's gonum/plot dependency, which its own main.go never called.
func renderLatencyChart(path string, backends []string, ops []string, latency map[string]map[string]float64) error {
	p := plot.New()
	p.Title.Text = "ixbench: mean latency by operation"
	p.Y.Label.Text = "ns/op"
	p.X.Label.Text = "operation"

	w := vg.Points(12)
	for i, backend := range backends {
		values := make(plotter.Values, len(ops))
		for j, op := range ops {
			values[j] = latency[backend][op]
		}
		bars, err := plotter.NewBarChart(values, w)
		if err != nil {
			return fmt.Errorf("ixbench: new bar chart for %s: %w", backend, err)
		}
		bars.Offset = vg.Length(i) * (w + vg.Points(2))
		bars.Color = plotutil.Color(i)
		p.Add(bars)
		p.Legend.Add(backend, bars)
	}

	p.NominalX(ops...)
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("ixbench: save chart: %w", err)
	}
	return nil
}
