// Package report renders summaries of headless runs.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nvandessel/mycelium/internal/simulation"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrTooFewTicks is returned when a run has fewer than two ticks to plot.
var ErrTooFewTicks = errors.New("at least two ticks are needed to plot a run")

// Chart dimensions.
const (
	ChartWidth  = 960
	ChartHeight = 360
)

var finishedColour = drawing.Color{R: 255, G: 165, B: 0, A: 255}

// Series extracts the plotted series from per-tick statistics: the tick
// index, retirements per tick and the fraction of finished filaments.
func Series(ticks []simulation.TickStats) (x, retired, finished []float64) {
	x = make([]float64, len(ticks))
	retired = make([]float64, len(ticks))
	finished = make([]float64, len(ticks))
	for i, ts := range ticks {
		x[i] = float64(ts.Tick)
		retired[i] = float64(ts.Retired)
		finished[i] = ts.FinishedFraction()
	}
	return x, retired, finished
}

// WriteChart renders a PNG line chart of result to w. Retirements per tick
// use the left axis, the finished filament fraction the right one.
func WriteChart(w io.Writer, result simulation.Result) error {
	if len(result.PerTick) < 2 {
		return ErrTooFewTicks
	}
	x, retired, finished := Series(result.PerTick)

	maxRetired := 1.0
	for _, v := range retired {
		maxRetired = max(maxRetired, v)
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("seed %d, %d agents, %s", result.Seed, result.Agents, result.Policy),
		Width:  ChartWidth,
		Height: ChartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "tick",
			Style: chart.Style{FontSize: 10.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "retired",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: maxRetired},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
		},
		YAxisSecondary: chart.YAxis{
			Name:  "finished",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f%%", v.(float64)*100)
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "retired per tick",
				XValues: x,
				YValues: retired,
				Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 2.0},
			},
			chart.ContinuousSeries{
				Name:    "finished filaments",
				YAxis:   chart.YAxisSecondary,
				XValues: x,
				YValues: finished,
				Style:   chart.Style{StrokeColor: finishedColour, StrokeWidth: 2.0},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

// SaveChart renders result to a PNG file at path.
func SaveChart(path string, result simulation.Result) error {
	var buf bytes.Buffer
	if err := WriteChart(&buf, result); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing chart: %w", err)
	}
	return nil
}
