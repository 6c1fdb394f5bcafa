package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// PNG renders the axes as a PNG image through go-chart.
//
// go-chart fills an area down to the bottom of the plot, so stacked bands
// are painted tallest first and each later band covers the part below it.
// Bands of a negative stack are therefore approximate; SVG draws them
// exactly.
func (a *Axes) PNG(w io.Writer) error {
	if a.empty() {
		return ErrNoData
	}
	lo, hi := a.YRange()

	ch := chart.Chart{
		Title:  a.cfg.Title,
		Width:  a.cfg.Width,
		Height: a.cfg.Height,
		Background: chart.Style{
			FillColor: hexColor(a.cfg.BgColor),
			Padding:   chart.Box{Top: a.cfg.MarginTop, Left: 16, Right: 12, Bottom: 16},
		},
		XAxis: a.timeAxis(),
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			Ticks: pngValueTicks(lo, hi),
		},
	}

	// Legend entries follow drawing order, one per layer.
	legend := chart.Chart{}

	var areas []layer
	for _, l := range a.layers {
		if l.kind == areaLayer {
			areas = append(areas, l)
		}
	}
	sort.SliceStable(areas, func(i, j int) bool {
		return sum(areas[i].upper) > sum(areas[j].upper)
	})
	for _, l := range areas {
		c := hexColor(l.color)
		xs, ys := widen(a.index, l.upper)
		ch.Series = append(ch.Series, chart.TimeSeries{
			Name:    l.name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: c,
				StrokeWidth: 1,
				FillColor:   lighten(c),
			},
		})
	}

	for _, l := range a.layers {
		style := chart.Style{StrokeColor: hexColor(l.color), StrokeWidth: 2}
		if l.kind == areaLayer {
			style.FillColor = lighten(style.StrokeColor)
			legend.Series = append(legend.Series, chart.TimeSeries{Name: l.name, Style: style})
			continue
		}
		legend.Series = append(legend.Series, chart.TimeSeries{Name: l.name, Style: style})
		for _, seg := range segments(a.index, l.upper) {
			xs, ys := widen(seg.x, seg.y)
			ch.Series = append(ch.Series, chart.TimeSeries{
				Name:    l.name,
				XValues: xs,
				YValues: ys,
				Style:   style,
			})
		}
	}

	if len(ch.Series) == 0 {
		// Only lines with no observations; go-chart refuses an empty chart.
		return ErrNoData
	}
	ch.Elements = []chart.Renderable{chart.Legend(&legend)}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}

// timeAxis labels the x axis with the same date ticks as the SVG output.
func (a *Axes) timeAxis() chart.XAxis {
	first, last := a.index[0], a.index[len(a.index)-1]
	if !last.After(first) {
		first = first.AddDate(0, 0, -15)
		last = last.AddDate(0, 0, 15)
	}
	var ticks []chart.Tick
	for _, tk := range dateTicks(a.index, 6) {
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(tk.at), Label: tk.label})
	}
	return chart.XAxis{
		Range: &chart.ContinuousRange{Min: chart.TimeToFloat64(first), Max: chart.TimeToFloat64(last)},
		Ticks: ticks,
	}
}

func pngValueTicks(lo, hi float64) []chart.Tick {
	var ticks []chart.Tick
	for _, v := range valueTicks(lo, hi, 5) {
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
	}
	return ticks
}

type segment struct {
	x []time.Time
	y []float64
}

// segments splits a line at missing values. go-chart has no notion of a
// gap, so each unbroken run becomes its own series.
func segments(index []time.Time, vals []float64) []segment {
	var out []segment
	var cur segment
	for i, v := range vals {
		if math.IsNaN(v) {
			if len(cur.y) > 0 {
				out = append(out, cur)
				cur = segment{}
			}
			continue
		}
		cur.x = append(cur.x, index[i])
		cur.y = append(cur.y, v)
	}
	if len(cur.y) > 0 {
		out = append(out, cur)
	}
	return out
}

// widen stretches a single observation over a month so go-chart has a
// non-empty x range to draw it on.
func widen(xs []time.Time, ys []float64) ([]time.Time, []float64) {
	if len(xs) != 1 {
		return xs, ys
	}
	return []time.Time{xs[0].AddDate(0, 0, -15), xs[0].AddDate(0, 0, 15)}, []float64{ys[0], ys[0]}
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}

// lighten mixes c halfway with white, the opaque equivalent of the 0.5
// fill opacity the SVG output uses.
func lighten(c drawing.Color) drawing.Color {
	return drawing.Color{
		R: uint8((int(c.R) + 255) / 2),
		G: uint8((int(c.G) + 255) / 2),
		B: uint8((int(c.B) + 255) / 2),
		A: 255,
	}
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}
