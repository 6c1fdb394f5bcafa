// Package report renders date-indexed tables: stacked-area and line charts
// drawn onto one shared set of axes (SVG or PNG), terminal tables, and
// CSV/XLSX exports.
package report

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/seenimoa/joltsplot/internal/frame"
)

// ════════════════════════════════════════════════════════════════════
// Axes: one drawing surface, several layers
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for charts.
type ChartConfig struct {
	Width        int    // image width in pixels (default: 800)
	Height       int    // image height in pixels (default: 400)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 60)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 70)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// withDefaults fills every unset field from DefaultChartConfig.
func (c ChartConfig) withDefaults() ChartConfig {
	d := DefaultChartConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.MarginTop == 0 && c.MarginRight == 0 && c.MarginBottom == 0 && c.MarginLeft == 0 {
		c.MarginTop, c.MarginRight, c.MarginBottom, c.MarginLeft = d.MarginTop, d.MarginRight, d.MarginBottom, d.MarginLeft
	}
	if c.BgColor == "" {
		c.BgColor = d.BgColor
	}
	if c.GridColor == "" {
		c.GridColor = d.GridColor
	}
	if c.TextColor == "" {
		c.TextColor = d.TextColor
	}
	if c.FontSize <= 0 {
		c.FontSize = d.FontSize
	}
	return c
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

var (
	// ErrIndexMismatch is returned when a layer's dates differ from the
	// dates already on the axes.
	ErrIndexMismatch = errors.New("table index does not match the axes")

	// ErrMixedSign is returned when a stacked column has both positive and
	// negative values.
	ErrMixedSign = errors.New("stacked column mixes positive and negative values")

	// ErrNoData is returned when rendering axes that hold no observations.
	ErrNoData = errors.New("no data to plot")
)

var defaultColors = []string{"#2196f3", "#ff9800", "#4caf50", "#e91e63", "#9c27b0", "#00bcd4"}

type layerKind int

const (
	areaLayer layerKind = iota
	lineLayer
)

// layer is one drawn series. For areas, lower and upper bound the filled
// band; for lines, upper holds the values and NaN marks a gap.
type layer struct {
	kind  layerKind
	name  string
	color string
	lower []float64
	upper []float64
}

// Axes is a drawing surface that successive Area and Line calls draw onto.
// Every layer shares the x axis (dates) and the y axis.
type Axes struct {
	cfg      ChartConfig
	index    []time.Time
	hasIndex bool
	layers   []layer
}

// NewAxes creates an empty surface. Unset config fields take defaults.
func NewAxes(cfg ChartConfig) *Axes {
	return &Axes{cfg: cfg.withDefaults()}
}

// Config returns the effective chart configuration.
func (a *Axes) Config() ChartConfig { return a.cfg }

// Labels returns the names of the drawn series in drawing order.
func (a *Axes) Labels() []string {
	out := make([]string, len(a.layers))
	for i, l := range a.layers {
		out[i] = l.name
	}
	return out
}

// Area draws every column of t as a stacked area, cumulative in column
// order. Missing values count as zero in the stack. Positive and negative
// columns stack separately; a column with both signs is rejected.
func (a *Axes) Area(t *frame.Table) error {
	if err := a.checkIndex(t); err != nil {
		return err
	}
	n := t.Len()
	pos := make([]float64, n)
	neg := make([]float64, n)

	added := make([]layer, 0, len(t.Columns()))
	for _, name := range t.Columns() {
		vals, err := t.Column(name)
		if err != nil {
			return err
		}
		prior := pos
		switch columnSign(vals) {
		case 0:
			return fmt.Errorf("%w: %q", ErrMixedSign, name)
		case -1:
			prior = neg
		}

		lower := make([]float64, n)
		upper := make([]float64, n)
		for i, v := range vals {
			if math.IsNaN(v) {
				v = 0
			}
			lower[i] = prior[i]
			prior[i] += v
			upper[i] = prior[i]
		}
		added = append(added, layer{
			kind:  areaLayer,
			name:  name,
			color: a.color(len(added)),
			lower: lower,
			upper: upper,
		})
	}

	a.adopt(t)
	a.layers = append(a.layers, added...)
	return nil
}

// Line draws every column of t as a line onto the surface. Missing values
// break the line.
func (a *Axes) Line(t *frame.Table) error {
	if err := a.checkIndex(t); err != nil {
		return err
	}
	added := make([]layer, 0, len(t.Columns()))
	for _, name := range t.Columns() {
		vals, err := t.Column(name)
		if err != nil {
			return err
		}
		added = append(added, layer{
			kind:  lineLayer,
			name:  name,
			color: a.color(len(added)),
			upper: vals,
		})
	}

	a.adopt(t)
	a.layers = append(a.layers, added...)
	return nil
}

// color picks the next color in the cycle; offset counts layers not yet
// appended.
func (a *Axes) color(offset int) string {
	return defaultColors[(len(a.layers)+offset)%len(defaultColors)]
}

func (a *Axes) checkIndex(t *frame.Table) error {
	if !a.hasIndex {
		return nil
	}
	idx := t.Index()
	if len(idx) != len(a.index) {
		return fmt.Errorf("%w: %d rows, axes have %d", ErrIndexMismatch, len(idx), len(a.index))
	}
	for i := range idx {
		if !idx[i].Equal(a.index[i]) {
			return fmt.Errorf("%w: row %d is %s, axes have %s", ErrIndexMismatch, i,
				idx[i].Format(frame.DateLayout), a.index[i].Format(frame.DateLayout))
		}
	}
	return nil
}

func (a *Axes) adopt(t *frame.Table) {
	if !a.hasIndex {
		a.index = t.Index()
		a.hasIndex = true
	}
}

// columnSign returns 1 if no value is negative, -1 if no value is
// positive (and some is negative), and 0 for a mix. NaN is ignored.
func columnSign(vals []float64) int {
	var hasPos, hasNeg bool
	for _, v := range vals {
		switch {
		case v > 0:
			hasPos = true
		case v < 0:
			hasNeg = true
		}
	}
	switch {
	case hasPos && hasNeg:
		return 0
	case hasNeg:
		return -1
	default:
		return 1
	}
}

// YRange returns the shared y-axis range: from min(0, data) to the highest
// stack top or line value, with 5% headroom.
func (a *Axes) YRange() (lo, hi float64) {
	for _, l := range a.layers {
		for _, vals := range [][]float64{l.lower, l.upper} {
			for _, v := range vals {
				if math.IsNaN(v) {
					continue
				}
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
	}
	if hi-lo < 1e-9 {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.05
	hi += pad
	if lo < 0 {
		lo -= pad
	}
	return lo, hi
}

func (a *Axes) empty() bool {
	return len(a.layers) == 0 || len(a.index) == 0
}

// xScale maps a date onto the horizontal pixel range [px, px+pw].
func (a *Axes) xScale(px, pw int) func(time.Time) float64 {
	first, last := a.index[0], a.index[len(a.index)-1]
	span := float64(last.Sub(first))
	return func(t time.Time) float64 {
		if span == 0 {
			return float64(px) + float64(pw)/2
		}
		return float64(px) + float64(t.Sub(first))/span*float64(pw)
	}
}

// ════════════════════════════════════════════════════════════════════
// SVG
// ════════════════════════════════════════════════════════════════════

// SVG renders the axes as a standalone SVG document.
func (a *Axes) SVG() string {
	cfg := a.cfg
	if a.empty() {
		return emptySVG(cfg, "No data")
	}

	px, py, pw, ph := cfg.plotArea()
	lo, hi := a.YRange()
	yOf := func(v float64) float64 {
		return float64(py+ph) - (v-lo)/(hi-lo)*float64(ph)
	}
	xOf := a.xScale(px, pw)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	if cfg.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
			cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))
	}

	// Y-axis grid
	for _, v := range valueTicks(lo, hi, 5) {
		y := yOf(v)
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, formatTick(v)))
	}

	// Areas first so lines stay visible on top.
	for _, l := range a.layers {
		if l.kind != areaLayer {
			continue
		}
		points := make([]string, 0, 2*len(a.index))
		for i, t := range a.index {
			points = append(points, fmt.Sprintf("%.1f,%.1f", xOf(t), yOf(l.upper[i])))
		}
		for i := len(a.index) - 1; i >= 0; i-- {
			points = append(points, fmt.Sprintf("%.1f,%.1f", xOf(a.index[i]), yOf(l.lower[i])))
		}
		sb.WriteString(fmt.Sprintf(`<polygon points="%s" fill="%s" fill-opacity="0.5" stroke="%s" stroke-width="1"/>`,
			strings.Join(points, " "), l.color, l.color))
	}

	for _, l := range a.layers {
		if l.kind != lineLayer {
			continue
		}
		var pathParts []string
		gap := true
		for i, v := range l.upper {
			if math.IsNaN(v) {
				gap = true
				continue
			}
			cmd := "L"
			if gap {
				cmd = "M"
				gap = false
			}
			pathParts = append(pathParts, fmt.Sprintf("%s%.1f,%.1f", cmd, xOf(a.index[i]), yOf(v)))
		}
		if len(pathParts) > 0 {
			sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
				strings.Join(pathParts, " "), l.color))
		}
	}

	// Axis lines
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`,
		px, py+ph, px+pw, py+ph, cfg.TextColor))
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`,
		px, py, px, py+ph, cfg.TextColor))

	// X-axis labels
	for _, tk := range dateTicks(a.index, 6) {
		x := xOf(tk.at)
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			x, py+ph+18, cfg.FontSize-1, cfg.TextColor, tk.label))
	}

	// Legend
	for i, l := range a.layers {
		ly := py + 10 + i*16
		if l.kind == areaLayer {
			sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="20" height="10" fill="%s" fill-opacity="0.5" stroke="%s"/>`,
				px+10, ly-5, l.color, l.color))
		} else {
			sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
				px+10, ly, px+30, ly, l.color))
		}
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			px+35, ly+4, cfg.TextColor, escapeXML(l.name)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Ticks
// ════════════════════════════════════════════════════════════════════

// valueTicks returns round values inside [lo, hi], about n of them.
func valueTicks(lo, hi float64, n int) []float64 {
	if n < 1 || hi <= lo {
		return []float64{lo}
	}
	raw := (hi - lo) / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		if c*mag >= raw {
			step = c * mag
			break
		}
	}
	var ticks []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		if math.Abs(v) < step*1e-9 {
			v = 0
		}
		ticks = append(ticks, v)
	}
	return ticks
}

type dateTick struct {
	at    time.Time
	label string
}

// dateTicks picks about n x-axis labels: January of every k-th year for
// multi-year spans, otherwise the first of every k-th month.
func dateTicks(index []time.Time, n int) []dateTick {
	if len(index) == 0 {
		return nil
	}
	first, last := index[0], index[len(index)-1]
	if len(index) == 1 || !last.After(first) {
		return []dateTick{{at: first, label: first.Format("Jan 2006")}}
	}

	var ticks []dateTick
	if years := last.Year() - first.Year(); years >= 2 {
		step := int(math.Ceil(float64(years) / float64(n)))
		y := first.Year()
		if time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC).Before(first) {
			y++
		}
		for ; y <= last.Year(); y += step {
			t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
			ticks = append(ticks, dateTick{at: t, label: t.Format("2006")})
		}
		if len(ticks) > 0 {
			return ticks
		}
	}

	months := (last.Year()-first.Year())*12 + int(last.Month()-first.Month())
	step := int(math.Ceil(float64(months) / float64(n)))
	if step < 1 {
		step = 1
	}
	start := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	if start.Before(first) {
		start = start.AddDate(0, 1, 0)
	}
	for t := start; !t.After(last); t = t.AddDate(0, step, 0) {
		ticks = append(ticks, dateTick{at: t, label: t.Format("Jan 2006")})
	}
	return ticks
}

func formatTick(v float64) string {
	av := math.Abs(v)
	switch {
	case v == 0:
		return "0"
	case av >= 100:
		return fmt.Sprintf("%.0f", v)
	case av >= 1:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
