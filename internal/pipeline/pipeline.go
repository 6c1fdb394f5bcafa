// Package pipeline runs the fetch, relabel and plot steps end to end.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/seenimoa/joltsplot/internal/config"
	"github.com/seenimoa/joltsplot/internal/frame"
	"github.com/seenimoa/joltsplot/internal/provider"
	"github.com/seenimoa/joltsplot/internal/report"
	"github.com/seenimoa/joltsplot/pkg/logger"
)

// Options describes one run.
type Options struct {
	Registry    *provider.Registry
	Source      string
	Credentials map[string]string

	Labels frame.Labels
	Start  time.Time
	End    time.Time // zero means latest available

	Area  []string // display names drawn as stacked area
	Line  []string // display names drawn as lines
	Chart report.ChartConfig

	Format report.Format
	Output io.Writer // nil skips rendering
}

// Result is what a run produced.
type Result struct {
	Table *frame.Table // relabeled table
	Axes  *report.Axes // nil for Load
}

// FromConfig builds Options from a validated configuration. Format is taken
// from chart.format, or from the extension of chart.output when unset.
func FromConfig(cfg *config.Config, reg *provider.Registry) (Options, error) {
	labels, err := cfg.Labels()
	if err != nil {
		return Options{}, err
	}
	start, err := cfg.StartDate()
	if err != nil {
		return Options{}, err
	}
	end, err := cfg.EndDate()
	if err != nil {
		return Options{}, err
	}

	var format report.Format
	if cfg.Chart.Format != "" {
		format, err = report.ParseFormat(cfg.Chart.Format)
	} else {
		format, err = report.FormatFromPath(cfg.Chart.Output)
	}
	if err != nil {
		return Options{}, fmt.Errorf("chart format: %w", err)
	}

	return Options{
		Registry:    reg,
		Source:      cfg.Fetch.Source,
		Credentials: cfg.Credentials(),
		Labels:      labels,
		Start:       start,
		End:         end,
		Area:        cfg.Chart.Area,
		Line:        cfg.Chart.Line,
		Chart: report.ChartConfig{
			Title:  cfg.Chart.Title,
			Width:  cfg.Chart.Width,
			Height: cfg.Chart.Height,
		},
		Format: format,
	}, nil
}

// Run fetches the series, relabels them, draws the area and line layers on
// one set of axes and renders the axes to opts.Output.
func Run(ctx context.Context, opts Options) (*Result, error) {
	res, err := Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	ax := report.NewAxes(opts.Chart)
	if len(opts.Area) > 0 {
		sub, err := res.Table.Select(opts.Area...)
		if err != nil {
			return nil, fmt.Errorf("area chart: %w", err)
		}
		if err := ax.Area(sub); err != nil {
			return nil, fmt.Errorf("area chart: %w", err)
		}
	}
	if len(opts.Line) > 0 {
		sub, err := res.Table.Select(opts.Line...)
		if err != nil {
			return nil, fmt.Errorf("line chart: %w", err)
		}
		if err := ax.Line(sub); err != nil {
			return nil, fmt.Errorf("line chart: %w", err)
		}
	}
	res.Axes = ax
	log.Info("plotted", "area", opts.Area, "line", opts.Line)

	if opts.Output != nil {
		if err := ax.Render(opts.Output, opts.Format); err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		log.Info("rendered", "format", opts.Format)
	}
	return res, nil
}

// Load fetches the series and relabels them without plotting.
func Load(ctx context.Context, opts Options) (*Result, error) {
	log := logger.FromContext(ctx)

	src, err := initSource(opts)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	req := provider.Request{Series: opts.Labels.Codes(), Start: opts.Start, End: opts.End}
	log.Info("fetching", "source", src.Info().Name, "series", req.Series, "start", opts.Start.Format(frame.DateLayout))
	raw, err := opts.Registry.Fetch(ctx, opts.Source, req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	log.Info("fetched", "rows", raw.Len(), "columns", raw.Columns())

	tbl, err := raw.Rename(opts.Labels.Map())
	if err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	return &Result{Table: tbl}, nil
}

// Describe returns metadata for the configured series.
func Describe(ctx context.Context, opts Options) ([]provider.SeriesInfo, error) {
	src, err := initSource(opts)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	infos, err := src.Describe(ctx, opts.Labels.Codes())
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	return infos, nil
}

func initSource(opts Options) (provider.Source, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("no source registry")
	}
	src, err := opts.Registry.Get(opts.Source)
	if err != nil {
		return nil, err
	}
	if err := src.Init(opts.Credentials); err != nil {
		return nil, err
	}
	return src, nil
}
