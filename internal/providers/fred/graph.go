package fred

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/seenimoa/joltsplot/internal/frame"
	"github.com/seenimoa/joltsplot/internal/infra"
	"github.com/seenimoa/joltsplot/internal/provider"
	"github.com/seenimoa/joltsplot/pkg/logger"
)

// GraphSource reads series through the keyless fredgraph.csv download, one
// request per series, and joins them on the observation date.
type GraphSource struct {
	baseURL string
	client  *infra.Client
}

// NewGraphSource creates the "fred" source.
func NewGraphSource(opts ...Option) *GraphSource {
	o := buildOptions(defaultGraphURL, opts)
	return &GraphSource{baseURL: strings.TrimRight(o.baseURL, "/"), client: o.client}
}

// Info describes the source.
func (s *GraphSource) Info() provider.SourceInfo {
	return provider.SourceInfo{
		Name:        graphName,
		Description: "Federal Reserve Economic Data via the public CSV download (no key)",
		Website:     website,
	}
}

// Init accepts any credentials; none are needed.
func (s *GraphSource) Init(credentials map[string]string) error {
	return provider.CheckCredentials(s.Info(), credentials)
}

// Fetch downloads each series in order and outer-joins them on date.
func (s *GraphSource) Fetch(ctx context.Context, req provider.Request) (*frame.Table, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	var out *frame.Table
	for _, code := range req.Series {
		tbl, err := s.fetchSeries(ctx, code, req)
		if err != nil {
			return nil, fmt.Errorf("fred series %s: %w", code, err)
		}
		log.Debug("fetched series", "source", graphName, "series", code, "rows", tbl.Len())

		if out == nil {
			out = tbl
			continue
		}
		if out, err = out.Join(tbl); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *GraphSource) fetchSeries(ctx context.Context, code string, req provider.Request) (*frame.Table, error) {
	u := fmt.Sprintf("%s/graph/fredgraph.csv?id=%s", s.baseURL, url.QueryEscape(code))
	if !req.Start.IsZero() {
		u += "&cosd=" + formatDate(req.Start)
	}
	if !req.End.IsZero() {
		u += "&coed=" + formatDate(req.End)
	}

	body, _, err := s.client.DoGet(ctx, u, map[string]string{"Accept": "text/csv"})
	if err != nil {
		var httpErr *infra.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, &provider.ErrUnknownSeries{Source: graphName, Series: code}
		}
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	// A window with no observations comes back as the header line alone,
	// which gota refuses to load.
	if header, rest, _ := strings.Cut(strings.TrimSpace(string(data)), "\n"); strings.TrimSpace(rest) == "" {
		names := strings.Split(strings.TrimSpace(header), ",")
		if len(names) != 2 || !strings.EqualFold(strings.TrimSpace(names[1]), code) {
			return nil, &provider.ErrUnknownSeries{Source: graphName, Series: code}
		}
		return frame.FromColumns(nil, []string{code}, [][]float64{{}})
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{".", "", "NA", "NaN"}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse CSV: %w", df.Err)
	}
	names := df.Names()
	// The date header is DATE in older downloads and observation_date in
	// newer ones; the value column is named after the series.
	if len(names) != 2 || !strings.EqualFold(names[1], code) {
		return nil, &provider.ErrUnknownSeries{Source: graphName, Series: code}
	}
	if names[1] != code {
		df = df.Rename(code, names[1])
	}

	tbl, err := frame.FromDataFrame(df)
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	// cosd/coed are honored upstream; trim again in case they are not.
	return tbl.Between(req.Start, req.End), nil
}

// Describe reads each series title from its FRED web page.
func (s *GraphSource) Describe(ctx context.Context, codes []string) ([]provider.SeriesInfo, error) {
	infos := make([]provider.SeriesInfo, 0, len(codes))
	for _, code := range codes {
		info, err := s.describeSeries(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("fred describe %s: %w", code, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *GraphSource) describeSeries(ctx context.Context, code string) (provider.SeriesInfo, error) {
	u := fmt.Sprintf("%s/series/%s", s.baseURL, url.PathEscape(code))
	body, _, err := s.client.DoGet(ctx, u, map[string]string{"Accept": "text/html"})
	if err != nil {
		var httpErr *infra.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return provider.SeriesInfo{}, &provider.ErrUnknownSeries{Source: graphName, Series: code}
		}
		return provider.SeriesInfo{}, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return provider.SeriesInfo{}, fmt.Errorf("parse HTML: %w", err)
	}

	info := provider.SeriesInfo{
		ID:    code,
		Title: seriesTitle(doc.Find("title").First().Text(), code),
	}
	if units := strings.TrimSpace(doc.Find(".series-meta-value-units").First().Text()); units != "" {
		info.Units = units
	}
	if freq := strings.TrimSpace(doc.Find(".series-meta-value-frequency").First().Text()); freq != "" {
		info.Frequency = freq
	}
	return info, nil
}

// seriesTitle strips the site suffix and series code from a page title such
// as "Job Openings: Total Nonfarm (JTSJOL) | FRED | St. Louis Fed".
func seriesTitle(pageTitle, code string) string {
	title := strings.TrimSpace(pageTitle)
	if i := strings.Index(title, " | "); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSuffix(title, "("+code+")")
	return strings.TrimSpace(title)
}
