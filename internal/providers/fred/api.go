package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/joltsplot/internal/frame"
	"github.com/seenimoa/joltsplot/internal/infra"
	"github.com/seenimoa/joltsplot/internal/provider"
	"github.com/seenimoa/joltsplot/pkg/logger"
)

// APISource reads series through the FRED JSON API.
type APISource struct {
	baseURL string
	client  *infra.Client
	apiKey  string
}

// NewAPISource creates the "fred-api" source. Init must supply api_key.
func NewAPISource(opts ...Option) *APISource {
	o := buildOptions(defaultAPIURL, opts)
	return &APISource{baseURL: strings.TrimRight(o.baseURL, "/"), client: o.client}
}

// Info describes the source and its credential.
func (s *APISource) Info() provider.SourceInfo {
	return provider.SourceInfo{
		Name:        apiName,
		Description: "Federal Reserve Economic Data via the JSON API",
		Website:     website,
		Credentials: []provider.Credential{
			{
				Name:        credAPIKey,
				Description: "FRED API key from fred.stlouisfed.org",
				Required:    true,
				EnvVar:      "FRED_API_KEY",
			},
		},
	}
}

// Init stores the API key.
func (s *APISource) Init(credentials map[string]string) error {
	if err := provider.CheckCredentials(s.Info(), credentials); err != nil {
		return err
	}
	s.apiKey = credentials[credAPIKey]
	return nil
}

// APIKey returns the stored API key.
func (s *APISource) APIKey() string {
	return s.apiKey
}

// Fetch requests observations for each series in order and joins them.
func (s *APISource) Fetch(ctx context.Context, req provider.Request) (*frame.Table, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.apiKey == "" {
		return nil, &provider.ErrInvalidCredentials{Source: apiName, Detail: "source not initialized with " + credAPIKey}
	}
	log := logger.FromContext(ctx)

	var out *frame.Table
	for _, code := range req.Series {
		obs, err := s.fetchObservations(ctx, code, req.Start, req.End)
		if err != nil {
			return nil, fmt.Errorf("fred series %s: %w", code, err)
		}
		tbl, err := observationsTable(code, obs)
		if err != nil {
			return nil, fmt.Errorf("fred series %s: %w", code, err)
		}
		log.Debug("fetched series", "source", apiName, "series", code, "rows", tbl.Len())

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

func (s *APISource) fetchObservations(ctx context.Context, code string, start, end time.Time) ([]fredObservation, error) {
	endpoint := "series/observations?series_id=" + url.QueryEscape(code)
	if !start.IsZero() {
		endpoint += "&observation_start=" + formatDate(start)
	}
	if !end.IsZero() {
		endpoint += "&observation_end=" + formatDate(end)
	}

	var resp fredObservationsResponse
	if err := s.fetchJSON(ctx, endpoint, code, &resp); err != nil {
		return nil, err
	}
	return resp.Observations, nil
}

// observationsTable turns one series' observations into a single-column
// table. "." values become NaN.
func observationsTable(code string, obs []fredObservation) (*frame.Table, error) {
	index := make([]time.Time, 0, len(obs))
	values := make([]float64, 0, len(obs))
	for _, o := range obs {
		d, err := frame.ParseDate(o.Date)
		if err != nil {
			return nil, err
		}
		index = append(index, d)
		values = append(values, parseValue(o.Value))
	}
	return frame.FromColumns(index, []string{code}, [][]float64{values})
}

// Describe fetches series metadata from the series endpoint.
func (s *APISource) Describe(ctx context.Context, codes []string) ([]provider.SeriesInfo, error) {
	if s.apiKey == "" {
		return nil, &provider.ErrInvalidCredentials{Source: apiName, Detail: "source not initialized with " + credAPIKey}
	}
	infos := make([]provider.SeriesInfo, 0, len(codes))
	for _, code := range codes {
		var resp fredSeriesResponse
		if err := s.fetchJSON(ctx, "series?series_id="+url.QueryEscape(code), code, &resp); err != nil {
			return nil, fmt.Errorf("fred describe %s: %w", code, err)
		}
		if len(resp.Seriess) == 0 {
			return nil, &provider.ErrUnknownSeries{Source: apiName, Series: code}
		}
		m := resp.Seriess[0]
		infos = append(infos, provider.SeriesInfo{
			ID:          m.ID,
			Title:       m.Title,
			Units:       m.Units,
			Frequency:   m.Frequency,
			LastUpdated: m.LastUpdated,
		})
	}
	return infos, nil
}

// fredURL builds a full FRED API URL with api_key and file_type=json appended.
func (s *APISource) fredURL(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return s.baseURL + "/" + endpoint + sep + "api_key=" + url.QueryEscape(s.apiKey) + "&file_type=json"
}

// fetchJSON performs a GET request to the FRED API and decodes JSON. FRED
// answers requests for unknown series with 400 and an error_message.
func (s *APISource) fetchJSON(ctx context.Context, endpoint, code string, dest any) error {
	body, _, err := s.client.DoGet(ctx, s.fredURL(endpoint), map[string]string{"Accept": "application/json"})
	if err != nil {
		var httpErr *infra.HTTPError
		if errors.As(err, &httpErr) && isUnknownSeries(httpErr) {
			return &provider.ErrUnknownSeries{Source: apiName, Series: code}
		}
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read FRED response: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse FRED JSON: %w", err)
	}
	return nil
}

func isUnknownSeries(httpErr *infra.HTTPError) bool {
	var fe fredError
	if err := json.Unmarshal([]byte(httpErr.Body), &fe); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(fe.ErrorMessage), "does not exist")
}
