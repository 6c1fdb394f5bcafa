package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/seenimoa/joltsplot/internal/infra"
	"github.com/seenimoa/joltsplot/internal/provider"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testClient() *infra.Client {
	return infra.NewClient(5*time.Second, nil)
}

// graphCSV is what fredgraph.csv returns for the JOLTS series.
var graphCSV = map[string]string{
	"JTSJOL": "observation_date,JTSJOL\n2020-01-01,100\n2020-02-01,110\n",
	"JTSQUL": "DATE,JTSQUL\n2020-01-01,200\n2020-02-01,190\n",
	"JTSHIL": "observation_date,JTSHIL\n2020-01-01,300\n2020-02-01,310\n",
	"JTSLDL": "observation_date,JTSLDL\n2020-01-01,400\n2020-02-01,.\n",
}

func newGraphServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/graph/fredgraph.csv":
			id := r.URL.Query().Get("id")
			if r.URL.Query().Get("cosd") != "2000-01-01" {
				t.Errorf("cosd: got %q", r.URL.Query().Get("cosd"))
			}
			body, ok := graphCSV[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/csv")
			fmt.Fprint(w, body)
		case "/series/JTSJOL":
			fmt.Fprint(w, `<html><head><title>Job Openings: Total Nonfarm (JTSJOL) | FRED | St. Louis Fed</title></head>
<body><span class="series-meta-value-units">Level in Thousands</span>
<span class="series-meta-value-frequency">Monthly</span></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ── fred (graph CSV) ──

func TestGraphSourceInfo(t *testing.T) {
	s := NewGraphSource()
	info := s.Info()
	if info.Name != "fred" {
		t.Errorf("expected name fred, got %s", info.Name)
	}
	if len(info.Credentials) != 0 {
		t.Errorf("graph source needs no credentials, got %d", len(info.Credentials))
	}
	if err := s.Init(nil); err != nil {
		t.Errorf("Init: %v", err)
	}
}

func TestGraphSourceFetch(t *testing.T) {
	srv := newGraphServer(t)
	s := NewGraphSource(WithBaseURL(srv.URL), WithClient(testClient()))

	tbl, err := s.Fetch(context.Background(), provider.Request{
		Series: []string{"JTSJOL", "JTSQUL", "JTSHIL", "JTSLDL"},
		Start:  day(2000, 1, 1),
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"JTSJOL", "JTSQUL", "JTSHIL", "JTSLDL"}) {
		t.Errorf("columns: got %v", got)
	}
	if got := tbl.Index(); !reflect.DeepEqual(got, []time.Time{day(2020, 1, 1), day(2020, 2, 1)}) {
		t.Errorf("index: got %v", got)
	}
	rows := tbl.Rows()
	if !reflect.DeepEqual(rows[0], []float64{100, 200, 300, 400}) {
		t.Errorf("row 0: got %v", rows[0])
	}
	if rows[1][0] != 110 || rows[1][1] != 190 || rows[1][2] != 310 {
		t.Errorf("row 1: got %v", rows[1])
	}
	if !math.IsNaN(rows[1][3]) {
		t.Errorf("missing observation should be NaN, got %v", rows[1][3])
	}
}

func TestGraphSourceTrimsToRange(t *testing.T) {
	srv := newGraphServer(t)
	s := NewGraphSource(WithBaseURL(srv.URL), WithClient(testClient()))

	tbl, err := s.Fetch(context.Background(), provider.Request{
		Series: []string{"JTSJOL"},
		Start:  day(2000, 1, 1),
		End:    day(2020, 1, 15),
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("expected 1 row up to end date, got %d", tbl.Len())
	}
}

func TestGraphSourceUnknownSeries(t *testing.T) {
	srv := newGraphServer(t)
	s := NewGraphSource(WithBaseURL(srv.URL), WithClient(testClient()))

	_, err := s.Fetch(context.Background(), provider.Request{
		Series: []string{"JTSJOL", "NOSUCH"},
		Start:  day(2000, 1, 1),
	})
	var unknown *provider.ErrUnknownSeries
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownSeries, got %v", err)
	}
	if unknown.Series != "NOSUCH" {
		t.Errorf("Series: got %q", unknown.Series)
	}
}

func TestGraphSourceEmptyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "JTSJOL":
			fmt.Fprint(w, "observation_date,JTSJOL\n2020-01-01,100\n2020-02-01,110\n")
		case "JTSQUL":
			fmt.Fprint(w, "observation_date,JTSQUL\n")
		default:
			fmt.Fprint(w, "DATE,OTHER\n")
		}
	}))
	defer srv.Close()
	s := NewGraphSource(WithBaseURL(srv.URL), WithClient(testClient()))

	tests := []struct {
		name   string
		series []string
		rows   int
	}{
		{"empty last", []string{"JTSJOL", "JTSQUL"}, 2},
		{"empty first", []string{"JTSQUL", "JTSJOL"}, 2},
		{"empty only", []string{"JTSQUL"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := s.Fetch(context.Background(), provider.Request{Series: tt.series})
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if got := tbl.Columns(); !reflect.DeepEqual(got, tt.series) {
				t.Errorf("columns: got %v, want %v", got, tt.series)
			}
			if tbl.Len() != tt.rows {
				t.Fatalf("rows: got %d, want %d", tbl.Len(), tt.rows)
			}
			quits, err := tbl.Column("JTSQUL")
			if err != nil {
				t.Fatalf("Column: %v", err)
			}
			for i, v := range quits {
				if !math.IsNaN(v) {
					t.Errorf("JTSQUL[%d]: got %v, want NaN", i, v)
				}
			}
		})
	}

	_, err := s.Fetch(context.Background(), provider.Request{Series: []string{"JTSHIL"}})
	var unknown *provider.ErrUnknownSeries
	if !errors.As(err, &unknown) {
		t.Fatalf("header-only body with the wrong column: expected ErrUnknownSeries, got %v", err)
	}
}

func TestGraphSourceWrongColumn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "DATE,OTHER\n2020-01-01,1\n")
	}))
	defer srv.Close()

	s := NewGraphSource(WithBaseURL(srv.URL), WithClient(testClient()))
	_, err := s.Fetch(context.Background(), provider.Request{Series: []string{"JTSJOL"}})
	var unknown *provider.ErrUnknownSeries
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownSeries, got %v", err)
	}
}

func TestGraphSourceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewGraphSource(WithBaseURL(srv.URL), WithClient(testClient()))
	_, err := s.Fetch(context.Background(), provider.Request{Series: []string{"JTSJOL"}})
	var httpErr *infra.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode: got %d", httpErr.StatusCode)
	}
}

func TestGraphSourceDescribe(t *testing.T) {
	srv := newGraphServer(t)
	s := NewGraphSource(WithBaseURL(srv.URL), WithClient(testClient()))

	infos, err := s.Describe(context.Background(), []string{"JTSJOL"})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	want := provider.SeriesInfo{
		ID:        "JTSJOL",
		Title:     "Job Openings: Total Nonfarm",
		Units:     "Level in Thousands",
		Frequency: "Monthly",
	}
	if len(infos) != 1 || infos[0] != want {
		t.Errorf("Describe: got %+v, want %+v", infos, want)
	}

	_, err = s.Describe(context.Background(), []string{"NOSUCH"})
	var unknown *provider.ErrUnknownSeries
	if !errors.As(err, &unknown) {
		t.Errorf("expected ErrUnknownSeries, got %v", err)
	}
}

func TestSeriesTitle(t *testing.T) {
	tests := []struct {
		page, code, want string
	}{
		{"Job Openings: Total Nonfarm (JTSJOL) | FRED | St. Louis Fed", "JTSJOL", "Job Openings: Total Nonfarm"},
		{"  Quits: Total Nonfarm (JTSQUL)  ", "JTSQUL", "Quits: Total Nonfarm"},
		{"Layoffs and Discharges", "JTSLDL", "Layoffs and Discharges"},
	}
	for _, tt := range tests {
		if got := seriesTitle(tt.page, tt.code); got != tt.want {
			t.Errorf("seriesTitle(%q) = %q, want %q", tt.page, got, tt.want)
		}
	}
}

// ── fred-api (JSON) ──

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		if q.Get("api_key") != "my_fred_key" || q.Get("file_type") != "json" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(fredError{ErrorCode: 400, ErrorMessage: "Bad Request. Variable api_key is not set."})
			return
		}
		id := q.Get("series_id")
		if id != "JTSJOL" && id != "JTSQUL" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(fredError{ErrorCode: 400, ErrorMessage: "Bad Request.  The series does not exist."})
			return
		}

		switch r.URL.Path {
		case "/fred/series/observations":
			if q.Get("observation_start") != "2020-01-01" {
				t.Errorf("observation_start: got %q", q.Get("observation_start"))
			}
			obs := []map[string]string{
				{"date": "2020-01-01", "value": "100"},
				{"date": "2020-02-01", "value": "."},
			}
			if id == "JTSQUL" {
				obs = []map[string]string{
					{"date": "2020-02-01", "value": "190"},
					{"date": "2020-03-01", "value": "180"},
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"observations": obs})
		case "/fred/series":
			json.NewEncoder(w).Encode(map[string]any{
				"seriess": []map[string]any{{
					"id":           id,
					"title":        "Job Openings: Total Nonfarm",
					"units":        "Level in Thousands",
					"frequency":    "Monthly",
					"last_updated": "2024-06-04 09:01:02-05",
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAPISourceInfo(t *testing.T) {
	s := NewAPISource()
	info := s.Info()
	if info.Name != "fred-api" {
		t.Errorf("expected name fred-api, got %s", info.Name)
	}
	if len(info.Credentials) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(info.Credentials))
	}
	if info.Credentials[0].Name != "api_key" || !info.Credentials[0].Required {
		t.Errorf("api_key should be required: %+v", info.Credentials[0])
	}
}

func TestAPISourceInit(t *testing.T) {
	s := NewAPISource()
	if err := s.Init(map[string]string{"api_key": "test_key_123"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.APIKey() != "test_key_123" {
		t.Errorf("expected api key test_key_123, got %s", s.APIKey())
	}

	err := NewAPISource().Init(map[string]string{})
	var invalid *provider.ErrInvalidCredentials
	if !errors.As(err, &invalid) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAPISourceFetch(t *testing.T) {
	srv := newAPIServer(t)
	s := NewAPISource(WithBaseURL(srv.URL+"/fred"), WithClient(testClient()))
	if err := s.Init(map[string]string{"api_key": "my_fred_key"}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tbl, err := s.Fetch(context.Background(), provider.Request{
		Series: []string{"JTSJOL", "JTSQUL"},
		Start:  day(2020, 1, 1),
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"JTSJOL", "JTSQUL"}) {
		t.Errorf("columns: got %v", got)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows after outer join, got %d", tbl.Len())
	}
	openings, _ := tbl.Column("JTSJOL")
	quits, _ := tbl.Column("JTSQUL")
	if openings[0] != 100 || !math.IsNaN(openings[1]) || !math.IsNaN(openings[2]) {
		t.Errorf("JTSJOL: got %v", openings)
	}
	if !math.IsNaN(quits[0]) || quits[1] != 190 || quits[2] != 180 {
		t.Errorf("JTSQUL: got %v", quits)
	}
}

func TestAPISourceUnknownSeries(t *testing.T) {
	srv := newAPIServer(t)
	s := NewAPISource(WithBaseURL(srv.URL+"/fred"), WithClient(testClient()))
	_ = s.Init(map[string]string{"api_key": "my_fred_key"})

	_, err := s.Fetch(context.Background(), provider.Request{Series: []string{"NOSUCH"}, Start: day(2020, 1, 1)})
	var unknown *provider.ErrUnknownSeries
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownSeries, got %v", err)
	}
	if unknown.Source != "fred-api" {
		t.Errorf("Source: got %q", unknown.Source)
	}
}

func TestAPISourceBadKeyIsHTTPError(t *testing.T) {
	srv := newAPIServer(t)
	s := NewAPISource(WithBaseURL(srv.URL+"/fred"), WithClient(testClient()))
	_ = s.Init(map[string]string{"api_key": "wrong"})

	_, err := s.Fetch(context.Background(), provider.Request{Series: []string{"JTSJOL"}, Start: day(2020, 1, 1)})
	var httpErr *infra.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	var unknown *provider.ErrUnknownSeries
	if errors.As(err, &unknown) {
		t.Error("a bad key must not be reported as an unknown series")
	}
}

func TestAPISourceRequiresInit(t *testing.T) {
	_, err := NewAPISource().Fetch(context.Background(), provider.Request{Series: []string{"JTSJOL"}})
	var invalid *provider.ErrInvalidCredentials
	if !errors.As(err, &invalid) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAPISourceDescribe(t *testing.T) {
	srv := newAPIServer(t)
	s := NewAPISource(WithBaseURL(srv.URL+"/fred"), WithClient(testClient()))
	_ = s.Init(map[string]string{"api_key": "my_fred_key"})

	infos, err := s.Describe(context.Background(), []string{"JTSJOL"})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if infos[0].Title != "Job Openings: Total Nonfarm" || infos[0].Frequency != "Monthly" {
		t.Errorf("Describe: got %+v", infos[0])
	}
}

func TestFredURL(t *testing.T) {
	s := &APISource{baseURL: "https://api.stlouisfed.org/fred", apiKey: "k"}
	tests := []struct{ endpoint, want string }{
		{"series?series_id=JTSJOL", "https://api.stlouisfed.org/fred/series?series_id=JTSJOL&api_key=k&file_type=json"},
		{"releases", "https://api.stlouisfed.org/fred/releases?api_key=k&file_type=json"},
	}
	for _, tt := range tests {
		if got := s.fredURL(tt.endpoint); got != tt.want {
			t.Errorf("fredURL(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"3.14", 3.14},
		{"100", 100},
		{"-1.5", -1.5},
	}
	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.want {
			t.Errorf("parseValue(%q) = %f, want %f", tt.input, got, tt.want)
		}
	}
	for _, missing := range []string{".", ""} {
		if !math.IsNaN(parseValue(missing)) {
			t.Errorf("parseValue(%q) should be NaN", missing)
		}
	}
}
