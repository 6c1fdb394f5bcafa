// Package frame holds the date-indexed table that flows through joltsplot:
// series fetched from a data source land here, get relabeled, and are handed
// to the chart renderer as column subsets.
//
// A Table wraps a gota DataFrame whose first column is the date index,
// stored as ISO dates so that lexical order is chronological order.
package frame

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	// IndexColumn is the reserved name of the date index column.
	IndexColumn = "date"
	// DateLayout is the layout used for index values.
	DateLayout = "2006-01-02"
)

var (
	// ErrColumnNotFound is returned when a named column is absent.
	ErrColumnNotFound = errors.New("column not found")
	// ErrDuplicateColumn is returned when an operation would produce two
	// columns with the same name.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrShape is returned when column lengths disagree with the index.
	ErrShape = errors.New("column length does not match index")
)

// Table is a date-indexed table of float64 columns. Missing observations
// are NaN. Tables are immutable: every transforming method returns a new one.
type Table struct {
	index []time.Time
	df    dataframe.DataFrame
}

// FromColumns builds a table from column-major values. values[i] holds the
// observations of names[i], one per index entry.
func FromColumns(index []time.Time, names []string, values [][]float64) (*Table, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("%w: %d names for %d columns", ErrShape, len(names), len(values))
	}
	if err := checkNames(names); err != nil {
		return nil, err
	}

	dates := make([]string, len(index))
	for i, ts := range index {
		dates[i] = ts.Format(DateLayout)
	}
	cols := []series.Series{series.New(dates, series.String, IndexColumn)}
	for i, name := range names {
		if len(values[i]) != len(index) {
			return nil, fmt.Errorf("%w: column %q has %d values, index has %d", ErrShape, name, len(values[i]), len(index))
		}
		cols = append(cols, series.New(values[i], series.Float, name))
	}
	return newTable(dataframe.New(cols...))
}

// FromDataFrame adopts a gota DataFrame whose first column holds dates.
// The first column is renamed to IndexColumn and every other column is
// converted to float64. Rows are sorted by date.
func FromDataFrame(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	names := df.Names()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: data frame has no date column", ErrColumnNotFound)
	}
	if err := checkNames(names[1:]); err != nil {
		return nil, err
	}

	cols := make([]series.Series, 0, len(names))
	cols = append(cols, series.New(df.Col(names[0]).Records(), series.String, IndexColumn))
	for _, name := range names[1:] {
		cols = append(cols, series.New(df.Col(name).Float(), series.Float, name))
	}
	return newTable(dataframe.New(cols...))
}

func newTable(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	if df.Nrow() > 1 {
		df = df.Arrange(dataframe.Sort(IndexColumn))
		if df.Err != nil {
			return nil, fmt.Errorf("sort by %s: %w", IndexColumn, df.Err)
		}
	}

	records := df.Col(IndexColumn).Records()
	index := make([]time.Time, len(records))
	for i, rec := range records {
		ts, err := ParseDate(rec)
		if err != nil {
			return nil, err
		}
		if i > 0 && !ts.After(index[i-1]) {
			return nil, fmt.Errorf("duplicate index entry %s", rec)
		}
		index[i] = ts
	}
	return &Table{index: index, df: df}, nil
}

// ParseDate parses an index value. FRED publishes plain dates; timestamps
// are accepted and truncated to the day.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, "2006-01-02T15:04:05", time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.index) }

// Index returns a copy of the date index.
func (t *Table) Index() []time.Time {
	out := make([]time.Time, len(t.index))
	copy(out, t.index)
	return out
}

// Columns returns the value column names in order.
func (t *Table) Columns() []string {
	return t.df.Names()[1:]
}

// Has reports whether the table has a value column with the given name.
func (t *Table) Has(name string) bool {
	for _, c := range t.Columns() {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]float64, error) {
	if !t.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return t.df.Col(name).Float(), nil
}

// Rows returns the values in row-major order, columns in Columns() order.
func (t *Table) Rows() [][]float64 {
	cols := t.Columns()
	data := make([][]float64, len(cols))
	for j, name := range cols {
		data[j] = t.df.Col(name).Float()
	}
	rows := make([][]float64, t.Len())
	for i := range rows {
		rows[i] = make([]float64, len(cols))
		for j := range cols {
			rows[i][j] = data[j][i]
		}
	}
	return rows
}

// DataFrame returns a copy of the underlying frame, date column first.
func (t *Table) DataFrame() dataframe.DataFrame {
	return t.df.Copy()
}

// Rename returns a table whose columns are relabeled through mapping.
// Columns without a mapping entry keep their name and mapping keys that
// match no column are ignored, so no column is ever added or dropped.
// Column order and values are unchanged.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	names := t.df.Names()
	renamed := make([]string, len(names)-1)
	for i, name := range names[1:] {
		if label, ok := mapping[name]; ok {
			name = label
		}
		renamed[i] = name
	}
	if err := checkNames(renamed); err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}

	cols := make([]series.Series, 0, len(names))
	cols = append(cols, t.df.Col(IndexColumn).Copy())
	for i, name := range names[1:] {
		s := t.df.Col(name).Copy()
		s.Name = renamed[i]
		cols = append(cols, s)
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, fmt.Errorf("rename: %w", df.Err)
	}
	return &Table{index: t.Index(), df: df}, nil
}

// Select returns a sub-table with the named columns in the given order and
// the same index.
func (t *Table) Select(names ...string) (*Table, error) {
	if err := checkNames(names); err != nil {
		return nil, err
	}
	for _, name := range names {
		if !t.Has(name) {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
	}
	df := t.df.Select(append([]string{IndexColumn}, names...))
	if df.Err != nil {
		return nil, df.Err
	}
	return &Table{index: t.Index(), df: df}, nil
}

// Between returns the rows whose date lies in [start, end]. A zero start or
// end leaves that side open.
func (t *Table) Between(start, end time.Time) *Table {
	keep := make([]int, 0, t.Len())
	for i, ts := range t.index {
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		keep = append(keep, i)
	}
	if len(keep) == t.Len() {
		return t
	}

	index := make([]time.Time, len(keep))
	for i, k := range keep {
		index[i] = t.index[k]
	}
	if len(keep) == 0 {
		// gota cannot subset to zero rows; rebuild empty columns instead.
		names := t.Columns()
		values := make([][]float64, len(names))
		for i := range values {
			values[i] = []float64{}
		}
		empty, _ := FromColumns(nil, names, values)
		return empty
	}
	return &Table{index: index, df: t.df.Subset(keep)}
}

// Join outer-joins two tables on the date index. Periods missing on one
// side are NaN in that side's columns.
func (t *Table) Join(other *Table) (*Table, error) {
	for _, name := range other.Columns() {
		if t.Has(name) {
			return nil, fmt.Errorf("join: %w: %q", ErrDuplicateColumn, name)
		}
	}
	if t.Len() == 0 || other.Len() == 0 {
		return t.joinEmpty(other)
	}
	return newTable(t.df.OuterJoin(other.df, IndexColumn))
}

// joinEmpty handles the case where one side has no rows, where gota's join
// would drop the empty side's columns.
func (t *Table) joinEmpty(other *Table) (*Table, error) {
	base, extra := t, other
	if t.Len() == 0 {
		base, extra = other, t
	}
	names := append(base.Columns(), extra.Columns()...)
	values := make([][]float64, 0, len(names))
	for _, name := range base.Columns() {
		v, _ := base.Column(name)
		values = append(values, v)
	}
	for range extra.Columns() {
		values = append(values, nanSlice(base.Len()))
	}
	if t.Len() == 0 {
		// Keep the receiver's columns first.
		n := len(extra.Columns())
		names = append(names[len(names)-n:], names[:len(names)-n]...)
		values = append(values[len(values)-n:], values[:len(values)-n]...)
	}
	return FromColumns(base.Index(), names, values)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func checkNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		switch {
		case name == "":
			return errors.New("empty column name")
		case name == IndexColumn:
			return fmt.Errorf("column name %q is reserved for the index", IndexColumn)
		case seen[name]:
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		seen[name] = true
	}
	return nil
}
