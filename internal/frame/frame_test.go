package frame

import (
	"math"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	joltsCodes = []string{"JTSJOL", "JTSQUL", "JTSHIL", "JTSLDL"}
	joltsNames = []string{"openings", "quits", "hires", "layoffs"}
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// sampleTable is two months of JOLTS data keyed by source codes.
func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := FromColumns(
		[]time.Time{month(2020, time.January), month(2020, time.February)},
		joltsCodes,
		[][]float64{
			{100, 110},
			{200, 190},
			{300, 310},
			{400, 390},
		},
	)
	require.NoError(t, err)
	return tbl
}

func TestRenameAllColumns(t *testing.T) {
	tbl := sampleTable(t)
	labels, err := NewLabels(joltsCodes, joltsNames)
	require.NoError(t, err)

	renamed, err := tbl.Rename(labels.Map())
	require.NoError(t, err)

	assert.Equal(t, joltsNames, renamed.Columns())
	assert.Equal(t, tbl.Rows(), renamed.Rows())
	assert.Equal(t, tbl.Index(), renamed.Index())

	// The source table is untouched.
	assert.Equal(t, joltsCodes, tbl.Columns())
}

func TestRenameMissingColumn(t *testing.T) {
	tbl, err := FromColumns(
		[]time.Time{month(2020, time.January)},
		[]string{"JTSJOL", "JTSHIL", "JTSLDL"},
		[][]float64{{100}, {300}, {400}},
	)
	require.NoError(t, err)
	labels, err := NewLabels(joltsCodes, joltsNames)
	require.NoError(t, err)

	renamed, err := tbl.Rename(labels.Map())
	require.NoError(t, err)

	assert.Equal(t, []string{"openings", "hires", "layoffs"}, renamed.Columns())
	assert.False(t, renamed.Has("quits"))
	assert.Equal(t, [][]float64{{100, 300, 400}}, renamed.Rows())
}

func TestRenameLeavesUnmappedColumns(t *testing.T) {
	tbl, err := FromColumns(
		[]time.Time{month(2021, time.March)},
		[]string{"JTSJOL", "UNRATE"},
		[][]float64{{7000}, {6.0}},
	)
	require.NoError(t, err)

	renamed, err := tbl.Rename(map[string]string{"JTSJOL": "openings"})
	require.NoError(t, err)
	assert.Equal(t, []string{"openings", "UNRATE"}, renamed.Columns())
}

func TestRenameRejectsCollisions(t *testing.T) {
	tbl := sampleTable(t)

	_, err := tbl.Rename(map[string]string{"JTSJOL": "x", "JTSQUL": "x"})
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = tbl.Rename(map[string]string{"JTSJOL": IndexColumn})
	assert.Error(t, err)
}

func TestRenameSwap(t *testing.T) {
	tbl := sampleTable(t)
	renamed, err := tbl.Rename(map[string]string{"JTSJOL": "JTSQUL", "JTSQUL": "JTSJOL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"JTSQUL", "JTSJOL", "JTSHIL", "JTSLDL"}, renamed.Columns())

	v, err := renamed.Column("JTSQUL")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 110}, v)
}

func TestRenameThenSelectScenario(t *testing.T) {
	tbl := sampleTable(t)
	labels, err := NewLabels(joltsCodes, joltsNames)
	require.NoError(t, err)

	renamed, err := tbl.Rename(labels.Map())
	require.NoError(t, err)
	require.Equal(t, []string{"openings", "quits", "hires", "layoffs"}, renamed.Columns())
	require.Equal(t, [][]float64{{100, 200, 300, 400}, {110, 190, 310, 390}}, renamed.Rows())

	area, err := renamed.Select("quits", "layoffs")
	require.NoError(t, err)
	assert.Equal(t, 2, area.Len())
	assert.Equal(t, []string{"quits", "layoffs"}, area.Columns())
	assert.Equal(t, [][]float64{{200, 400}, {190, 390}}, area.Rows())

	line, err := renamed.Select("hires", "openings")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{300, 100}, {310, 110}}, line.Rows())
}

func TestSelectUnknownColumn(t *testing.T) {
	tbl := sampleTable(t)
	_, err := tbl.Select("quits")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = tbl.Column("nope")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestFromColumnsValidation(t *testing.T) {
	idx := []time.Time{month(2020, time.January)}

	_, err := FromColumns(idx, []string{"a", "b"}, [][]float64{{1}})
	assert.ErrorIs(t, err, ErrShape)

	_, err = FromColumns(idx, []string{"a"}, [][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrShape)

	_, err = FromColumns(idx, []string{"a", "a"}, [][]float64{{1}, {2}})
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = FromColumns([]time.Time{idx[0], idx[0]}, []string{"a"}, [][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestFromColumnsSortsIndex(t *testing.T) {
	tbl, err := FromColumns(
		[]time.Time{month(2020, time.March), month(2020, time.January)},
		[]string{"a"},
		[][]float64{{3, 1}},
	)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{month(2020, time.January), month(2020, time.March)}, tbl.Index())
	v, _ := tbl.Column("a")
	assert.Equal(t, []float64{1, 3}, v)
}

func TestFromDataFrame(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"2020-02-01", "2020-01-01"}, series.String, "DATE"),
		series.New([]string{"190", "."}, series.String, "JTSQUL"),
	)
	tbl, err := FromDataFrame(df)
	require.NoError(t, err)

	assert.Equal(t, []string{"JTSQUL"}, tbl.Columns())
	assert.Equal(t, month(2020, time.January), tbl.Index()[0])
	v, err := tbl.Column("JTSQUL")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v[0]))
	assert.Equal(t, 190.0, v[1])
}

func TestJoinOuter(t *testing.T) {
	a, err := FromColumns(
		[]time.Time{month(2020, time.January), month(2020, time.February)},
		[]string{"JTSJOL"},
		[][]float64{{100, 110}},
	)
	require.NoError(t, err)
	b, err := FromColumns(
		[]time.Time{month(2020, time.February), month(2020, time.March)},
		[]string{"JTSQUL"},
		[][]float64{{190, 180}},
	)
	require.NoError(t, err)

	joined, err := a.Join(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"JTSJOL", "JTSQUL"}, joined.Columns())
	assert.Equal(t, []time.Time{month(2020, time.January), month(2020, time.February), month(2020, time.March)}, joined.Index())

	openings, _ := joined.Column("JTSJOL")
	quits, _ := joined.Column("JTSQUL")
	assert.Equal(t, []float64{100, 110}, openings[:2])
	assert.True(t, math.IsNaN(openings[2]))
	assert.True(t, math.IsNaN(quits[0]))
	assert.Equal(t, []float64{190, 180}, quits[1:])
}

func TestJoinEmptySide(t *testing.T) {
	empty, err := FromColumns(nil, []string{"JTSJOL"}, [][]float64{{}})
	require.NoError(t, err)
	b, err := FromColumns([]time.Time{month(2020, time.January)}, []string{"JTSQUL"}, [][]float64{{200}})
	require.NoError(t, err)

	joined, err := empty.Join(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"JTSJOL", "JTSQUL"}, joined.Columns())
	assert.Equal(t, 1, joined.Len())
}

func TestBetween(t *testing.T) {
	tbl, err := FromColumns(
		[]time.Time{month(2020, time.January), month(2020, time.February), month(2020, time.March)},
		[]string{"a"},
		[][]float64{{1, 2, 3}},
	)
	require.NoError(t, err)

	got := tbl.Between(month(2020, time.February), time.Time{})
	assert.Equal(t, []time.Time{month(2020, time.February), month(2020, time.March)}, got.Index())
	assert.Equal(t, [][]float64{{2}, {3}}, got.Rows())

	got = tbl.Between(time.Time{}, month(2020, time.January))
	assert.Equal(t, [][]float64{{1}}, got.Rows())

	assert.Same(t, tbl, tbl.Between(time.Time{}, time.Time{}))

	empty := tbl.Between(month(2021, time.January), time.Time{})
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, []string{"a"}, empty.Columns())
}

func TestJoinRejectsDuplicateColumns(t *testing.T) {
	tbl := sampleTable(t)
	_, err := tbl.Join(tbl)
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2023-12-31T00:00:00", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseDate("Jan 2020")
	assert.Error(t, err)
}
