package report

import (
	"io"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/seenimoa/joltsplot/internal/frame"
)

// WriteTable prints t as a box-drawn table with the date column first.
// When tail > 0 only the last tail rows are printed. Missing values are
// left blank.
func WriteTable(w io.Writer, t *frame.Table, tail int) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	cols := t.Columns()
	header := make(table.Row, 0, len(cols)+1)
	header = append(header, frame.IndexColumn)
	for _, c := range cols {
		header = append(header, c)
	}
	tw.AppendHeader(header)

	index := t.Index()
	rows := t.Rows()
	start := 0
	if tail > 0 && tail < len(rows) {
		start = len(rows) - tail
	}
	for i := start; i < len(rows); i++ {
		row := make(table.Row, 0, len(cols)+1)
		row = append(row, index[i].Format(frame.DateLayout))
		for _, v := range rows[i] {
			row = append(row, formatCell(v))
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
