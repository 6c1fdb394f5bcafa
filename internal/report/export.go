package report

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/joltsplot/internal/frame"
)

// DefaultSheet is the worksheet name WriteWorkbook uses when none is given.
const DefaultSheet = "Sheet1"

// WriteCSV writes t as CSV with a date column first. Missing values are
// written as NaN.
func WriteCSV(w io.Writer, t *frame.Table) error {
	if err := t.DataFrame().WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteWorkbook writes t as a single-sheet XLSX workbook. Dates are text
// cells in YYYY-MM-DD form; missing values are empty cells.
func WriteWorkbook(w io.Writer, t *frame.Table, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = DefaultSheet
	}
	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}

	cols := t.Columns()
	header := make([]any, 0, len(cols)+1)
	header = append(header, frame.IndexColumn)
	for _, c := range cols {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	index := t.Index()
	for i, vals := range t.Rows() {
		if err := setCell(f, sheet, 1, i+2, index[i].Format(frame.DateLayout)); err != nil {
			return err
		}
		for j, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			if err := setCell(f, sheet, j+2, i+2, v); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("write %s: %w", cell, err)
	}
	return nil
}
